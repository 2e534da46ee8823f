package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/egg.json"))
	assert.True(t, IsURL("http://example.com/egg.json"))
	assert.False(t, IsURL("/tmp/egg.json"))
	assert.False(t, IsURL("egg.json"))
	assert.False(t, IsURL("ftp://example.com/egg.json"))
}

func TestGithubBlobToRaw(t *testing.T) {
	type test struct {
		name  string
		input string
		want  string
	}
	tests := []test{
		{
			name:  "blob url",
			input: "https://github.com/parkervcp/eggs/blob/master/minecraft/java/egg.json",
			want:  "https://raw.githubusercontent.com/parkervcp/eggs/master/minecraft/java/egg.json",
		},
		{
			name:  "www host",
			input: "https://www.github.com/org/repo/blob/main/egg.json",
			want:  "https://raw.githubusercontent.com/org/repo/main/egg.json",
		},
		{
			name:  "raw url unchanged",
			input: "https://raw.githubusercontent.com/org/repo/main/egg.json",
			want:  "https://raw.githubusercontent.com/org/repo/main/egg.json",
		},
		{
			name:  "non blob path unchanged",
			input: "https://github.com/org/repo/releases/download/v1/egg.json",
			want:  "https://github.com/org/repo/releases/download/v1/egg.json",
		},
		{
			name:  "other host unchanged",
			input: "https://example.com/org/repo/blob/main/egg.json",
			want:  "https://example.com/org/repo/blob/main/egg.json",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GithubBlobToRaw(tc.input))
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "egg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "Test", "image": "x"}`), 0o644))

	result, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Test", result.Data["name"])
	assert.Equal(t, path, result.ResolvedSource)
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = Load(context.Background(), path)
	assert.ErrorContains(t, err, "not valid JSON")

	path = filepath.Join(t.TempDir(), "array.json")
	require.NoError(t, os.WriteFile(path, []byte(`["not", "an", "object"]`), 0o644))
	_, err = Load(context.Background(), path)
	assert.ErrorContains(t, err, "JSON object at the top level")
}

func TestLoad_URL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Remote", "image": "x"}`))
	}))
	defer server.Close()

	result, err := Load(context.Background(), server.URL+"/egg.json")
	require.NoError(t, err)
	assert.Equal(t, "Remote", result.Data["name"])
}

func TestLoad_URLErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := Load(context.Background(), server.URL+"/egg.json")
	assert.ErrorContains(t, err, "status")
}
