package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NickMagic25/kubeegg/providers/backend/file"
	"github.com/NickMagic25/kubeegg/providers/backend/s3"
)

func TestNewProvider(t *testing.T) {
	type test struct {
		name   string
		input  string
		outDir string
		want   Provider
	}
	tests := []test{
		{name: "file", input: "file", outDir: "/tmp/out", want: file.NewBackend("/tmp/out")},
		{name: "s3", input: "s3", want: s3.NewBackend()},
		{name: "not matching name", input: "wrong", want: file.NewBackend("")},
		{name: "no name", input: "", want: file.NewBackend("")},
	}
	for _, tc := range tests {
		actual := NewProvider(tc.input, tc.outDir)
		assert.Equal(t, tc.want, actual)
	}
}
