// Package fetch retrieves raw descriptor documents from local files or
// HTTP(S) URLs. It performs no normalization; the egg package owns that.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"k8s.io/klog/v2"
)

const fetchTimeout = 20 * time.Second

// Result is a decoded descriptor plus where it actually came from.
type Result struct {
	Data           map[string]any
	Source         string
	ResolvedSource string
}

// IsURL reports whether source should be fetched over HTTP rather than read
// from disk.
func IsURL(source string) bool {
	parsed, err := url.Parse(source)
	if err != nil {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// GithubBlobToRaw rewrites a github.com blob URL to its raw content URL so
// users can paste links straight from the browser.
func GithubBlobToRaw(source string) string {
	parsed, err := url.Parse(source)
	if err != nil {
		return source
	}
	if parsed.Host != "github.com" && parsed.Host != "www.github.com" {
		return source
	}
	parts := strings.Split(strings.TrimPrefix(parsed.Path, "/"), "/")
	if len(parts) < 5 || parts[2] != "blob" {
		return source
	}
	org, repo, ref := parts[0], parts[1], parts[3]
	rest := strings.Join(parts[4:], "/")
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", org, repo, ref, rest)
}

// Load reads and decodes the descriptor at source, which may be a file path
// or a URL.
func Load(ctx context.Context, source string) (*Result, error) {
	if IsURL(source) {
		return loadURL(ctx, source)
	}
	return loadFile(source)
}

func loadURL(ctx context.Context, source string) (*Result, error) {
	resolved := GithubBlobToRaw(source)
	klog.V(4).Infof("fetching descriptor from %s", resolved)

	client := resty.New().SetTimeout(fetchTimeout)
	resp, err := client.R().SetContext(ctx).Get(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch descriptor from %s: %w", resolved, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch descriptor from %s: status %s", resolved, resp.Status())
	}

	data, err := decode(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("response from %s: %w", resolved, err)
	}
	return &Result{Data: data, Source: source, ResolvedSource: resolved}, nil
}

func loadFile(source string) (*Result, error) {
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("unable to read descriptor file: %w", err)
	}
	data, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", source, err)
	}
	return &Result{Data: data, Source: source, ResolvedSource: source}, nil
}

func decode(raw []byte) (map[string]any, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("not valid JSON: %w", err)
	}
	data, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("descriptor must be a JSON object at the top level")
	}
	return data, nil
}
