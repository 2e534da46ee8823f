package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/NickMagic25/kubeegg/manifest"
)

func NewBackend(basePath string) *Backend {
	if basePath == "" {
		basePath = "."
	}
	return &Backend{
		Name:     "file",
		BasePath: basePath,
	}
}

type Backend struct {
	Name     string
	BasePath string

	// Force allows overwriting files already present in BasePath.
	Force bool
}

func (b *Backend) PreCmd(_ context.Context, _ string) error {
	klog.V(4).Infof("[file backend] validating output directory: %s", b.BasePath)
	info, err := os.Stat(b.BasePath)
	if err != nil && os.IsNotExist(err) {
		return fmt.Errorf("output directory does not exist: %s", b.BasePath)
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("output path is not a directory: %s", b.BasePath)
	}
	return nil
}

// WriteManifests writes each document directly into BasePath so the
// kustomization references resolve. Without Force, any pre-existing file in
// the set aborts the whole write before anything is touched.
func (b *Backend) WriteManifests(_ context.Context, _ string, files []manifest.File) ([]string, error) {
	if !b.Force {
		var existing []string
		for _, file := range files {
			if _, err := os.Stat(filepath.Join(b.BasePath, file.Name)); err == nil {
				existing = append(existing, file.Name)
			}
		}
		if len(existing) > 0 {
			return nil, fmt.Errorf("refusing to overwrite existing files %v (use --force)", existing)
		}
	}

	written := make([]string, 0, len(files))
	for _, file := range files {
		target := filepath.Join(b.BasePath, file.Name)
		klog.V(4).Infof("[file backend] writing manifest: %s", target)
		if err := os.WriteFile(target, file.Content, 0o644); err != nil {
			return nil, err
		}
		written = append(written, file.Name)
	}
	return written, nil
}

// Delete removes any generated manifest files from BasePath. Files the user
// placed alongside them are left alone.
func (b *Backend) Delete(_ context.Context, appName string) error {
	klog.V(4).Infof("[file backend] deleting manifests for %s in: %s", appName, b.BasePath)
	for _, name := range manifest.DocumentNames() {
		err := os.Remove(filepath.Join(b.BasePath, name))
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
