package backend

import (
	"context"

	"github.com/NickMagic25/kubeegg/manifest"
)

// Provider persists a rendered manifest set. Providers are configured from
// the environment in PreCmd and never influence generation.
type Provider interface {
	PreCmd(ctx context.Context, appName string) error
	WriteManifests(ctx context.Context, appName string, files []manifest.File) ([]string, error)
	Delete(ctx context.Context, appName string) error
}
