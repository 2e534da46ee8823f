package backend

import (
	"github.com/NickMagic25/kubeegg/providers/backend/file"
	"github.com/NickMagic25/kubeegg/providers/backend/github"
	"github.com/NickMagic25/kubeegg/providers/backend/s3"
)

// NewProvider selects an output sink by name. outDir only applies to the
// file backend; the remote backends configure themselves from env vars.
func NewProvider(name, outDir string) Provider {
	switch name {
	case "s3":
		return s3.NewBackend()
	case "github":
		return github.NewBackend()
	default:
		return file.NewBackend(outDir)
	}
}
