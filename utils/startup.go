package utils

import (
	"regexp"
	"sort"

	"github.com/google/uuid"
)

// MemoryPlaceholder is the one startup template token the generator
// substitutes. Everything else in a template passes through untouched.
const MemoryPlaceholder = "{{SERVER_MEMORY}}"

var startupVarPattern = regexp.MustCompile(`\{\{([A-Z0-9_]+)\}\}`)

// StartupVars returns the sorted set of {{VAR}} tokens referenced by a
// startup command template.
func StartupVars(startup string) []string {
	seen := map[string]bool{}
	for _, match := range startupVarPattern.FindAllStringSubmatch(startup, -1) {
		seen[match[1]] = true
	}
	vars := make([]string, 0, len(seen))
	for name := range seen {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return vars
}

// GenerateCredential returns a random credential suitable for a generated
// sidecar account.
func GenerateCredential() string {
	return uuid.NewString()
}
