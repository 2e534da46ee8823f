package utils

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	k8sNameInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	k8sNameDashes  = regexp.MustCompile(`-+`)
	envVarInvalid  = regexp.MustCompile(`[^A-Z0-9_]+`)
	envVarScores   = regexp.MustCompile(`_+`)
)

// NormalizeK8sName turns arbitrary user input into a valid RFC 1123 label,
// truncated to maxLength (63 for most resource names).
func NormalizeK8sName(value string) string {
	const maxLength = 63
	value = strings.ToLower(strings.TrimSpace(value))
	value = k8sNameInvalid.ReplaceAllString(value, "-")
	value = k8sNameDashes.ReplaceAllString(value, "-")
	value = strings.Trim(value, "-")
	if value == "" {
		return "app"
	}
	if len(value) > maxLength {
		value = strings.TrimRight(value[:maxLength], "-")
	}
	if value == "" {
		return "app"
	}
	if !isAlnum(value[0]) {
		value = "a-" + value
	}
	return value
}

// NormalizePortName builds a valid Service port name. Port names additionally
// may not start with a digit.
func NormalizePortName(value string) string {
	value = NormalizeK8sName(value)
	if value[0] >= '0' && value[0] <= '9' {
		value = "p-" + value
	}
	if len(value) > 15 {
		value = strings.TrimRight(value[:15], "-")
	}
	return value
}

// NormalizeEnvVar uppercases and sanitizes a name into POSIX env var form.
func NormalizeEnvVar(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = envVarInvalid.ReplaceAllString(value, "_")
	value = envVarScores.ReplaceAllString(value, "_")
	value = strings.Trim(value, "_")
	if value == "" {
		return "VAR"
	}
	if value[0] >= '0' && value[0] <= '9' {
		value = "VAR_" + value
	}
	return value
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// ParsePorts parses a comma or whitespace separated list of ports and port
// ranges ("25565, 27015-27020") into a sorted, de-duplicated list.
func ParsePorts(text string) []int32 {
	parts := regexp.MustCompile(`[\s,]+`).Split(strings.TrimSpace(text), -1)
	seen := map[int32]bool{}
	for _, part := range parts {
		if part == "" {
			continue
		}
		if start, end, ok := splitRange(part); ok {
			for p := start; p <= end; p++ {
				seen[p] = true
			}
			continue
		}
		if p, ok := parsePort(part); ok {
			seen[p] = true
		}
	}
	ports := make([]int32, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}

func splitRange(part string) (int32, int32, bool) {
	start, end, found := strings.Cut(part, "-")
	if !found {
		return 0, 0, false
	}
	s, okS := parsePort(start)
	e, okE := parsePort(end)
	if !okS || !okE {
		return 0, 0, false
	}
	if s > e {
		s, e = e, s
	}
	return s, e, true
}

func parsePort(text string) (int32, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > 65535 {
		return 0, false
	}
	return int32(n), true
}
