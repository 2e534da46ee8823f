package utils

import (
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
)

// MemoryToMB converts a Kubernetes memory quantity ("2Gi", "512Mi", "2G")
// to whole megabytes. Binary suffixes divide by 1Mi, decimal by 1M, matching
// how the -Xmx style flags the value is substituted into are interpreted.
func MemoryToMB(value string) (int64, bool) {
	q, err := resource.ParseQuantity(strings.TrimSpace(value))
	if err != nil || q.Sign() <= 0 {
		return 0, false
	}
	var mb int64
	if q.Format == resource.BinarySI {
		mb = q.Value() / (1024 * 1024)
	} else {
		mb = q.Value() / (1000 * 1000)
	}
	if mb <= 0 {
		return 0, false
	}
	return mb, true
}
