// Package platform detects the {arch}-{platform} triple used to select
// the correct core agent binary variant.
package platform

import (
	"os"
	"runtime"
)

var archTable = map[string]string{
	"amd64": "x86_64",
	"386":   "i686",
}

var validArches = map[string]bool{"x86_64": true, "i686": true, "unknown": true}
var validPlatforms = map[string]bool{"darwin": true, "linux-gnu": true, "linux-musl": true, "unknown": true}

// DetectTriple returns a string of the form "{arch}-{platform}", always
// a member of the enumerated sets above, or "unknown-*" when the host
// doesn't map cleanly.
func DetectTriple() string {
	return arch() + "-" + platformName()
}

func arch() string {
	if a, ok := archTable[runtime.GOARCH]; ok {
		return a
	}
	return "unknown"
}

func platformName() string {
	switch runtime.GOOS {
	case "darwin":
		return "darwin"
	case "linux":
		if isMuslLibc() {
			return "linux-musl"
		}
		return "linux-gnu"
	default:
		return "unknown"
	}
}

// isMuslLibc reports whether the running linux uses musl rather than
// glibc. The presence of the glibc-only dynamic loader is used as the
// signal; its absence is treated as musl.
func isMuslLibc() bool {
	candidates := []string{
		"/lib/ld-linux-x86-64.so.2",
		"/lib64/ld-linux-x86-64.so.2",
		"/lib/ld-linux.so.2",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return false
		}
	}
	return true
}

// ValidTriple reports whether t parses into an enumerated arch and
// platform half: split on the first "-", both halves must belong to
// the enumerated sets.
func ValidTriple(t string) bool {
	for i := 0; i < len(t); i++ {
		if t[i] == '-' {
			a, p := t[:i], t[i+1:]
			return validArches[a] && validPlatforms[p]
		}
	}
	return false
}
