package platform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectTripleIsDeterministic(t *testing.T) {
	a := DetectTriple()
	b := DetectTriple()
	assert.Equal(t, a, b)
}

func TestDetectTripleIsEnumeratedOrUnknown(t *testing.T) {
	triple := DetectTriple()
	if strings.HasPrefix(triple, "unknown-") || strings.HasSuffix(triple, "-unknown") {
		return
	}
	assert.True(t, ValidTriple(triple), "triple %q must validate", triple)
}

func TestValidTriple(t *testing.T) {
	cases := map[string]bool{
		"x86_64-linux-gnu":  true,
		"x86_64-linux-musl": true,
		"x86_64-darwin":     true,
		"i686-linux-gnu":    true,
		"i686-darwin":       true,
		"unknown-unknown":   true,
		"bogus-nonsense":    false,
		"noseparatorhere":   false,
	}
	for triple, want := range cases {
		assert.Equal(t, want, ValidTriple(triple), "triple %q", triple)
	}
}
