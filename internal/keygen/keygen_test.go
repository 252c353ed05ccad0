package keygen

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/makkenzo/machine-license-api/internal/clock"
)

func TestGenerator_Candidate_Format(t *testing.T) {
	g := NewGenerator("secret", clock.Real{})

	assert.Regexp(t, regexp.MustCompile(`^ACME-[0-9A-F]{16}$`), g.Candidate("acme", 0))
	assert.Regexp(t, regexp.MustCompile(`^GLOBE-[0-9A-F]{16}$`), g.Candidate("  Globex Corporation ", 0))
	assert.Regexp(t, regexp.MustCompile(`^AB-[0-9A-F]{16}$`), g.Candidate("ab", 0))
}

func TestGenerator_Candidate_Deterministic(t *testing.T) {
	fixed := clock.Fixed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	a := NewGenerator("secret", fixed).Candidate("ACME", 0)
	b := NewGenerator("secret", fixed).Candidate("ACME", 0)
	c := NewGenerator("other", fixed).Candidate("ACME", 0)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestGenerator_Candidate_RetryDiffersOnFrozenClock(t *testing.T) {
	g := NewGenerator("secret", clock.Fixed(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	seen := map[string]bool{}
	for attempt := 0; attempt < 10; attempt++ {
		key := g.Candidate("ACME", attempt)
		assert.False(t, seen[key], "duplicate candidate on attempt %d", attempt)
		seen[key] = true
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "ACME CORP", NormalizeName(" acme corp "))
}
