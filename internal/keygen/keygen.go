// Package keygen derives human-readable license keys of the form
// NAME5-HASH16 from a customer name, the current time and a server secret.
package keygen

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/makkenzo/machine-license-api/internal/clock"
)

const (
	namePrefixLength = 5
	hashLength       = 16
)

type Generator struct {
	secret string
	clock  clock.Clock
}

func NewGenerator(secret string, clk clock.Clock) *Generator {
	return &Generator{secret: secret, clock: clk}
}

// NormalizeName upper-cases and trims a customer name.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Candidate returns a key for customerName. Each call samples the clock.
// For attempt > 0 the attempt number is mixed into the hash input, so retries
// differ even when the clock has not advanced.
func (g *Generator) Candidate(customerName string, attempt int) string {
	name := NormalizeName(customerName)

	input := name + g.clock.Now().UTC().Format(time.RFC3339Nano) + g.secret
	if attempt > 0 {
		input += "#" + strconv.Itoa(attempt)
	}
	sum := sha256.Sum256([]byte(input))
	short := strings.ToUpper(hex.EncodeToString(sum[:])[:hashLength])

	return namePrefix(name) + "-" + short
}

func namePrefix(name string) string {
	runes := []rune(name)
	if len(runes) > namePrefixLength {
		runes = runes[:namePrefixLength]
	}
	return string(runes)
}
