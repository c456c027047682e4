package invoice

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultPrefix is used when neither the caller nor the configuration
// provides one.
const DefaultPrefix = "DON"

const suffixLen = 6

// Generator produces invoice numbers of the form PREFIX-<unix-ms>-<suffix>.
// The suffix is the last six characters of a monotonic ULID. Two numbers
// generated in the same millisecond by one Generator are vanishingly unlikely
// to collide; the store's unique invoice_number constraint is the final guard.
type Generator struct {
	mu            sync.Mutex
	entropy       io.Reader
	defaultPrefix string

	// Now is overridable in tests.
	Now func() time.Time
}

func NewGenerator(defaultPrefix string) *Generator {
	p := sanitizePrefix(defaultPrefix)
	if p == "" {
		p = DefaultPrefix
	}
	return &Generator{
		entropy:       ulid.Monotonic(rand.Reader, 0),
		defaultPrefix: p,
		Now:           time.Now,
	}
}

// Next returns a fresh invoice number. An empty or unusable prefix falls back
// to the generator's default.
func (g *Generator) Next(prefix string) string {
	p := sanitizePrefix(prefix)
	if p == "" {
		p = g.defaultPrefix
	}

	g.mu.Lock()
	now := g.Now()
	id := ulid.MustNew(ulid.Timestamp(now), g.entropy)
	g.mu.Unlock()

	s := id.String()
	return fmt.Sprintf("%s-%d-%s", p, now.UnixMilli(), s[len(s)-suffixLen:])
}

// DefaultPrefix reports the prefix used when none is given.
func (g *Generator) DefaultPrefix() string {
	return g.defaultPrefix
}

// sanitizePrefix keeps only [A-Z0-9] so the number is always a valid gateway
// order id.
func sanitizePrefix(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
