package engine

import (
	"sync"

	"github.com/google/uuid"
)

// RunTokenGenerator produces the id of each run the engine starts.
type RunTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator is the default run id source. UUIDv7 ids sort by
// creation time, which keeps "latest run" lookups meaningful.
type UUIDv7Generator struct{}

// Generate panics only if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a scripted list of run ids. Once the list is
// used up it either repeats the last id (NewConstantGenerator) or panics
// (NewFixedGenerator), so a test that starts an unplanned run fails loudly.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	next   int
	repeat bool
}

// NewFixedGenerator returns ids from tokens in order and panics after the
// last one.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// NewConstantGenerator returns token for every run. Scenario runs use it so
// golden journals stay byte-identical; an empty token becomes "test-run".
func NewConstantGenerator(token string) *FixedGenerator {
	if token == "" {
		token = "test-run"
	}
	return &FixedGenerator{tokens: []string{token}, repeat: true}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.next < len(g.tokens) {
		token := g.tokens[g.next]
		g.next++
		return token
	}
	if g.repeat && len(g.tokens) > 0 {
		return g.tokens[len(g.tokens)-1]
	}
	panic("engine: fixed run ids exhausted")
}
