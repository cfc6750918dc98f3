package testutil

import (
	"testing"

	"github.com/wordgrid/server/internal/gridmap"
	"github.com/wordgrid/server/internal/procedural"
	"github.com/wordgrid/server/internal/world"
)

// SingleWord is a dictionary that yields exactly one distinct word.
var SingleWord = []string{"TEST"}

// SmallDictionary is a short word list that fits in any chunk of size 10.
var SmallDictionary = []string{"CAT", "DOG", "BIRD", "FISH", "LION", "BEAR", "WOLF", "DEER"}

// NewTestWorld builds a world with default generator options over words.
func NewTestWorld(t testing.TB, words []string, opts ...world.Option) *world.World {
	t.Helper()
	gen, err := procedural.NewGenerator(words, procedural.DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to create generator: %v", err)
	}
	return world.New(gen, opts...)
}

// FirstPlacement returns the first placement of w, failing the test if the
// origin chunk holds none.
func FirstPlacement(t testing.TB, w *world.World) world.Placement {
	t.Helper()
	placements := w.Placements()
	if len(placements) == 0 {
		t.Fatal("world has no placements")
	}
	return placements[0]
}

// Reversed returns coords in reverse order.
func Reversed(coords []gridmap.Position) []gridmap.Position {
	out := make([]gridmap.Position, len(coords))
	for i, c := range coords {
		out[len(coords)-1-i] = c
	}
	return out
}
