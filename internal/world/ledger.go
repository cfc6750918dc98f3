package world

import (
	"fmt"

	"github.com/wordgrid/server/internal/gridmap"
	"github.com/wordgrid/server/internal/procedural"
)

// Placement is one word instance embedded in the grid.
type Placement struct {
	ID        string
	Word      string
	Anchor    gridmap.Position
	Direction string
	Chunk     gridmap.ChunkCoord
	Cells     []gridmap.Position // anchor to tail
	Found     bool
}

// FoundWord is a claimed placement as shown to clients.
type FoundWord struct {
	ID     string             `json:"id"`
	Word   string             `json:"word"`
	Coords []gridmap.Position `json:"coords"`
}

// Ledger records every placed word in insertion order and tracks which have been claimed.
// It is not safe for concurrent use; World serializes access.
type Ledger struct {
	placements []*Placement
	byID       map[string]*Placement
	byLength   map[int][]*Placement
	found      []FoundWord
	skipped    int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byID:     make(map[string]*Placement),
		byLength: make(map[int][]*Placement),
	}
}

// PlacementID builds the identifier of a word placed at anchor inside chunk.
func PlacementID(word string, anchor gridmap.Position, chunk gridmap.ChunkCoord) string {
	return fmt.Sprintf("%s_%d_%d_%d_%d", word, anchor.Row, anchor.Col, chunk.Row, chunk.Col)
}

// Register adds a generated word to the ledger and returns its record.
func (l *Ledger) Register(chunk gridmap.ChunkCoord, placed procedural.PlacedWord) *Placement {
	id := PlacementID(placed.Word, placed.Anchor, chunk)
	if _, exists := l.byID[id]; exists {
		// Same word from the same anchor in another direction.
		id = fmt.Sprintf("%s_d%d", id, placed.Direction)
	}

	cells := make([]gridmap.Position, len(placed.Cells))
	copy(cells, placed.Cells)

	p := &Placement{
		ID:        id,
		Word:      placed.Word,
		Anchor:    placed.Anchor,
		Direction: gridmap.Directions[placed.Direction].Name,
		Chunk:     chunk,
		Cells:     cells,
	}
	l.placements = append(l.placements, p)
	l.byID[id] = p
	l.byLength[len(cells)] = append(l.byLength[len(cells)], p)
	return p
}

// RecordSkipped adds to the count of words the generator could not place.
func (l *Ledger) RecordSkipped(n int) {
	l.skipped += n
}

// Get looks up a placement by id.
func (l *Ledger) Get(id string) (Placement, bool) {
	p, ok := l.byID[id]
	if !ok {
		return Placement{}, false
	}
	return *p, true
}

// Len returns the number of placements.
func (l *Ledger) Len() int {
	return len(l.placements)
}

// FoundCount returns the number of claimed placements.
func (l *Ledger) FoundCount() int {
	return len(l.found)
}

// Skipped returns the number of words dropped during generation.
func (l *Ledger) Skipped() int {
	return l.skipped
}

// Placements returns copies of all placements in insertion order.
func (l *Ledger) Placements() []Placement {
	out := make([]Placement, len(l.placements))
	for i, p := range l.placements {
		out[i] = *p
	}
	return out
}

// FoundWords returns the claimed words in the order they were claimed.
func (l *Ledger) FoundWords() []FoundWord {
	out := make([]FoundWord, len(l.found))
	copy(out, l.found)
	return out
}
