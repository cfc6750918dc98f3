package world

import (
	"testing"

	"github.com/wordgrid/server/internal/gridmap"
	"github.com/wordgrid/server/internal/procedural"
)

// horizontal builds a placed word running right from anchor.
func horizontal(word string, anchor gridmap.Position) procedural.PlacedWord {
	return procedural.PlacedWord{
		Word:      word,
		Anchor:    anchor,
		Direction: 0,
		Cells:     gridmap.Path(anchor, gridmap.Directions[0], len(word)),
	}
}

func reversed(cells []gridmap.Position) []gridmap.Position {
	out := make([]gridmap.Position, len(cells))
	for i, c := range cells {
		out[len(cells)-1-i] = c
	}
	return out
}

func TestLedger_Register(t *testing.T) {
	ledger := NewLedger()
	p := ledger.Register(gridmap.ChunkCoord{}, horizontal("CAT", gridmap.Position{Row: 2, Col: 3}))

	if p.ID != "CAT_2_3_0_0" {
		t.Errorf("ID = %q, expected CAT_2_3_0_0", p.ID)
	}
	if p.Direction != "right" {
		t.Errorf("Direction = %q, expected right", p.Direction)
	}
	if p.Found {
		t.Error("new placement is already found")
	}
	if ledger.Len() != 1 {
		t.Errorf("Len = %d, expected 1", ledger.Len())
	}
	if _, ok := ledger.Get(p.ID); !ok {
		t.Error("Get could not find registered placement")
	}
}

func TestLedger_RegisterDuplicateID(t *testing.T) {
	ledger := NewLedger()
	anchor := gridmap.Position{Row: 4, Col: 4}
	first := ledger.Register(gridmap.ChunkCoord{}, horizontal("DOG", anchor))
	second := ledger.Register(gridmap.ChunkCoord{}, procedural.PlacedWord{
		Word:      "DOG",
		Anchor:    anchor,
		Direction: 1,
		Cells:     gridmap.Path(anchor, gridmap.Directions[1], 3),
	})

	if first.ID == second.ID {
		t.Fatalf("duplicate ids %q", first.ID)
	}
	if second.ID != first.ID+"_d1" {
		t.Errorf("second ID = %q", second.ID)
	}
}

func TestLedger_Claim(t *testing.T) {
	tests := []struct {
		name   string
		coords func(cells []gridmap.Position) []gridmap.Position
		match  bool
	}{
		{"forward", func(c []gridmap.Position) []gridmap.Position { return c }, true},
		{"reverse", reversed, true},
		{"empty", func(c []gridmap.Position) []gridmap.Position { return nil }, false},
		{"prefix only", func(c []gridmap.Position) []gridmap.Position { return c[:3] }, false},
		{"scrambled", func(c []gridmap.Position) []gridmap.Position {
			return []gridmap.Position{c[1], c[0], c[2], c[3]}
		}, false},
		{"repeated cell", func(c []gridmap.Position) []gridmap.Position {
			return []gridmap.Position{c[0], c[1], c[1], c[3]}
		}, false},
		{"shifted", func(c []gridmap.Position) []gridmap.Position {
			out := make([]gridmap.Position, len(c))
			for i, p := range c {
				out[i] = gridmap.Position{Row: p.Row + 1, Col: p.Col}
			}
			return out
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := NewLedger()
			p := ledger.Register(gridmap.ChunkCoord{}, horizontal("TEST", gridmap.Position{Row: 1, Col: 1}))

			found, ok := ledger.Claim(tt.coords(p.Cells))
			if ok != tt.match {
				t.Fatalf("Claim() matched = %v, expected %v", ok, tt.match)
			}
			if ok {
				if found.Word != "TEST" || found.ID != p.ID {
					t.Errorf("Claim() = %+v", found)
				}
				if ledger.FoundCount() != 1 {
					t.Errorf("FoundCount = %d, expected 1", ledger.FoundCount())
				}
			} else if ledger.FoundCount() != 0 {
				t.Errorf("FoundCount = %d after a miss", ledger.FoundCount())
			}
		})
	}
}

func TestLedger_ClaimOnce(t *testing.T) {
	ledger := NewLedger()
	p := ledger.Register(gridmap.ChunkCoord{}, horizontal("TEST", gridmap.Position{}))

	if _, ok := ledger.Claim(p.Cells); !ok {
		t.Fatal("first claim failed")
	}
	if _, ok := ledger.Claim(p.Cells); ok {
		t.Error("second claim succeeded")
	}
	if _, ok := ledger.Claim(reversed(p.Cells)); ok {
		t.Error("reverse claim of a found word succeeded")
	}

	got, _ := ledger.Get(p.ID)
	if !got.Found {
		t.Error("placement not marked found")
	}
	words := ledger.FoundWords()
	if len(words) != 1 || words[0].ID != p.ID {
		t.Errorf("FoundWords() = %+v", words)
	}
}

func TestLedger_ClaimInsertionOrder(t *testing.T) {
	ledger := NewLedger()
	ledger.Register(gridmap.ChunkCoord{}, horizontal("AB", gridmap.Position{Row: 0, Col: 0}))
	second := ledger.Register(gridmap.ChunkCoord{}, horizontal("CD", gridmap.Position{Row: 5, Col: 5}))

	found, ok := ledger.Claim(second.Cells)
	if !ok || found.ID != second.ID {
		t.Errorf("Claim() = %+v, %v; expected %s", found, ok, second.ID)
	}
}

func TestLedger_Skipped(t *testing.T) {
	ledger := NewLedger()
	ledger.RecordSkipped(2)
	ledger.RecordSkipped(3)
	if ledger.Skipped() != 5 {
		t.Errorf("Skipped = %d, expected 5", ledger.Skipped())
	}
}
