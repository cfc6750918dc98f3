package procedural

import (
	"reflect"
	"testing"

	"github.com/wordgrid/server/internal/gridmap"
)

var testWords = []string{"cat", "dog", "bird", "fish", "horse", "mouse", "tiger", "zebra"}

func newTestGenerator(t *testing.T, words []string) *Generator {
	t.Helper()
	gen, err := NewGenerator(words, DefaultOptions())
	if err != nil {
		t.Fatalf("NewGenerator failed: %v", err)
	}
	return gen
}

func TestNewGenerator_Validation(t *testing.T) {
	tests := []struct {
		name    string
		words   []string
		opts    Options
		wantErr bool
	}{
		{"defaults", testWords, DefaultOptions(), false},
		{"empty word list", nil, DefaultOptions(), true},
		{"chunk size too small", testWords, Options{ChunkSize: 1, MinWords: 2, MaxWords: 5, MaxAttempts: 50}, true},
		{"min words zero", testWords, Options{ChunkSize: 10, MinWords: 0, MaxWords: 5, MaxAttempts: 50}, true},
		{"max below min", testWords, Options{ChunkSize: 10, MinWords: 4, MaxWords: 3, MaxAttempts: 50}, true},
		{"no attempts", testWords, Options{ChunkSize: 10, MinWords: 2, MaxWords: 5, MaxAttempts: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.words, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGenerator() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := newTestGenerator(t, testWords)
	b := newTestGenerator(t, testWords)

	coords := []gridmap.ChunkCoord{{Row: 0, Col: 0}, {Row: 3, Col: 7}, {Row: -1, Col: -1}, {Row: -42, Col: 17}, {Row: 100000, Col: -100000}}
	for _, coord := range coords {
		first := a.Generate(coord)
		second := b.Generate(coord)
		if !reflect.DeepEqual(first.Chunk.Rows(), second.Chunk.Rows()) {
			t.Errorf("chunk %v letters differ between generators", coord)
		}
		if !reflect.DeepEqual(first.Words, second.Words) {
			t.Errorf("chunk %v placements differ between generators", coord)
		}
		if first.Skipped != second.Skipped {
			t.Errorf("chunk %v skipped counts differ: %d vs %d", coord, first.Skipped, second.Skipped)
		}
	}
}

func TestGenerator_NoEmptyCells(t *testing.T) {
	gen := newTestGenerator(t, testWords)
	for row := -3; row <= 3; row++ {
		for col := -3; col <= 3; col++ {
			result := gen.Generate(gridmap.ChunkCoord{Row: row, Col: col})
			for _, line := range result.Chunk.Rows() {
				if len(line) != gen.ChunkSize() {
					t.Fatalf("row length %d, expected %d", len(line), gen.ChunkSize())
				}
				for i := 0; i < len(line); i++ {
					if line[i] < 'A' || line[i] > 'Z' {
						t.Fatalf("chunk (%d,%d) holds non-letter %q", row, col, line[i])
					}
				}
			}
		}
	}
}

func TestGenerator_PlacementsContainedAndSpelled(t *testing.T) {
	gen := newTestGenerator(t, testWords)
	size := gen.ChunkSize()
	for row := -4; row <= 4; row++ {
		for col := -4; col <= 4; col++ {
			coord := gridmap.ChunkCoord{Row: row, Col: col}
			result := gen.Generate(coord)

			total := len(result.Words) + result.Skipped
			if total < 2 || total > 5 {
				t.Errorf("chunk %v attempted %d words, expected 2..5", coord, total)
			}

			for _, placed := range result.Words {
				if len(placed.Cells) != len(placed.Word) {
					t.Errorf("%s has %d cells", placed.Word, len(placed.Cells))
				}
				if placed.Cells[0] != placed.Anchor {
					t.Errorf("%s first cell %v is not the anchor %v", placed.Word, placed.Cells[0], placed.Anchor)
				}
				for i, cell := range placed.Cells {
					if gridmap.ChunkOf(cell, size) != coord {
						t.Errorf("%s cell %v escapes chunk %v", placed.Word, cell, coord)
					}
					if got := result.Chunk.Letter(gridmap.LocalOf(cell, size)); got != placed.Word[i] {
						t.Errorf("%s cell %d holds %q, expected %q", placed.Word, i, got, placed.Word[i])
					}
				}
			}
		}
	}
}

func TestGenerator_UppercasesWords(t *testing.T) {
	gen := newTestGenerator(t, []string{"test"})
	result := gen.Generate(gridmap.ChunkCoord{})
	for _, placed := range result.Words {
		if placed.Word != "TEST" {
			t.Errorf("placed word %q, expected TEST", placed.Word)
		}
	}
}

func TestGenerator_SkipsWordsLongerThanChunk(t *testing.T) {
	gen := newTestGenerator(t, []string{"extraordinarily"})
	for row := 0; row < 5; row++ {
		result := gen.Generate(gridmap.ChunkCoord{Row: row, Col: row})
		if len(result.Words) != 0 {
			t.Errorf("expected no placements, got %d", len(result.Words))
		}
		if result.Skipped < 2 || result.Skipped > 5 {
			t.Errorf("expected 2..5 skipped words, got %d", result.Skipped)
		}
	}
}

func TestGenerator_ChunksDiffer(t *testing.T) {
	gen := newTestGenerator(t, testWords)
	origin := gen.Generate(gridmap.ChunkCoord{}).Chunk.Rows()
	same := 0
	for col := 1; col <= 5; col++ {
		if reflect.DeepEqual(origin, gen.Generate(gridmap.ChunkCoord{Row: 0, Col: col}).Chunk.Rows()) {
			same++
		}
	}
	if same != 0 {
		t.Errorf("%d neighbouring chunks repeated the origin chunk", same)
	}
}

func TestGenerator_NoDuplicateRuns(t *testing.T) {
	gen := newTestGenerator(t, []string{"ab"})
	for row := -5; row <= 5; row++ {
		for col := -5; col <= 5; col++ {
			result := gen.Generate(gridmap.ChunkCoord{Row: row, Col: col})
			for i := range result.Words {
				for j := i + 1; j < len(result.Words); j++ {
					if coversExisting(result.Words[j].Cells, result.Words[i:i+1]) {
						t.Errorf("chunk (%d,%d) placed the same run twice", row, col)
					}
				}
			}
		}
	}
}
