package procedural

import (
	"fmt"
	"strings"

	"github.com/wordgrid/server/internal/gridmap"
)

// Options controls chunk synthesis.
type Options struct {
	ChunkSize   int
	MinWords    int
	MaxWords    int
	MaxAttempts int
}

// DefaultOptions returns the stock generation parameters.
func DefaultOptions() Options {
	return Options{
		ChunkSize:   gridmap.DefaultChunkSize,
		MinWords:    2,
		MaxWords:    5,
		MaxAttempts: 50,
	}
}

// Validate checks that the options describe a generator that always terminates.
func (o Options) Validate() error {
	if err := gridmap.ValidateChunkSize(o.ChunkSize); err != nil {
		return err
	}
	if o.MinWords < 1 {
		return fmt.Errorf("min words must be at least 1, got %d", o.MinWords)
	}
	if o.MaxWords < o.MinWords {
		return fmt.Errorf("max words (%d) must not be less than min words (%d)", o.MaxWords, o.MinWords)
	}
	if o.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", o.MaxAttempts)
	}
	return nil
}

// Chunk is a fully generated square block of letters.
type Chunk struct {
	Coord gridmap.ChunkCoord
	Size  int
	cells []byte
}

// Letter returns the letter at a local offset.
func (c *Chunk) Letter(l gridmap.Local) byte {
	return c.cells[l.Row*c.Size+l.Col]
}

// Rows returns the chunk content as one string per row.
func (c *Chunk) Rows() []string {
	rows := make([]string, c.Size)
	for r := 0; r < c.Size; r++ {
		rows[r] = string(c.cells[r*c.Size : (r+1)*c.Size])
	}
	return rows
}

// PlacedWord is a word the generator embedded in a chunk.
type PlacedWord struct {
	Word      string
	Anchor    gridmap.Position
	Direction int // index into gridmap.Directions
	Cells     []gridmap.Position
}

// Result is everything produced for one chunk.
type Result struct {
	Chunk   *Chunk
	Words   []PlacedWord
	Skipped int // words that found no valid spot within MaxAttempts
}

// Generator synthesizes chunks from a word list.
// It holds no mutable state, so one instance may serve concurrent callers.
type Generator struct {
	opts  Options
	words []string
}

// NewGenerator creates a generator over words.
func NewGenerator(words []string, opts Options) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator options: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("generator needs at least one word")
	}
	list := make([]string, len(words))
	copy(list, words)
	return &Generator{opts: opts, words: list}, nil
}

// ChunkSize returns the edge length of generated chunks.
func (g *Generator) ChunkSize() int {
	return g.opts.ChunkSize
}

// Generate builds the chunk at coord. The same coord and word list always
// yield the same letters and the same placements.
func (g *Generator) Generate(coord gridmap.ChunkCoord) *Result {
	size := g.opts.ChunkSize
	rng := NewLCG(ChunkSeed(coord))
	chunk := &Chunk{
		Coord: coord,
		Size:  size,
		cells: make([]byte, size*size),
	}
	result := &Result{Chunk: chunk}

	wordCount := g.opts.MinWords + rng.Intn(g.opts.MaxWords-g.opts.MinWords+1)
	for i := 0; i < wordCount; i++ {
		word := strings.ToUpper(g.words[rng.Intn(len(g.words))])
		placed, ok := g.place(chunk, rng, word, result.Words)
		if !ok {
			result.Skipped++
			continue
		}
		result.Words = append(result.Words, placed)
	}

	for i, cell := range chunk.cells {
		if cell == 0 {
			chunk.cells[i] = byte('A' + rng.Intn(26))
		}
	}
	return result
}

// place tries up to MaxAttempts random anchors and directions for word.
func (g *Generator) place(chunk *Chunk, rng *LCG, word string, existing []PlacedWord) (PlacedWord, bool) {
	size := chunk.Size
	length := len(word)
	if length == 0 {
		return PlacedWord{}, false
	}

	for attempt := 0; attempt < g.opts.MaxAttempts; attempt++ {
		dirIndex := rng.Intn(len(gridmap.Directions))
		dir := gridmap.Directions[dirIndex]
		local := gridmap.Local{Row: rng.Intn(size), Col: rng.Intn(size)}
		anchor := gridmap.GlobalOf(chunk.Coord, local, size)

		tail := anchor.Step(dir, length-1)
		if gridmap.ChunkOf(anchor, size) != chunk.Coord || gridmap.ChunkOf(tail, size) != chunk.Coord {
			continue
		}

		cells := gridmap.Path(anchor, dir, length)
		if !fits(chunk, cells, word) || coversExisting(cells, existing) {
			continue
		}
		for i, cell := range cells {
			l := gridmap.LocalOf(cell, size)
			chunk.cells[l.Row*size+l.Col] = word[i]
		}
		return PlacedWord{
			Word:      word,
			Anchor:    anchor,
			Direction: dirIndex,
			Cells:     cells,
		}, true
	}
	return PlacedWord{}, false
}

// fits reports whether every cell along the path is empty or already holds the matching letter.
func fits(chunk *Chunk, cells []gridmap.Position, word string) bool {
	for i, cell := range cells {
		l := gridmap.LocalOf(cell, chunk.Size)
		existing := chunk.Letter(l)
		if existing != 0 && existing != word[i] {
			return false
		}
	}
	return true
}

// coversExisting reports whether cells is exactly the run of an earlier word,
// in either direction. Two straight runs with the same endpoints hold the same cells.
func coversExisting(cells []gridmap.Position, existing []PlacedWord) bool {
	first, last := cells[0], cells[len(cells)-1]
	for _, w := range existing {
		if len(w.Cells) != len(cells) {
			continue
		}
		a, b := w.Cells[0], w.Cells[len(w.Cells)-1]
		if (a == first && b == last) || (a == last && b == first) {
			return true
		}
	}
	return false
}
