package world

import (
	"github.com/rs/zerolog/log"

	"github.com/wordgrid/server/internal/gridmap"
	"github.com/wordgrid/server/internal/procedural"
)

// BlankCell is returned for a cell whose chunk is unexpectedly missing.
const BlankCell = ' '

// Store is the sparse map of generated chunks. It generates chunks on first
// access and registers their words in the ledger. It is not safe for
// concurrent use; World serializes access.
type Store struct {
	size      int
	generator *procedural.Generator
	chunks    map[gridmap.ChunkCoord]*procedural.Chunk
	ledger    *Ledger
}

// NewStore creates a store and generates the origin chunk.
func NewStore(generator *procedural.Generator) *Store {
	s := &Store{
		size:      generator.ChunkSize(),
		generator: generator,
		chunks:    make(map[gridmap.ChunkCoord]*procedural.Chunk),
		ledger:    NewLedger(),
	}
	s.Ensure(gridmap.ChunkCoord{})
	return s
}

// ChunkSize returns the edge length of every chunk.
func (s *Store) ChunkSize() int {
	return s.size
}

// Ledger returns the placement ledger fed by this store.
func (s *Store) Ledger() *Ledger {
	return s.ledger
}

// Has reports whether a chunk has been generated.
func (s *Store) Has(coord gridmap.ChunkCoord) bool {
	_, ok := s.chunks[coord]
	return ok
}

// ChunkCount returns the number of generated chunks.
func (s *Store) ChunkCount() int {
	return len(s.chunks)
}

// Ensure generates the chunk at coord if it does not exist yet.
// It reports whether a chunk was generated.
func (s *Store) Ensure(coord gridmap.ChunkCoord) bool {
	if s.Has(coord) {
		return false
	}

	result := s.generator.Generate(coord)
	for _, placed := range result.Words {
		s.ledger.Register(coord, placed)
	}
	s.ledger.RecordSkipped(result.Skipped)

	// The chunk is complete, letters and words, before it is published in the map.
	s.chunks[coord] = result.Chunk

	chunksGenerated.Inc()
	placementsTotal.Add(float64(len(result.Words)))
	if result.Skipped > 0 {
		placementsSkipped.Add(float64(result.Skipped))
		log.Debug().
			Int("chunk_row", coord.Row).
			Int("chunk_col", coord.Col).
			Int("skipped", result.Skipped).
			Msg("words skipped during generation")
	}
	return true
}

// Chunk returns the chunk at coord, generating it if needed.
func (s *Store) Chunk(coord gridmap.ChunkCoord) *procedural.Chunk {
	s.Ensure(coord)
	return s.chunks[coord]
}

// Cell returns the letter at a global position, generating its chunk if needed.
func (s *Store) Cell(p gridmap.Position) byte {
	s.Ensure(gridmap.ChunkOf(p, s.size))
	letter, _ := s.lookup(p)
	return letter
}

// Region returns the letters of the inclusive rectangle as one string per row,
// generating every chunk it touches. Corners may be given in any order.
func (s *Store) Region(start, end gridmap.Position) []string {
	start, end = gridmap.NormalizeRegion(start, end)
	for _, coord := range gridmap.ChunksInRegion(start, end, s.size) {
		s.Ensure(coord)
	}
	return s.readRegion(start, end)
}

// readRegion reads a normalized rectangle without generating anything.
// The rectangle must already be bounded by the caller.
func (s *Store) readRegion(start, end gridmap.Position) []string {
	height := end.Row - start.Row + 1
	width := end.Col - start.Col + 1
	rows := make([]string, 0, height)
	line := make([]byte, width)
	for dr := 0; dr < height; dr++ {
		for dc := 0; dc < width; dc++ {
			letter, _ := s.lookup(gridmap.Position{Row: start.Row + dr, Col: start.Col + dc})
			line[dc] = letter
		}
		rows = append(rows, string(line))
	}
	return rows
}

// covers reports whether every chunk of a normalized rectangle is generated.
func (s *Store) covers(start, end gridmap.Position) bool {
	for _, coord := range gridmap.ChunksInRegion(start, end, s.size) {
		if !s.Has(coord) {
			return false
		}
	}
	return true
}

func (s *Store) lookup(p gridmap.Position) (byte, bool) {
	chunk, ok := s.chunks[gridmap.ChunkOf(p, s.size)]
	if !ok {
		return BlankCell, false
	}
	return chunk.Letter(gridmap.LocalOf(p, s.size)), true
}

// BoundingBox returns the global cell rectangle covered by generated chunks.
// It is all zero when nothing has been generated.
func (s *Store) BoundingBox() BoundingBox {
	if len(s.chunks) == 0 {
		return BoundingBox{}
	}

	first := true
	var minChunk, maxChunk gridmap.ChunkCoord
	for coord := range s.chunks {
		if first {
			minChunk, maxChunk = coord, coord
			first = false
			continue
		}
		minChunk.Row = min(minChunk.Row, coord.Row)
		minChunk.Col = min(minChunk.Col, coord.Col)
		maxChunk.Row = max(maxChunk.Row, coord.Row)
		maxChunk.Col = max(maxChunk.Col, coord.Col)
	}

	lo, _ := gridmap.ChunkBounds(minChunk, s.size)
	_, hi := gridmap.ChunkBounds(maxChunk, s.size)
	return BoundingBox{
		MinRow: lo.Row,
		MinCol: lo.Col,
		MaxRow: hi.Row,
		MaxCol: hi.Col,
	}
}
