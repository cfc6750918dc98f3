// Package world owns the shared word-search grid: the chunk store, the
// placement ledger and the found-word record. Every session goes through a
// World; nothing outside this package touches the underlying maps.
package world

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/wordgrid/server/internal/gridmap"
	"github.com/wordgrid/server/internal/performance"
	"github.com/wordgrid/server/internal/procedural"
)

// DefaultMaxRegionCells bounds a single region read.
const DefaultMaxRegionCells = 250000

// ErrRegionTooLarge is returned when a region request exceeds the configured cell limit.
var ErrRegionTooLarge = errors.New("region too large")

// EventSink receives word-found events once the claim is committed.
type EventSink interface {
	PublishWordFound(event FoundWord) error
}

// ChunkView is a read-only copy of one chunk.
type ChunkView struct {
	Coord gridmap.ChunkCoord
	Size  int
	Rows  []string
}

// RegionView is a read-only copy of a rectangle of cells.
type RegionView struct {
	Start gridmap.Position
	End   gridmap.Position
	Rows  []string
}

// ValidationResult is the outcome of a selection check.
type ValidationResult struct {
	Found  bool
	ID     string
	Word   string
	Coords []gridmap.Position // the selection as submitted
}

// World is the single owner of the grid. It is safe for concurrent use.
type World struct {
	mu             sync.RWMutex
	store          *Store
	sink           EventSink
	profiler       *performance.Profiler
	maxRegionCells int64
}

// Option configures a World.
type Option func(*World)

// WithSink sets where word-found events are published.
func WithSink(sink EventSink) Option {
	return func(w *World) {
		w.sink = sink
	}
}

// WithProfiler times world operations.
func WithProfiler(p *performance.Profiler) Option {
	return func(w *World) {
		w.profiler = p
	}
}

// WithMaxRegionCells sets the largest region a single read may cover.
func WithMaxRegionCells(n int64) Option {
	return func(w *World) {
		if n > 0 {
			w.maxRegionCells = n
		}
	}
}

// New creates a world around generator. The origin chunk is generated immediately.
func New(generator *procedural.Generator, opts ...Option) *World {
	w := &World{
		maxRegionCells: DefaultMaxRegionCells,
	}
	for _, opt := range opts {
		opt(w)
	}

	op := w.profiler.Start("world_init")
	w.store = NewStore(generator)
	op.End()
	return w
}

// ChunkSize returns the edge length of every chunk.
func (w *World) ChunkSize() int {
	return w.store.ChunkSize()
}

// GetChunk returns the chunk at coord, generating it on first access.
func (w *World) GetChunk(coord gridmap.ChunkCoord) ChunkView {
	if view, ok := w.readChunk(coord); ok {
		return view
	}

	op := w.profiler.Start("chunk_generation")
	defer op.End()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.store.Ensure(coord)
	return w.chunkView(coord)
}

func (w *World) readChunk(coord gridmap.ChunkCoord) (ChunkView, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.store.Has(coord) {
		return ChunkView{}, false
	}
	return w.chunkView(coord), true
}

func (w *World) chunkView(coord gridmap.ChunkCoord) ChunkView {
	chunk := w.store.Chunk(coord)
	return ChunkView{
		Coord: coord,
		Size:  chunk.Size,
		Rows:  chunk.Rows(),
	}
}

// GetRegion returns the inclusive rectangle between two corners, generating
// any chunk it touches. Corners may be given in any order.
func (w *World) GetRegion(a, b gridmap.Position) (RegionView, error) {
	start, end := gridmap.NormalizeRegion(a, b)
	cells, ok := gridmap.RegionCells(start, end)
	if !ok {
		return RegionView{}, fmt.Errorf("%w: cell count overflows, limit is %d", ErrRegionTooLarge, w.maxRegionCells)
	}
	if cells > w.maxRegionCells {
		return RegionView{}, fmt.Errorf("%w: %d cells requested, limit is %d", ErrRegionTooLarge, cells, w.maxRegionCells)
	}

	op := w.profiler.Start("region_read")
	defer op.End()

	if rows, ok := w.readCovered(start, end); ok {
		return RegionView{Start: start, End: end, Rows: rows}, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return RegionView{Start: start, End: end, Rows: w.store.Region(start, end)}, nil
}

// readCovered reads a region under the read lock when every chunk it touches
// already exists.
func (w *World) readCovered(start, end gridmap.Position) ([]string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if !w.store.covers(start, end) {
		return nil, false
	}
	return w.store.readRegion(start, end), true
}

// GetCell returns the letter at a global position, generating its chunk if needed.
func (w *World) GetCell(p gridmap.Position) byte {
	if letter, ok := w.readCell(p); ok {
		return letter
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Cell(p)
}

func (w *World) readCell(p gridmap.Position) (byte, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.lookup(p)
}

// Validate checks a selection against unfound placements and claims the
// match. The claim is committed before any event is published, and the event
// is published without holding the world lock.
func (w *World) Validate(coords []gridmap.Position) ValidationResult {
	op := w.profiler.Start("validate")
	defer op.End()

	echo := make([]gridmap.Position, len(coords))
	copy(echo, coords)

	found, ok := w.claim(coords)

	if !ok {
		validationsTotal.WithLabelValues("miss").Inc()
		return ValidationResult{Coords: echo}
	}
	validationsTotal.WithLabelValues("match").Inc()

	log.Info().
		Str("word", found.Word).
		Str("placement_id", found.ID).
		Msg("word found")

	w.publish(found)
	return ValidationResult{
		Found:  true,
		ID:     found.ID,
		Word:   found.Word,
		Coords: echo,
	}
}

func (w *World) claim(coords []gridmap.Position) (FoundWord, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Ledger().Claim(coords)
}

func (w *World) publish(event FoundWord) {
	if w.sink == nil {
		return
	}
	if err := w.sink.PublishWordFound(event); err != nil {
		sinkFailures.Inc()
		log.Warn().Err(err).Str("placement_id", event.ID).Msg("word-found event not fully delivered")
	}
}

// Stats returns a snapshot of world statistics.
func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.stats()
}

// FoundWords returns every claimed word in claim order.
func (w *World) FoundWords() []FoundWord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.Ledger().FoundWords()
}

// Placements returns every placement in insertion order.
func (w *World) Placements() []Placement {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.store.Ledger().Placements()
}
