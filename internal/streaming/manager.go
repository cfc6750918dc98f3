// Package streaming tracks client viewports and works out which chunks
// enter or leave them as they move.
package streaming

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/zyedidia/generic/mapset"

	"github.com/wordgrid/server/internal/gridmap"
)

var (
	// ErrSubscriptionNotFound is returned for unknown or foreign subscription ids.
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrViewportTooLarge is returned when a viewport touches more chunks than allowed.
	ErrViewportTooLarge = errors.New("viewport too large")
)

// Viewport is an inclusive rectangle of global cells.
type Viewport struct {
	StartRow int `json:"startRow"`
	StartCol int `json:"startCol"`
	EndRow   int `json:"endRow"`
	EndCol   int `json:"endCol"`
}

// Corners returns the normalized top-left and bottom-right cells.
func (v Viewport) Corners() (gridmap.Position, gridmap.Position) {
	return gridmap.NormalizeRegion(
		gridmap.Position{Row: v.StartRow, Col: v.StartCol},
		gridmap.Position{Row: v.EndRow, Col: v.EndCol},
	)
}

// Subscription tracks one viewport of one session.
type Subscription struct {
	ID        string
	SessionID string
	Viewport  Viewport
	Chunks    []gridmap.ChunkCoord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubscriptionPlan is the initial answer to a subscribe request.
type SubscriptionPlan struct {
	SubscriptionID string               `json:"subscriptionId"`
	Chunks         []gridmap.ChunkCoord `json:"chunks"`
}

// ChunkDelta describes how a subscription's chunk window changed.
type ChunkDelta struct {
	SubscriptionID string               `json:"subscriptionId"`
	Added          []gridmap.ChunkCoord `json:"added"`
	Removed        []gridmap.ChunkCoord `json:"removed"`
	Current        []gridmap.ChunkCoord `json:"current"`
}

// DefaultMaxChunks bounds the chunk window of one viewport.
const DefaultMaxChunks = 64

// Manager coordinates viewport subscriptions for all sessions.
type Manager struct {
	mu            sync.RWMutex
	chunkSize     int
	maxChunks     int64
	subscriptions map[string]*Subscription
}

// NewManager builds a manager for chunks of chunkSize. A maxChunks of zero or
// less means DefaultMaxChunks; every window is materialized, so none is unbounded.
func NewManager(chunkSize int, maxChunks int) *Manager {
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	return &Manager{
		chunkSize:     chunkSize,
		maxChunks:     int64(maxChunks),
		subscriptions: make(map[string]*Subscription),
	}
}

func (m *Manager) checkSize(vp Viewport) error {
	start, end := vp.Corners()
	chunks, ok := gridmap.ChunkCount(start, end, m.chunkSize)
	if !ok {
		return fmt.Errorf("%w: chunk count overflows", ErrViewportTooLarge)
	}
	if chunks > m.maxChunks {
		return fmt.Errorf("%w: %d chunks exceeds limit of %d", ErrViewportTooLarge, chunks, m.maxChunks)
	}
	return nil
}

// Subscribe registers a viewport for sessionID and returns its chunk window.
func (m *Manager) Subscribe(sessionID string, vp Viewport) (*SubscriptionPlan, error) {
	if err := m.checkSize(vp); err != nil {
		return nil, err
	}

	chunks := ComputeChunkWindow(vp, m.chunkSize)
	now := time.Now()
	sub := &Subscription{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Viewport:  vp,
		Chunks:    chunks,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.subscriptions[sub.ID] = sub
	m.mu.Unlock()

	log.Debug().
		Str("session_id", sessionID).
		Str("subscription_id", sub.ID).
		Int("chunks", len(chunks)).
		Msg("viewport subscribed")

	return &SubscriptionPlan{
		SubscriptionID: sub.ID,
		Chunks:         chunks,
	}, nil
}

// Update moves a subscription to a new viewport and returns the chunk delta.
func (m *Manager) Update(sessionID, subscriptionID string, vp Viewport) (*ChunkDelta, error) {
	if err := m.checkSize(vp); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok || sub.SessionID != sessionID {
		return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, subscriptionID)
	}

	next := ComputeChunkWindow(vp, m.chunkSize)
	added, removed := diffChunkSets(sub.Chunks, next)

	sub.Viewport = vp
	sub.Chunks = next
	sub.UpdatedAt = time.Now()

	log.Debug().
		Str("session_id", sessionID).
		Str("subscription_id", subscriptionID).
		Int("added", len(added)).
		Int("removed", len(removed)).
		Msg("viewport updated")

	return &ChunkDelta{
		SubscriptionID: subscriptionID,
		Added:          added,
		Removed:        removed,
		Current:        next,
	}, nil
}

// Get returns a copy of a subscription.
func (m *Manager) Get(subscriptionID string) (Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return Subscription{}, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, subscriptionID)
	}
	copied := *sub
	copied.Chunks = append([]gridmap.ChunkCoord(nil), sub.Chunks...)
	return copied, nil
}

// RemoveSession drops every subscription owned by sessionID and returns how
// many were removed.
func (m *Manager) RemoveSession(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sub := range m.subscriptions {
		if sub.SessionID == sessionID {
			delete(m.subscriptions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of live subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// ComputeChunkWindow lists the chunks overlapping vp, row-major.
func ComputeChunkWindow(vp Viewport, chunkSize int) []gridmap.ChunkCoord {
	start, end := vp.Corners()
	return gridmap.ChunksInRegion(start, end, chunkSize)
}

func diffChunkSets(previous, next []gridmap.ChunkCoord) (added, removed []gridmap.ChunkCoord) {
	prevSet := mapset.New[gridmap.ChunkCoord]()
	nextSet := mapset.New[gridmap.ChunkCoord]()

	for _, c := range previous {
		prevSet.Put(c)
	}
	for _, c := range next {
		nextSet.Put(c)
		if !prevSet.Has(c) {
			added = append(added, c)
		}
	}
	for _, c := range previous {
		if !nextSet.Has(c) {
			removed = append(removed, c)
		}
	}
	return added, removed
}
