package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/wordgrid/server/internal/config"
	"github.com/wordgrid/server/internal/performance"
	"github.com/wordgrid/server/internal/streaming"
	"github.com/wordgrid/server/internal/testutil"
	"github.com/wordgrid/server/internal/world"
)

// testServer is a full server over httptest with the hub running.
type testServer struct {
	server   *httptest.Server
	world    *world.World
	hub      *WebSocketHub
	handlers *WebSocketHandlers
	profiler *performance.Profiler
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "0",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Grid: config.GridConfig{
			ChunkSize:         10,
			MinWords:          2,
			MaxWords:          5,
			PlacementAttempts: 50,
			MaxRegionCells:    world.DefaultMaxRegionCells,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "json"},
	}
}

func newTestServer(t *testing.T, words []string, mutate func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	hub := NewWebSocketHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	profiler := performance.NewProfiler(true)
	w := testutil.NewTestWorld(t, words,
		world.WithSink(hub),
		world.WithProfiler(profiler),
		world.WithMaxRegionCells(cfg.Grid.MaxRegionCells),
	)
	streams := streaming.NewManager(w.ChunkSize(), streaming.DefaultMaxChunks)
	handlers := NewWebSocketHandlers(w, hub, streams, cfg, profiler)
	server := httptest.NewServer(NewRouter(cfg, w, handlers, profiler))

	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	return &testServer{
		server:   server,
		world:    w,
		hub:      hub,
		handlers: handlers,
		profiler: profiler,
	}
}

// connect dials /ws and consumes the join-time stats and found_words pushes.
func (s *testServer) connect(t *testing.T) *testutil.WSClient {
	t.Helper()
	client := testutil.DialWebSocket(t, s.server.URL, "/ws")
	t.Cleanup(client.Close)

	for _, expected := range []string{"stats", "found_words"} {
		msg, err := client.Next(wsTimeout)
		if err != nil {
			t.Fatalf("waiting for %s: %v", expected, err)
		}
		if msg.Type != expected {
			t.Fatalf("join push: got %s, expected %s", msg.Type, expected)
		}
	}
	return client
}
