package api

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/wordgrid/server/internal/compression"
	"github.com/wordgrid/server/internal/config"
	"github.com/wordgrid/server/internal/gridmap"
	"github.com/wordgrid/server/internal/streaming"
	"github.com/wordgrid/server/internal/testutil"
	"github.com/wordgrid/server/internal/world"
)

const wsTimeout = 3 * time.Second

func intp(v int) *int { return &v }

func TestWebSocketHub_PublishWithoutSessions(t *testing.T) {
	hub := NewWebSocketHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	for i := 0; i < sendBufferSize*2; i++ {
		if err := hub.PublishWordFound(world.FoundWord{ID: "X", Word: "CAT"}); err != nil {
			t.Fatalf("PublishWordFound failed: %v", err)
		}
	}
	if hub.Count() != 0 {
		t.Errorf("Count = %d, expected 0", hub.Count())
	}
}

func TestWebSocketHub_BroadcastAfterStop(t *testing.T) {
	hub := NewWebSocketHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.done

	done := make(chan struct{})
	go func() {
		for i := 0; i < sendBufferSize*2; i++ {
			hub.Broadcast([]byte("{}"))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(wsTimeout):
		t.Fatal("Broadcast blocked after the hub stopped")
	}
}

func TestWebSocket_JoinPushesSnapshot(t *testing.T) {
	s := newTestServer(t, testutil.SingleWord, nil)
	client := testutil.DialWebSocket(t, s.server.URL, "/ws")
	defer client.Close()

	stats, err := client.Next(wsTimeout)
	if err != nil || stats.Type != "stats" {
		t.Fatalf("first message = %+v, err = %v", stats, err)
	}
	var payload world.Stats
	testutil.Decode(t, stats, &payload)
	if payload.ChunkCount != 1 || payload.ChunkSize != 10 {
		t.Errorf("stats = %+v, expected the origin chunk only", payload)
	}

	found, err := client.Next(wsTimeout)
	if err != nil || found.Type != "found_words" {
		t.Fatalf("second message = %+v, err = %v", found, err)
	}
	var words FoundWordsPayload
	testutil.Decode(t, found, &words)
	if words.Words == nil || len(words.Words) != 0 {
		t.Errorf("expected an empty words list, got %v", words.Words)
	}
}

func TestWebSocket_Ping(t *testing.T) {
	s := newTestServer(t, testutil.SingleWord, nil)
	client := s.connect(t)

	msg := client.Request("ping", nil, wsTimeout)
	if msg.Type != "pong" {
		t.Errorf("got %s, expected pong", msg.Type)
	}
}

func TestWebSocket_GetChunkTwice(t *testing.T) {
	s := newTestServer(t, testutil.SmallDictionary, nil)
	client := s.connect(t)

	req := GetChunkRequest{ChunkRow: intp(3), ChunkCol: intp(-2)}
	first := client.Request("get_chunk", req, wsTimeout)
	second := client.Request("get_chunk", req, wsTimeout)
	if first.Type != "chunk_data" {
		t.Fatalf("got %s (%s), expected chunk_data", first.Type, first.Message)
	}

	var a, b ChunkDataPayload
	testutil.Decode(t, first, &a)
	testutil.Decode(t, second, &b)
	if a.ChunkRow != 3 || a.ChunkCol != -2 || a.ChunkSize != 10 {
		t.Errorf("unexpected header %+v", a)
	}
	if len(a.Rows) != 10 {
		t.Fatalf("got %d rows, expected 10", len(a.Rows))
	}
	for i := range a.Rows {
		if len(a.Rows[i]) != 10 {
			t.Errorf("row %d has %d cells", i, len(a.Rows[i]))
		}
		if a.Rows[i] != b.Rows[i] {
			t.Errorf("row %d changed between reads", i)
		}
	}
	if got := s.world.Stats().ChunkCount; got != 2 {
		t.Errorf("ChunkCount = %d, expected 2", got)
	}
}

func TestWebSocket_GetChunkCompressed(t *testing.T) {
	s := newTestServer(t, testutil.SmallDictionary, nil)
	client := s.connect(t)

	plain := client.Request("get_chunk", GetChunkRequest{ChunkRow: intp(1), ChunkCol: intp(1)}, wsTimeout)
	packed := client.Request("get_chunk", GetChunkRequest{ChunkRow: intp(1), ChunkCol: intp(1), Compress: true}, wsTimeout)

	var a, b ChunkDataPayload
	testutil.Decode(t, plain, &a)
	testutil.Decode(t, packed, &b)
	if b.Rows != nil || b.Compressed == nil {
		t.Fatalf("expected compressed payload only, got %+v", b)
	}
	if b.Compressed.Format != compression.FormatLZ4 {
		t.Errorf("format = %q", b.Compressed.Format)
	}

	rows, err := compression.DecompressRows(b.Compressed)
	if err != nil {
		t.Fatalf("DecompressRows failed: %v", err)
	}
	for i := range a.Rows {
		if rows[i] != a.Rows[i] {
			t.Errorf("row %d = %q, expected %q", i, rows[i], a.Rows[i])
		}
	}
}

func TestWebSocket_GetRegionAcrossNegativeChunks(t *testing.T) {
	s := newTestServer(t, testutil.SmallDictionary, nil)
	client := s.connect(t)

	msg := client.Request("get_region", GetRegionRequest{
		StartRow: intp(-1), StartCol: intp(-1), EndRow: intp(0), EndCol: intp(0),
	}, wsTimeout)
	if msg.Type != "region_data" {
		t.Fatalf("got %s (%s), expected region_data", msg.Type, msg.Message)
	}

	var region RegionDataPayload
	testutil.Decode(t, msg, &region)
	if len(region.Rows) != 2 || len(region.Rows[0]) != 2 || len(region.Rows[1]) != 2 {
		t.Fatalf("rows = %q, expected 2x2", region.Rows)
	}
	if got := s.world.Stats().ChunkCount; got != 4 {
		t.Errorf("ChunkCount = %d, expected 4", got)
	}
	if region.Rows[1][1] != s.world.GetCell(gridmap.Position{}) {
		t.Error("bottom-right cell does not match cell (0,0)")
	}
}

func TestWebSocket_GetRegionTooLarge(t *testing.T) {
	s := newTestServer(t, testutil.SmallDictionary, nil)
	client := s.connect(t)

	msg := client.Request("get_region", GetRegionRequest{
		StartRow: intp(0), StartCol: intp(0), EndRow: intp(1000), EndCol: intp(1000),
	}, wsTimeout)
	if msg.Type != "error" || msg.Code != CodeRegionTooLarge {
		t.Fatalf("got %+v, expected RegionTooLarge error", msg)
	}
	if got := s.world.Stats().ChunkCount; got != 1 {
		t.Errorf("rejected region generated chunks: ChunkCount = %d", got)
	}
}

func TestWebSocket_ExtremeCoordinates(t *testing.T) {
	s := newTestServer(t, testutil.SmallDictionary, nil)
	client := s.connect(t)

	regions := []GetRegionRequest{
		{StartRow: intp(0), StartCol: intp(0), EndRow: intp(1<<32 - 1), EndCol: intp(1<<32 - 1)},
		{StartRow: intp(math.MinInt), StartCol: intp(math.MinInt), EndRow: intp(math.MaxInt), EndCol: intp(math.MaxInt)},
	}
	for _, req := range regions {
		msg := client.Request("get_region", req, wsTimeout)
		if msg.Type != "error" || msg.Code != CodeRegionTooLarge {
			t.Fatalf("get_region %v..%v: got %+v, expected RegionTooLarge", *req.StartRow, *req.EndRow, msg)
		}
	}

	msg := client.Request("subscribe_viewport", SubscribeViewportRequest{
		StartRow: intp(0), StartCol: intp(0), EndRow: intp(10<<32 - 1), EndCol: intp(10<<32 - 1),
	}, wsTimeout)
	if msg.Type != "error" || msg.Code != CodeRegionTooLarge {
		t.Fatalf("subscribe_viewport: got %+v, expected RegionTooLarge", msg)
	}

	// A small region at the edge of the coordinate space still works.
	edge := client.Request("get_region", GetRegionRequest{
		StartRow: intp(math.MaxInt - 2), StartCol: intp(math.MinInt), EndRow: intp(math.MaxInt), EndCol: intp(math.MinInt + 2),
	}, wsTimeout)
	if edge.Type != "region_data" {
		t.Fatalf("edge region: got %+v, expected region_data", edge)
	}
	var region RegionDataPayload
	testutil.Decode(t, edge, &region)
	if len(region.Rows) != 3 || len(region.Rows[0]) != 3 {
		t.Errorf("edge region rows = %q, expected 3x3", region.Rows)
	}

	// The world must still accept writers after the rejected requests.
	chunk := client.Request("get_chunk", GetChunkRequest{ChunkRow: intp(7), ChunkCol: intp(7)}, wsTimeout)
	if chunk.Type != "chunk_data" {
		t.Fatalf("get_chunk after rejected requests: got %+v", chunk)
	}
}

func TestWebSocketHandlers_DispatchRecoversPanic(t *testing.T) {
	// A handler set without a world panics on any world access.
	h := &WebSocketHandlers{}
	conn := &WebSocketConnection{
		sessionID: "panicking",
		send:      make(chan []byte, 1),
	}

	h.dispatch(conn, &WebSocketMessage{Type: "get_stats", ID: "req-1"})

	select {
	case raw := <-conn.send:
		var reply WebSocketError
		if err := json.Unmarshal(raw, &reply); err != nil {
			t.Fatalf("reply is not JSON: %v", err)
		}
		if reply.Type != "error" || reply.ID != "req-1" || reply.Code != CodeInternalError {
			t.Errorf("reply = %+v, expected InternalError for req-1", reply)
		}
	default:
		t.Fatal("no error queued after a handler panic")
	}
}

func TestWebSocket_ValidateBroadcastsToEverySession(t *testing.T) {
	s := newTestServer(t, testutil.SingleWord, nil)
	finder := s.connect(t)
	watcher := s.connect(t)

	placement := testutil.FirstPlacement(t, s.world)

	result := finder.Request("validate", ValidateRequest{Coords: placement.Cells}, wsTimeout)
	if result.Type != "validation_result" {
		t.Fatalf("got %s (%s), expected validation_result", result.Type, result.Message)
	}
	var payload ValidationResultPayload
	testutil.Decode(t, result, &payload)
	if !payload.Found || payload.Word != "TEST" {
		t.Fatalf("validation = %+v, expected TEST found", payload)
	}

	broadcast, err := watcher.WaitFor("word_found", wsTimeout)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	var event world.FoundWord
	testutil.Decode(t, broadcast, &event)
	if event.ID != placement.ID || len(event.Coords) != len(placement.Cells) {
		t.Errorf("broadcast = %+v, expected placement %s", event, placement.ID)
	}

	// Claimed words stay claimed, in either direction.
	again := finder.Request("validate", ValidateRequest{Coords: testutil.Reversed(placement.Cells)}, wsTimeout)
	testutil.Decode(t, again, &payload)
	if payload.Found {
		t.Error("second claim of the same placement succeeded")
	}
}

func TestWebSocket_ValidateMiss(t *testing.T) {
	s := newTestServer(t, testutil.SingleWord, nil)
	client := s.connect(t)

	tests := []struct {
		name   string
		coords []gridmap.Position
	}{
		{"empty selection", []gridmap.Position{}},
		{"missing coords", nil},
		{"far away cells", []gridmap.Position{{Row: 500, Col: 500}, {Row: 500, Col: 501}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := client.Request("validate", ValidateRequest{Coords: tt.coords}, wsTimeout)
			if msg.Type != "validation_result" {
				t.Fatalf("got %s (%s), expected validation_result", msg.Type, msg.Message)
			}
			var payload ValidationResultPayload
			testutil.Decode(t, msg, &payload)
			if payload.Found {
				t.Error("expected found=false")
			}
			if payload.Coords == nil {
				t.Error("coords should echo as a list")
			}
		})
	}
	if got := s.world.Stats().FoundCount; got != 0 {
		t.Errorf("FoundCount = %d, expected 0", got)
	}
}

// Two sessions race to claim the same word: exactly one wins, and each
// session hears about it exactly once.
func TestWebSocket_ConcurrentValidate(t *testing.T) {
	s := newTestServer(t, testutil.SingleWord, nil)
	clients := []*testutil.WSClient{s.connect(t), s.connect(t)}
	placement := testutil.FirstPlacement(t, s.world)

	ids := make([]string, len(clients))
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c *testutil.WSClient) {
			defer wg.Done()
			id := c.Send("validate", ValidateRequest{Coords: placement.Cells})
			mu.Lock()
			ids[i] = id
			mu.Unlock()
		}(i, c)
	}
	wg.Wait()

	wins := 0
	for i, c := range clients {
		wordFound := 0
		gotResult := false
		for !gotResult {
			msg, err := c.Next(wsTimeout)
			if err != nil {
				t.Fatalf("client %d: %v", i, err)
			}
			switch {
			case msg.Type == "word_found":
				wordFound++
			case msg.ID == ids[i]:
				var payload ValidationResultPayload
				testutil.Decode(t, msg, &payload)
				if payload.Found {
					wins++
				}
				gotResult = true
			}
		}
		for _, msg := range c.Drain(300 * time.Millisecond) {
			if msg.Type == "word_found" {
				wordFound++
			}
		}
		if wordFound != 1 {
			t.Errorf("client %d received %d word_found messages, expected 1", i, wordFound)
		}
	}
	if wins != 1 {
		t.Errorf("%d sessions won the claim, expected 1", wins)
	}
}

func TestWebSocket_ProtocolErrors(t *testing.T) {
	s := newTestServer(t, testutil.SingleWord, nil)
	client := s.connect(t)

	client.WriteText([]byte("not json"))
	msg, err := client.WaitFor("error", wsTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Code != CodeInvalidMessageFormat {
		t.Errorf("code = %s, expected %s", msg.Code, CodeInvalidMessageFormat)
	}

	tests := []struct {
		name    string
		msgType string
		data    any
		code    string
	}{
		{"unknown type", "launch_rocket", nil, CodeUnknownMessageType},
		{"missing chunk coordinates", "get_chunk", map[string]int{"chunkRow": 1}, CodeValidationError},
		{"wrong field type", "get_chunk", map[string]string{"chunkRow": "one"}, CodeInvalidMessageFormat},
		{"missing region corner", "get_region", map[string]int{"startRow": 0, "startCol": 0, "endRow": 1}, CodeValidationError},
		{"bad subscription id", "update_viewport", UpdateViewportRequest{
			SubscriptionID: "nope", StartRow: intp(0), StartCol: intp(0), EndRow: intp(0), EndCol: intp(0),
		}, CodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := client.Request(tt.msgType, tt.data, wsTimeout)
			if msg.Type != "error" || msg.Code != tt.code {
				t.Errorf("got %+v, expected %s error", msg, tt.code)
			}
		})
	}

	// The session survives errors.
	if msg := client.Request("ping", nil, wsTimeout); msg.Type != "pong" {
		t.Errorf("got %s, expected pong", msg.Type)
	}
}

func TestWebSocket_RateLimited(t *testing.T) {
	s := newTestServer(t, testutil.SingleWord, func(cfg *config.Config) {
		cfg.RateLimit.WSPerSecond = 0.001
		cfg.RateLimit.WSBurst = 1
	})
	client := s.connect(t)

	if msg := client.Request("ping", nil, wsTimeout); msg.Type != "pong" {
		t.Fatalf("first request: got %s, expected pong", msg.Type)
	}
	msg := client.Request("ping", nil, wsTimeout)
	if msg.Type != "error" || msg.Code != CodeRateLimited {
		t.Errorf("got %+v, expected RateLimited error", msg)
	}
}

func TestWebSocket_Viewport(t *testing.T) {
	s := newTestServer(t, testutil.SmallDictionary, nil)
	client := s.connect(t)

	ack := client.Request("subscribe_viewport", SubscribeViewportRequest{
		StartRow: intp(0), StartCol: intp(0), EndRow: intp(15), EndCol: intp(5),
	}, wsTimeout)
	if ack.Type != "viewport_ack" {
		t.Fatalf("got %+v, expected viewport_ack", ack)
	}
	var plan ViewportAckPayload
	testutil.Decode(t, ack, &plan)
	if len(plan.Chunks) != 2 {
		t.Fatalf("chunks = %v, expected 2", plan.Chunks)
	}
	for range plan.Chunks {
		if _, err := client.WaitFor("chunk_data", wsTimeout); err != nil {
			t.Fatal(err)
		}
	}

	update := UpdateViewportRequest{
		SubscriptionID: plan.SubscriptionID,
		StartRow:       intp(0), StartCol: intp(10), EndRow: intp(15), EndCol: intp(15),
	}
	deltaMsg := client.Request("update_viewport", update, wsTimeout)
	if deltaMsg.Type != "viewport_delta" {
		t.Fatalf("got %+v, expected viewport_delta", deltaMsg)
	}
	var delta streaming.ChunkDelta
	testutil.Decode(t, deltaMsg, &delta)
	if len(delta.Added) != 2 || len(delta.Removed) != 2 {
		t.Errorf("delta = %+v, expected 2 added and 2 removed", delta)
	}
	for range delta.Added {
		msg, err := client.WaitFor("chunk_data", wsTimeout)
		if err != nil {
			t.Fatal(err)
		}
		var chunk ChunkDataPayload
		testutil.Decode(t, msg, &chunk)
		if chunk.ChunkCol != 1 {
			t.Errorf("pushed chunk %d_%d, expected column 1", chunk.ChunkRow, chunk.ChunkCol)
		}
	}

	update.SubscriptionID = "00000000-0000-4000-8000-000000000000"
	missing := client.Request("update_viewport", update, wsTimeout)
	if missing.Type != "error" || missing.Code != CodeSubscriptionNotFound {
		t.Errorf("got %+v, expected SubscriptionNotFound", missing)
	}
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	if originAllowed("http://evil.example", []string{"http://localhost:5173"}) {
		t.Error("foreign origin allowed")
	}
	if !originAllowed("", nil) {
		t.Error("non-browser client rejected")
	}
	if !originAllowed("http://anything", []string{"*"}) {
		t.Error("wildcard did not allow origin")
	}
}
