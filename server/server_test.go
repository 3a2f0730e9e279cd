package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraloverlay/apex-go-sdk/apex"
	"github.com/neuraloverlay/apex-go-sdk/core"
	"github.com/neuraloverlay/apex-go-sdk/logging"
)

// scriptedGenerator returns canned drafts.
type scriptedGenerator struct {
	drafts []string
	calls  int
}

func (s *scriptedGenerator) Generate(ctx context.Context, task *core.Task, guidance string) (string, core.TokenUsage, error) {
	return s.next(), core.TokenUsage{}, nil
}

func (s *scriptedGenerator) Refine(ctx context.Context, task *core.Task, draft string, critique *apex.Critique) (string, core.TokenUsage, error) {
	return s.next(), core.TokenUsage{}, nil
}

func (s *scriptedGenerator) next() string {
	i := s.calls
	s.calls++
	if i < len(s.drafts) {
		return s.drafts[i]
	}
	return "draft"
}

// scriptedCritic returns canned scores.
type scriptedCritic struct {
	scores []float64
	calls  int
}

func (s *scriptedCritic) Critique(ctx context.Context, task *core.Task, draft string) (*apex.Critique, core.TokenUsage, error) {
	score := 0.9
	if s.calls < len(s.scores) {
		score = s.scores[s.calls]
	}
	s.calls++
	c := &apex.Critique{Score: score, Verdict: apex.VerdictRevise}
	if score >= 0.85 {
		c.Verdict = apex.VerdictAccept
	}
	return c, core.TokenUsage{}, nil
}

func newTestServer(t *testing.T, gen apex.Generator, critic apex.Critic) *httptest.Server {
	t.Helper()

	optimizer := apex.NewOptimizer(gen, critic, nil, apex.WithLogger(logging.NoOpLogger{}))
	srv := New(Config{Optimizer: optimizer, Logger: logging.NoOpLogger{}})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, &scriptedGenerator{}, &scriptedCritic{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestWS_GenerateStreamsRoundsThenResult(t *testing.T) {
	gen := &scriptedGenerator{drafts: []string{"first", "second"}}
	critic := &scriptedCritic{scores: []float64{0.5, 0.9}}
	ts := newTestServer(t, gen, critic)

	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":     "generate",
		"owner_id": "owner1",
		"task": map[string]any{
			"kind":  "article",
			"brief": "write something",
		},
	}))

	// Round 1: revise
	var round1 roundFrame
	require.NoError(t, conn.ReadJSON(&round1))
	assert.Equal(t, "round", round1.Type)
	assert.Equal(t, 1, round1.Round)
	assert.Equal(t, 0.5, round1.Score)
	assert.False(t, round1.Accepted)

	// Round 2: accepted
	var round2 roundFrame
	require.NoError(t, conn.ReadJSON(&round2))
	assert.Equal(t, 2, round2.Round)
	assert.True(t, round2.Accepted)

	// Final result
	var result resultFrame
	require.NoError(t, conn.ReadJSON(&result))
	assert.Equal(t, "result", result.Type)
	assert.Equal(t, "second", result.Content)
	assert.Equal(t, 0.9, result.Score)
	assert.Equal(t, 2, result.Rounds)
}

func TestWS_MissingBrief(t *testing.T) {
	ts := newTestServer(t, &scriptedGenerator{}, &scriptedCritic{})
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": "generate",
		"task": map[string]any{"kind": "article"},
	}))

	var frame errorFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame.Type)
	assert.Contains(t, frame.Error, "brief")
}

func TestWS_UnknownMessageType(t *testing.T) {
	ts := newTestServer(t, &scriptedGenerator{}, &scriptedCritic{})
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "bogus"}))

	var frame errorFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame.Type)
	assert.Contains(t, frame.Error, "unknown message type")
}

func TestWS_MultipleRequestsOnOneConnection(t *testing.T) {
	gen := &scriptedGenerator{}
	critic := &scriptedCritic{} // Accepts everything at 0.9
	ts := newTestServer(t, gen, critic)
	conn := dialWS(t, ts)

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.WriteJSON(map[string]any{
			"type": "generate",
			"task": map[string]any{"kind": "article", "brief": "brief"},
		}))

		var round roundFrame
		require.NoError(t, conn.ReadJSON(&round))
		assert.Equal(t, "round", round.Type)

		var result resultFrame
		require.NoError(t, conn.ReadJSON(&result))
		assert.Equal(t, "result", result.Type)
	}
}
