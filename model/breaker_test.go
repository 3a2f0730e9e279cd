package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuraloverlay/apex-go-sdk/core"
	"github.com/neuraloverlay/apex-go-sdk/logging"
)

type stubModel struct {
	err   error
	calls int
}

func (s *stubModel) Name() string { return "stub" }

func (s *stubModel) Complete(ctx context.Context, req *Request) (*Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &Response{Text: "ok", Usage: core.TokenUsage{InputTokens: 1, OutputTokens: 2}}, nil
}

func TestWithBreaker_PassesThrough(t *testing.T) {
	stub := &stubModel{}
	m := WithBreaker(stub, DefaultBreakerConfig(), logging.NoOpLogger{})

	assert.Equal(t, "stub", m.Name())

	resp, err := m.Complete(context.Background(), &Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 3, resp.Usage.Total())
}

func TestWithBreaker_OpensAfterFailures(t *testing.T) {
	stub := &stubModel{err: errors.New("backend down")}
	m := WithBreaker(stub, DefaultBreakerConfig(), logging.NoOpLogger{})

	// Trip threshold: at least 3 requests with 60% failures
	for i := 0; i < 5; i++ {
		_, err := m.Complete(context.Background(), &Request{Prompt: "hi"})
		assert.Error(t, err)
	}

	callsWhenOpen := stub.calls
	_, err := m.Complete(context.Background(), &Request{Prompt: "hi"})
	assert.Error(t, err)
	assert.Equal(t, callsWhenOpen, stub.calls, "open breaker should fail fast without calling the backend")
}
