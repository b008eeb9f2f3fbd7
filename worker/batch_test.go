package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platenhq/platen/prompt"
	"github.com/platenhq/platen/provider"
)

func markedPayloads(n int) []any {
	payloads := make([]any, n)
	for i := range payloads {
		payloads[i] = map[string]any{"marker": fmt.Sprintf("item-%d", i)}
	}
	return payloads
}

// respondByMarker echoes the payload marker so tests can verify that
// result slots line up with payload indexes.
func respondByMarker(failIdx int) func(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	return func(ctx context.Context, req *provider.Request) (*provider.Response, error) {
		user := req.Messages[1].Content
		for i := 0; i < 32; i++ {
			marker := fmt.Sprintf("item-%d", i)
			if !strings.Contains(user, `"`+marker+`"`) {
				continue
			}
			if i == failIdx {
				return nil, &provider.BackendError{Provider: "fake", StatusCode: 500, Message: "boom"}
			}
			return &provider.Response{Text: "ok-" + marker, Model: "fake-1"}, nil
		}
		return nil, fmt.Errorf("no marker in prompt: %s", user)
	}
}

func TestBatchIndexing(t *testing.T) {
	fake := &fakeProvider{respond: respondByMarker(2)}
	w := New(newFakeRegistry(t, "fake", fake),
		WithProvider("fake"),
		WithMaxConcurrent(2))

	results, err := w.Batch(context.Background(), markedPayloads(5), prompt.Selection{Type: prompt.TypeAnalyze})
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, res := range results {
		if i == 2 {
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "boom")
			continue
		}
		assert.True(t, res.Success, "item %d", i)
		assert.Equal(t, fmt.Sprintf("ok-item-%d", i), res.Output)
	}
}

func TestBatchConcurrencyCeiling(t *testing.T) {
	var inFlight, peak atomic.Int64
	fake := &fakeProvider{
		respond: func(ctx context.Context, req *provider.Request) (*provider.Response, error) {
			cur := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(25 * time.Millisecond)
			return &provider.Response{Text: "ok", Model: "fake-1"}, nil
		},
	}
	w := New(newFakeRegistry(t, "fake", fake),
		WithProvider("fake"),
		WithMaxConcurrent(3))

	results, err := w.Batch(context.Background(), markedPayloads(8), prompt.Selection{Type: prompt.TypeAnalyze})
	require.NoError(t, err)
	require.Len(t, results, 8)

	assert.LessOrEqual(t, peak.Load(), int64(3))
	assert.GreaterOrEqual(t, peak.Load(), int64(2))
}

func TestBatchCancellation(t *testing.T) {
	fake := &fakeProvider{
		respond: func(ctx context.Context, req *provider.Request) (*provider.Response, error) {
			<-ctx.Done()
			return nil, &provider.BackendError{Provider: "fake", Err: ctx.Err()}
		},
	}
	w := New(newFakeRegistry(t, "fake", fake),
		WithProvider("fake"),
		WithMaxConcurrent(2))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()

	results, err := w.Batch(ctx, markedPayloads(6), prompt.Selection{Type: prompt.TypeAnalyze})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}

func TestBatchUnknownProvider(t *testing.T) {
	fake := &fakeProvider{}
	w := New(newFakeRegistry(t, "fake", fake), WithProvider("nope"))

	results, err := w.Batch(context.Background(), markedPayloads(3), prompt.Selection{Type: prompt.TypeAnalyze})
	require.Error(t, err)

	var cfgErr *provider.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Nil(t, results)
	assert.Equal(t, 0, fake.requestCount())
}

func TestBatchEmpty(t *testing.T) {
	fake := &fakeProvider{}
	w := New(newFakeRegistry(t, "fake", fake), WithProvider("fake"))

	results, err := w.Batch(context.Background(), nil, prompt.Selection{Type: prompt.TypeAnalyze})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBatchMalformedItemIsolated(t *testing.T) {
	fake := &fakeProvider{}
	w := New(newFakeRegistry(t, "fake", fake),
		WithProvider("fake"),
		WithMaxConcurrent(2))

	payloads := []any{
		map[string]any{"a": 1},
		"{definitely not json",
		map[string]any{"c": 3},
	}
	results, err := w.Batch(context.Background(), payloads, prompt.Selection{Type: prompt.TypeAnalyze})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "not valid JSON")
	assert.True(t, results[2].Success)
	assert.Equal(t, 2, fake.requestCount())
}
