package render

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEngine returns the queued results in order and counts calls.
type scriptedEngine struct {
	results []error
	calls   atomic.Int32
	markup  string
}

func (e *scriptedEngine) PrintToPDF(ctx context.Context, markup string, opts PageOptions) ([]byte, error) {
	n := int(e.calls.Add(1)) - 1
	e.markup = markup
	if n < len(e.results) && e.results[n] != nil {
		return nil, e.results[n]
	}
	return []byte("%PDF-1.4 fake"), nil
}

func newTestRenderer(engine Engine, tmpl *Template, reg prometheus.Registerer) *Renderer {
	var m *Metrics
	if reg != nil {
		m = NewMetrics(reg)
	}
	r := NewRenderer(engine, tmpl, Options{Timeout: time.Second}, nil, m)
	r.now = func() time.Time { return fixedNow }
	return r
}

func TestRender_RetryPolicy(t *testing.T) {
	tests := []struct {
		name       string
		results    []error
		wantCalls  int32
		wantReason Reason
	}{
		{"success first try", nil, 1, ""},
		{"timeout then success", []error{Fail(RenderTimeout, errors.New("slow"))}, 2, ""},
		{"comm error then success", []error{Fail(EngineCommError, errors.New("ws closed"))}, 2, ""},
		{"comm error twice", []error{Fail(EngineCommError, errors.New("a")), Fail(EngineCommError, errors.New("b"))}, 2, EngineCommError},
		{"timeout twice", []error{Fail(RenderTimeout, nil), Fail(RenderTimeout, nil)}, 2, RenderTimeout},
		{"launch failure not retried", []error{Fail(EngineUnavailable, errors.New("chrome not found"))}, 1, EngineUnavailable},
		{"untagged error is unknown", []error{errors.New("weird")}, 1, Unknown},
		{"bare deadline is timeout", []error{context.DeadlineExceeded, context.DeadlineExceeded}, 2, RenderTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &scriptedEngine{results: tt.results}
			pdf, err := newTestRenderer(engine, nil, nil).Render(context.Background(), sampleDoc(t))

			assert.Equal(t, tt.wantCalls, engine.calls.Load())
			if tt.wantReason == "" {
				require.NoError(t, err)
				assert.Equal(t, "%PDF-1.4 fake", string(pdf))
				return
			}
			require.Error(t, err)
			assert.Nil(t, pdf)
			var f *Failure
			require.ErrorAs(t, err, &f)
			assert.Equal(t, tt.wantReason, f.Reason)
		})
	}
}

func TestRender_PerAttemptTimeout(t *testing.T) {
	engine := EngineFunc(func(ctx context.Context, markup string, opts PageOptions) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := NewRenderer(engine, nil, Options{Timeout: 20 * time.Millisecond}, nil, nil)

	_, err := r.Render(context.Background(), sampleDoc(t))
	assert.Equal(t, RenderTimeout, ReasonOf(err))
}

func TestRender_TemplateUnavailableSkipsEngine(t *testing.T) {
	engine := &scriptedEngine{}
	tmpl := &Template{Path: filepath.Join(t.TempDir(), "nope.html")}

	_, err := newTestRenderer(engine, tmpl, nil).Render(context.Background(), sampleDoc(t))
	assert.Equal(t, TemplateUnavailable, ReasonOf(err))
	assert.Zero(t, engine.calls.Load())
}

func TestRender_EmptyOutputIsFailure(t *testing.T) {
	engine := EngineFunc(func(ctx context.Context, markup string, opts PageOptions) ([]byte, error) {
		return nil, nil
	})
	_, err := newTestRenderer(engine, nil, nil).Render(context.Background(), sampleDoc(t))
	assert.Equal(t, Unknown, ReasonOf(err))
}

func TestRender_PassesPageOptionsAndMarkup(t *testing.T) {
	var got PageOptions
	engine := EngineFunc(func(ctx context.Context, markup string, opts PageOptions) ([]byte, error) {
		got = opts
		assert.Contains(t, markup, "INV-007")
		return []byte("%PDF"), nil
	})
	_, err := newTestRenderer(engine, nil, nil).Render(context.Background(), sampleDoc(t))
	require.NoError(t, err)

	assert.Equal(t, DefaultPage(), got)
	assert.InDelta(t, 20.0/96, got.MarginInches(), 1e-12)
	assert.True(t, got.PrintBackground)
}

func TestRender_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	engine := &scriptedEngine{results: []error{Fail(RenderTimeout, nil)}}
	r := newTestRenderer(engine, nil, reg)

	_, err := r.Render(context.Background(), sampleDoc(t))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.attempts.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.metrics.attempts.WithLabelValues(string(RenderTimeout))))
}

func TestFailure(t *testing.T) {
	cause := errors.New("exec: \"google-chrome\": executable file not found in $PATH")
	f := Fail(EngineUnavailable, cause)

	assert.ErrorIs(t, f, cause)
	assert.Contains(t, f.Error(), "EngineUnavailable")
	assert.NotContains(t, f.UserMessage(), "google-chrome")
	assert.Nil(t, Classify(nil))
	assert.Same(t, f, Classify(f))
	assert.Equal(t, Reason(""), ReasonOf(errors.New("plain")))
	assert.False(t, EngineUnavailable.Retryable())
	assert.False(t, TemplateUnavailable.Retryable())
	assert.True(t, RenderTimeout.Retryable())
}
