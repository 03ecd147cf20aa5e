package engine

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/algox/ruling-class-sub004/internal/audit"
	"github.com/algox/ruling-class-sub004/internal/bind"
	"github.com/algox/ruling-class-sub004/internal/match"
)

type lookupMap map[string]Runnable

func (m lookupMap) Get(name string) Runnable { return m[name] }

var fixedTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// newTestContext binds kv pairs and returns a context recording audit
// records with a fixed run ID and wall clock.
func newTestContext(t *testing.T, kv map[string]any, opts ...ContextOption) (*Context, *audit.Recorder) {
	t.Helper()
	b, err := bind.NewBuilder().BindAll(kv).Build()
	require.NoError(t, err)

	rec := audit.NewRecorder()
	base := []ContextOption{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditSink(rec),
		WithRunID("run-test"),
		WithNow(func() time.Time { return fixedTime }),
	}
	c, err := NewContext(b, append(base, opts...)...)
	require.NoError(t, err)
	return c, rec
}

// calls records the order units ran in.
type calls []string

func (cs *calls) action(name string, params ...match.ParameterDescriptor) Action {
	return NewAction(name, func(Args) error {
		*cs = append(*cs, name)
		return nil
	}, params...)
}

func (cs *calls) condition(name string, result bool) Condition {
	return NewCondition(name, func(Args) (bool, error) {
		*cs = append(*cs, name)
		return result, nil
	})
}

func greaterThan10() Condition {
	return NewCondition("over10", func(a Args) (bool, error) {
		return Arg[int](a, 0) > 10, nil
	}, match.Param[int]("y"))
}

func units(recs []audit.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = string(r.Kind) + ":" + r.Unit + "=" + r.Outcome
	}
	return out
}
