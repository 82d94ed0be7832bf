package pipeline

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/event"
	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
)

// celFilter wraps a compiled CEL program used as a declarative drop filter
// alongside the programmatic BeforeSend hook. When disabled, Eval always
// returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

// newCELFilter compiles the expression. A compile error disables the filter
// silently (missing-integration taxonomy: degraded telemetry, never a fault
// surfaced to the host).
func newCELFilter(expr string, logger logpkg.Logger) celFilter {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{}
	}
	env, err := cel.NewEnv(
		cel.Variable("type", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("session_id", cel.StringType),
		cel.Variable("page", cel.StringType),
		// Parsed event data for field-level filtering
		cel.Variable("data", cel.DynType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		logger.Warn("event filter disabled", logpkg.Err(err))
		return celFilter{}
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		logger.Warn("event filter disabled", logpkg.Err(iss.Err()))
		return celFilter{}
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		logger.Warn("event filter disabled", logpkg.Err(iss2.Err()))
		return celFilter{}
	}
	prog, err := env.Program(checked)
	if err != nil {
		logger.Warn("event filter disabled", logpkg.Err(err))
		return celFilter{}
	}
	return celFilter{prog: prog, enabled: true}
}

// Eval reports whether the event should be kept. Evaluation errors drop the
// event. When disabled, returns true.
func (f celFilter) Eval(ev *event.Event) bool {
	if !f.enabled {
		return true
	}
	var data interface{}
	if ev.Data != nil {
		data = ev.Data
	} else {
		data = map[string]interface{}{}
	}
	out, _, err := f.prog.Eval(map[string]interface{}{
		"type":       string(ev.Type),
		"name":       ev.Name,
		"ts_ms":      ev.TimestampMs,
		"session_id": ev.SessionID,
		"page":       ev.Context.Page,
		"data":       data,
		"now_ms":     time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
