package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/QalbeHabib/autobase-smart-contract/internal/op"
)

// traceSnapshot converts a run's trace to a canonical-JSON-friendly map.
// Keys and values are limited to what canonical marshalling supports, and
// empty reasons are omitted so successful events stay compact.
func traceSnapshot(name string, trace []TraceEvent) map[string]any {
	events := make([]any, len(trace))
	for i, ev := range trace {
		event := map[string]any{
			"seq":       ev.Seq,
			"system":    ev.System,
			"op_type":   ev.OpType,
			"timestamp": ev.Timestamp,
			"status":    ev.Status,
		}
		if ev.Reason != "" {
			event["reason"] = ev.Reason
		}
		events[i] = event
	}
	return map[string]any{
		"scenario_name": name,
		"trace":         events,
	}
}

// RunWithGolden executes a scenario and compares its canonical trace JSON
// against testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(s)
	if err != nil {
		return nil, err
	}

	traceJSON, err := op.MarshalCanonical(traceSnapshot(s.Name, result.Trace))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, traceJSON)

	return result, nil
}
