package compiler

import (
	"fmt"
	"log/slog"

	"github.com/roach88/minigraph/internal/graph"
	"github.com/roach88/minigraph/internal/rules"
)

// QueryResult pairs a named query with its binding environments, in
// derivation order.
type QueryResult struct {
	Name     string
	Bindings []graph.Env
}

// Execute drives a compiled program through the public graph surface:
// rules register first (so inserts chain through them), inserts run inside
// a single all-or-nothing batch, disables assert their retraction
// meta-facts, and finally each query evaluates one-shot against the
// resulting log.
func Execute(g *graph.Graph, reg *rules.Registry, p *Program) ([]QueryResult, error) {
	for _, rule := range p.Rules {
		if err := reg.Register(rule); err != nil {
			return nil, fmt.Errorf("register rule: %w", err)
		}
	}

	if len(p.Inserts) > 0 {
		err := g.Batch(func() error {
			for _, a := range p.Inserts {
				if a.Context != nil {
					g.AppendIn(a.Source, a.Attribute, a.Value, a.Context)
				} else {
					g.Append(a.Source, a.Attribute, a.Value)
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("insert batch: %w", err)
		}
	}

	for _, name := range p.Disables {
		reg.Disable(name)
	}

	results := make([]QueryResult, 0, len(p.Queries))
	for _, q := range p.Queries {
		envs, err := g.Query(q.Pattern)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", q.Name, err)
		}
		results = append(results, QueryResult{Name: q.Name, Bindings: envs})
	}

	slog.Debug("program executed",
		"rules", len(p.Rules),
		"inserts", len(p.Inserts),
		"queries", len(p.Queries),
		"facts", g.Len(),
	)
	return results, nil
}
