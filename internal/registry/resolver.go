package registry

import (
	"context"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mbilalbenli/pub-dev-mcp/internal/depgraph"
)

// ResolveVersion and Dependencies make HTTPClient satisfy
// depgraph.Resolver, per spec.md §4.4's resolution rule.

// ResolveVersion picks the newest version of pkg (by parsed semver
// descending) whose parsed form satisfies constraint. If constraint does
// not parse or is "any", it picks the latest stable version, falling back
// to the latest version overall.
func (c *HTTPClient) ResolveVersion(ctx context.Context, pkg, constraint string) (string, error) {
	history, err := c.VersionHistory(ctx, pkg)
	if err != nil {
		return "", err
	}

	trimmed := strings.TrimSpace(constraint)
	if trimmed != "" && !strings.EqualFold(trimmed, "any") {
		if parsedConstraint, err := semver.NewConstraint(trimmed); err == nil {
			type candidate struct {
				version string
				parsed  *semver.Version
			}
			var candidates []candidate
			for _, v := range history {
				parsed, err := semver.NewVersion(v.Version())
				if err != nil {
					continue
				}
				if parsedConstraint.Check(parsed) {
					candidates = append(candidates, candidate{version: v.Version(), parsed: parsed})
				}
			}
			if len(candidates) > 0 {
				sort.Slice(candidates, func(i, j int) bool { return candidates[i].parsed.GreaterThan(candidates[j].parsed) })
				return candidates[0].version, nil
			}
		}
	}

	for _, v := range history {
		if !v.IsPrerelease() {
			return v.Version(), nil
		}
	}
	return history[0].Version(), nil
}

// Dependencies fetches pkg@version's pubspec dependency edges.
func (c *HTTPClient) Dependencies(ctx context.Context, pkg, version string, includeDev bool) ([]depgraph.Edge, []depgraph.Edge, error) {
	raw, err := c.InspectDependencies(ctx, pkg, version, includeDev)
	if err != nil {
		return nil, nil, err
	}

	runtime := make([]depgraph.Edge, len(raw.Dependencies))
	for i, e := range raw.Dependencies {
		runtime[i] = depgraph.Edge{Name: e.Name, Constraint: e.Constraint}
	}
	dev := make([]depgraph.Edge, len(raw.DevDependencies))
	for i, e := range raw.DevDependencies {
		dev[i] = depgraph.Edge{Name: e.Name, Constraint: e.Constraint}
	}
	return runtime, dev, nil
}
