package depgraph

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureResolver is a synthetic in-memory Resolver for depgraph tests,
// keyed by package name: depsByPkg maps pkg -> runtime edges, devByPkg
// maps pkg -> dev edges (only consulted at depth 0 by the builder).
type fixtureResolver struct {
	versions  map[string]string
	depsByPkg map[string][]Edge
	devByPkg  map[string][]Edge
	failing   map[string]bool
}

func (f *fixtureResolver) ResolveVersion(ctx context.Context, pkg, constraint string) (string, error) {
	if f.failing[pkg] {
		return "", fmt.Errorf("upstream unavailable for %s", pkg)
	}
	if v, ok := f.versions[pkg]; ok {
		return v, nil
	}
	return "1.0.0", nil
}

func (f *fixtureResolver) Dependencies(ctx context.Context, pkg, version string, includeDev bool) ([]Edge, []Edge, error) {
	runtime := f.depsByPkg[pkg]
	var dev []Edge
	if includeDev {
		dev = f.devByPkg[pkg]
	}
	return runtime, dev, nil
}

func TestBuild_SimpleTreeResolvesAllNodes(t *testing.T) {
	resolver := &fixtureResolver{
		versions: map[string]string{"a": "1.0.0", "b": "2.0.0", "c": "3.0.0"},
		depsByPkg: map[string][]Edge{
			"a": {{Name: "b", Constraint: "^2.0.0"}, {Name: "c", Constraint: "^3.0.0"}},
		},
	}

	graph, err := Build(context.Background(), resolver, "a", "any", false)
	require.NoError(t, err)
	require.Len(t, graph.Nodes(), 1)
	root := graph.Nodes()[0]
	assert.Equal(t, "a", root.Package())
	require.Len(t, root.Children(), 2)
	assert.Empty(t, graph.Issues())
}

func TestBuild_DetectsCircularDependency(t *testing.T) {
	resolver := &fixtureResolver{
		versions: map[string]string{"a": "1.0.0", "b": "2.0.0"},
		depsByPkg: map[string][]Edge{
			"a": {{Name: "b", Constraint: "^2.0.0"}},
			"b": {{Name: "a", Constraint: "^1.0.0"}},
		},
	}

	graph, err := Build(context.Background(), resolver, "a", "any", false)
	require.NoError(t, err)
	assert.Contains(t, graph.Issues(), "Detected circular dependency at a@1.0.0")
}

func TestBuild_IsolatesPerChildFailures(t *testing.T) {
	resolver := &fixtureResolver{
		versions: map[string]string{"a": "1.0.0", "b": "2.0.0"},
		depsByPkg: map[string][]Edge{
			"a": {{Name: "b", Constraint: "^2.0.0"}, {Name: "broken", Constraint: "^1.0.0"}},
		},
		failing: map[string]bool{"broken": true},
	}

	graph, err := Build(context.Background(), resolver, "a", "any", false)
	require.NoError(t, err)
	root := graph.Nodes()[0]
	require.Len(t, root.Children(), 1)
	assert.Equal(t, "b", root.Children()[0].Package())
	require.Len(t, graph.Issues(), 1)
	assert.Contains(t, graph.Issues()[0], "Failed to resolve dependency 'broken'")
}

func TestBuild_DevDependenciesOnlyAtDepthZero(t *testing.T) {
	resolver := &fixtureResolver{
		versions: map[string]string{"a": "1.0.0", "b": "2.0.0", "test_pkg": "1.0.0"},
		depsByPkg: map[string][]Edge{
			"a": {{Name: "b", Constraint: "^2.0.0"}},
		},
		devByPkg: map[string][]Edge{
			"a": {{Name: "test_pkg", Constraint: "^1.0.0"}},
			"b": {{Name: "should_not_appear", Constraint: "^1.0.0"}},
		},
	}

	graph, err := Build(context.Background(), resolver, "a", "any", true)
	require.NoError(t, err)
	root := graph.Nodes()[0]
	names := make([]string, len(root.Children()))
	for i, c := range root.Children() {
		names[i] = c.Package()
	}
	assert.ElementsMatch(t, []string{"b", "test_pkg"}, names)
}

func TestBuild_DepthCapEmitsIssueAndStops(t *testing.T) {
	versions := map[string]string{}
	deps := map[string][]Edge{}
	for i := 0; i < 15; i++ {
		name := fmt.Sprintf("pkg%d", i)
		versions[name] = "1.0.0"
		deps[name] = []Edge{{Name: fmt.Sprintf("pkg%d", i+1), Constraint: "any"}}
	}
	resolver := &fixtureResolver{versions: versions, depsByPkg: deps}

	graph, err := Build(context.Background(), resolver, "pkg0", "any", false)
	require.NoError(t, err)
	found := false
	for _, issue := range graph.Issues() {
		if strings.Contains(issue, "Dependency depth exceeded limit") {
			found = true
		}
	}
	assert.True(t, found)
}
