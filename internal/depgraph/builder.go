// Package depgraph builds a DependencyGraph by depth-first traversal of a
// package's declared dependencies, per SPEC_FULL.md §4.4. It depends only
// on a narrow Resolver interface so it can be tested against a fixture
// without a real upstream, following the teacher framework's habit of
// depending on core.Logger-shaped interfaces rather than concrete clients.
package depgraph

import (
	"context"
	"fmt"

	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
)

const maxDepth = 10

// Edge names one declared dependency and the constraint expression it was
// declared with.
type Edge struct {
	Name       string
	Constraint string
}

// Resolver is everything the builder needs from the registry client.
type Resolver interface {
	// ResolveVersion picks the concrete version of pkg that best satisfies
	// constraint, per spec.md §4.4's resolution rule: newest version (by
	// parsed semver descending) whose parsed form satisfies constraint; if
	// constraint does not parse or is "any", the latest stable falling
	// back to the latest overall.
	ResolveVersion(ctx context.Context, pkg, constraint string) (string, error)
	// Dependencies returns pkg@version's declared runtime dependencies,
	// and its dev dependencies when includeDev is true.
	Dependencies(ctx context.Context, pkg, version string, includeDev bool) (runtime, dev []Edge, err error)
}

type pathKey struct {
	pkg     string
	version string
}

// Build performs the depth-first build described in spec.md §4.4 and
// returns a single-rooted DependencyGraph.
func Build(ctx context.Context, resolver Resolver, rootPackage, rootConstraint string, includeDev bool) (domain.DependencyGraph, error) {
	rootVersion, err := resolver.ResolveVersion(ctx, rootPackage, rootConstraint)
	if err != nil {
		return domain.DependencyGraph{}, fmt.Errorf("resolving root %q: %w", rootPackage, err)
	}

	b := &builder{resolver: resolver, includeDev: includeDev}
	path := map[pathKey]bool{{pkg: rootPackage, version: rootVersion}: true}

	root, err := b.node(ctx, rootPackage, rootConstraint, rootVersion, true, 0, path)
	if err != nil {
		return domain.DependencyGraph{}, err
	}

	return domain.NewDependencyGraph(rootPackage, rootVersion, []domain.DependencyNode{root}, b.issues)
}

type builder struct {
	resolver   Resolver
	includeDev bool
	issues     []string
}

func (b *builder) node(ctx context.Context, pkg, requested, resolved string, isDirect bool, depth int, path map[pathKey]bool) (domain.DependencyNode, error) {
	if depth >= maxDepth {
		b.issues = append(b.issues, fmt.Sprintf("Dependency depth exceeded limit for %s (%s)", pkg, requested))
		return domain.NewDependencyNode(pkg, requested, resolved, isDirect, nil)
	}

	runtime, dev, err := b.resolver.Dependencies(ctx, pkg, resolved, b.includeDev && depth == 0)
	if err != nil {
		b.issues = append(b.issues, fmt.Sprintf("Failed to resolve dependency '%s' (%s): %s", pkg, requested, err.Error()))
		return domain.NewDependencyNode(pkg, requested, resolved, isDirect, nil)
	}

	children := make([]domain.DependencyNode, 0, len(runtime)+len(dev))
	children = append(children, b.resolveChildren(ctx, runtime, depth, path)...)
	if depth == 0 && b.includeDev {
		children = append(children, b.resolveChildren(ctx, dev, depth, path)...)
	}

	return domain.NewDependencyNode(pkg, requested, resolved, isDirect, children)
}

func (b *builder) resolveChildren(ctx context.Context, edges []Edge, depth int, path map[pathKey]bool) []domain.DependencyNode {
	children := make([]domain.DependencyNode, 0, len(edges))
	for _, edge := range edges {
		childVersion, err := b.resolver.ResolveVersion(ctx, edge.Name, edge.Constraint)
		if err != nil {
			b.issues = append(b.issues, fmt.Sprintf("Failed to resolve dependency '%s' (%s): %s", edge.Name, edge.Constraint, err.Error()))
			continue
		}

		key := pathKey{pkg: edge.Name, version: childVersion}
		if path[key] {
			b.issues = append(b.issues, fmt.Sprintf("Detected circular dependency at %s@%s", edge.Name, childVersion))
			childNode, err := domain.NewDependencyNode(edge.Name, edge.Constraint, childVersion, false, nil)
			if err == nil {
				children = append(children, childNode)
			}
			continue
		}

		path[key] = true
		childNode, err := b.node(ctx, edge.Name, edge.Constraint, childVersion, false, depth+1, path)
		delete(path, key)
		if err != nil {
			b.issues = append(b.issues, fmt.Sprintf("Failed to resolve dependency '%s' (%s): %s", edge.Name, edge.Constraint, err.Error()))
			continue
		}
		children = append(children, childNode)
	}
	return children
}
