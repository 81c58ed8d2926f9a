package tools

import (
	"strings"

	"github.com/mbilalbenli/pub-dev-mcp/internal/cache"
	"github.com/mbilalbenli/pub-dev-mcp/internal/depgraph"
	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
	"github.com/mbilalbenli/pub-dev-mcp/internal/registry"
)

// Deps bundles every collaborator the eight tool handlers need: the
// registry client (C2), the dependency resolver the graph builder needs
// (satisfied by the same *registry.HTTPClient in production), the
// score/dependency-graph caches (C3), and a logger. One Deps value is
// shared by the whole table, matching spec.md §5's process-wide-singleton
// requirement.
type Deps struct {
	Client        registry.Client
	Resolver      depgraph.Resolver
	ScoreCache    *cache.Cache[domain.ScoreInsight]
	DepGraphCache *cache.Cache[domain.DependencyGraph]
	Logger        logging.Logger
}

// scoreCacheKey and depGraphCacheKey implement the exact key formats
// spec.md §4.2 specifies.
func scoreCacheKey(pkg string) string {
	return "score:" + strings.ToUpper(pkg)
}

func depGraphCacheKey(pkg, version string, includeDev bool) string {
	key := "deps:" + strings.ToUpper(pkg) + ":" + strings.ToUpper(version)
	if includeDev {
		key += ":with-dev"
	}
	return key
}
