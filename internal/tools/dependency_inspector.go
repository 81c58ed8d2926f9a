package tools

import (
	"context"
	"encoding/json"

	"github.com/mbilalbenli/pub-dev-mcp/internal/depgraph"
	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
)

// DependencyInspectorRequest is dependency_inspector's bound parameter
// type. Version may be empty ("latest"), IncludeDevDependencies defaults
// to false.
type DependencyInspectorRequest struct {
	Package                string `json:"package"`
	Version                string `json:"version"`
	IncludeDevDependencies bool   `json:"includeDevDependencies"`
}

func newDependencyInspectorDescriptor(deps Deps) Descriptor {
	return Descriptor{
		Name:        "dependency_inspector",
		Description: "Build a cycle-safe, depth-capped dependency graph for a package version.",
		Bind: func(params json.RawMessage) (interface{}, error) {
			req := DependencyInspectorRequest{}
			if err := bindJSON(params, &req); err != nil {
				return nil, err
			}
			return req, nil
		},
		Validate: func(request interface{}) []FieldError {
			req := request.(DependencyInspectorRequest)
			var errs []FieldError
			if err := validatePackageName("package", req.Package); err != nil {
				errs = append(errs, *err)
			}
			return errs
		},
		Execute: func(ctx context.Context, request interface{}) (interface{}, error) {
			req := request.(DependencyInspectorRequest)

			constraint := req.Version
			if constraint == "" {
				constraint = "any"
			}

			build := func(ctx context.Context) (domain.DependencyGraph, error) {
				return depgraph.Build(ctx, deps.Resolver, req.Package, constraint, req.IncludeDevDependencies)
			}

			if deps.DepGraphCache == nil {
				return build(ctx)
			}

			key := depGraphCacheKey(req.Package, versionOrConstraint(req.Version), req.IncludeDevDependencies)
			return deps.DepGraphCache.Get(ctx, key, build)
		},
		Encode: func(response interface{}) (json.RawMessage, error) {
			return encodeJSON(response.(domain.DependencyGraph))
		},
	}
}

func versionOrConstraint(version string) string {
	if version == "" {
		return "latest"
	}
	return version
}
