package tools

import (
	"context"
	"encoding/json"

	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
)

// SearchPackagesRequest is search_packages' bound parameter type.
type SearchPackagesRequest struct {
	Query             string `json:"query"`
	IncludePrerelease bool   `json:"includePrerelease"`
	SDKConstraint     string `json:"sdkConstraint"`
}

func newSearchPackagesDescriptor(deps Deps) Descriptor {
	return Descriptor{
		Name:        "search_packages",
		Description: "Search pub.dev for packages matching a free-text query.",
		Bind: func(params json.RawMessage) (interface{}, error) {
			req := SearchPackagesRequest{}
			if err := bindJSON(params, &req); err != nil {
				return nil, err
			}
			return req, nil
		},
		Validate: func(request interface{}) []FieldError {
			req := request.(SearchPackagesRequest)
			var errs []FieldError
			if err := validateQuery("query", req.Query); err != nil {
				errs = append(errs, *err)
			}
			return errs
		},
		Execute: func(ctx context.Context, request interface{}) (interface{}, error) {
			req := request.(SearchPackagesRequest)
			return deps.Client.Search(ctx, req.Query, req.IncludePrerelease, req.SDKConstraint)
		},
		Encode: func(response interface{}) (json.RawMessage, error) {
			result := response.(domain.SearchResultSet)
			return encodeJSON(result)
		},
	}
}
