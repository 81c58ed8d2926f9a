package tools

import (
	"context"
	"encoding/json"

	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
)

// ListVersionsRequest is list_versions' bound parameter type. Take
// defaults to 50 and is clamped to [1, 200] per spec.md §4.5.
type ListVersionsRequest struct {
	Package string `json:"package"`
	Take    int    `json:"take"`
}

// ListVersionsResponse wraps the (possibly truncated) version history in
// upstream order, newest first.
type ListVersionsResponse struct {
	Package  string                `json:"package"`
	Versions []domain.VersionDetail `json:"versions"`
}

func newListVersionsDescriptor(deps Deps) Descriptor {
	return Descriptor{
		Name:        "list_versions",
		Description: "List a package's version history, newest first.",
		Bind: func(params json.RawMessage) (interface{}, error) {
			req := ListVersionsRequest{}
			if err := bindJSON(params, &req); err != nil {
				return nil, err
			}
			req.Take = clampTake(req.Take)
			return req, nil
		},
		Validate: func(request interface{}) []FieldError {
			req := request.(ListVersionsRequest)
			var errs []FieldError
			if err := validatePackageName("package", req.Package); err != nil {
				errs = append(errs, *err)
			}
			return errs
		},
		Execute: func(ctx context.Context, request interface{}) (interface{}, error) {
			req := request.(ListVersionsRequest)
			history, err := deps.Client.VersionHistory(ctx, req.Package)
			if err != nil {
				return nil, err
			}
			if len(history) > req.Take {
				history = history[:req.Take]
			}
			return ListVersionsResponse{Package: req.Package, Versions: history}, nil
		},
		Encode: func(response interface{}) (json.RawMessage, error) {
			return encodeJSON(response.(ListVersionsResponse))
		},
	}
}
