package tools

import (
	"context"
	"encoding/json"

	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
)

// LatestVersionRequest is latest_version's bound parameter type.
type LatestVersionRequest struct {
	Package string `json:"package"`
}

func newLatestVersionDescriptor(deps Deps) Descriptor {
	return Descriptor{
		Name:        "latest_version",
		Description: "Look up the newest stable release of a package.",
		Bind: func(params json.RawMessage) (interface{}, error) {
			req := LatestVersionRequest{}
			if err := bindJSON(params, &req); err != nil {
				return nil, err
			}
			return req, nil
		},
		Validate: func(request interface{}) []FieldError {
			req := request.(LatestVersionRequest)
			var errs []FieldError
			if err := validatePackageName("package", req.Package); err != nil {
				errs = append(errs, *err)
			}
			return errs
		},
		Execute: func(ctx context.Context, request interface{}) (interface{}, error) {
			req := request.(LatestVersionRequest)
			return deps.Client.LatestVersion(ctx, req.Package)
		},
		Encode: func(response interface{}) (json.RawMessage, error) {
			result := response.(domain.VersionDetail)
			return encodeJSON(result)
		},
	}
}
