package tools

import (
	"context"
	"encoding/json"

	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
)

// PackageDetailsRequest is package_details' bound parameter type.
type PackageDetailsRequest struct {
	Package string `json:"package"`
}

func newPackageDetailsDescriptor(deps Deps) Descriptor {
	return Descriptor{
		Name:        "package_details",
		Description: "Fetch a package's full metadata: description, publisher, links, and latest stable version.",
		Bind: func(params json.RawMessage) (interface{}, error) {
			req := PackageDetailsRequest{}
			if err := bindJSON(params, &req); err != nil {
				return nil, err
			}
			return req, nil
		},
		Validate: func(request interface{}) []FieldError {
			req := request.(PackageDetailsRequest)
			var errs []FieldError
			if err := validatePackageName("package", req.Package); err != nil {
				errs = append(errs, *err)
			}
			return errs
		},
		Execute: func(ctx context.Context, request interface{}) (interface{}, error) {
			req := request.(PackageDetailsRequest)
			return deps.Client.PackageDetails(ctx, req.Package)
		},
		Encode: func(response interface{}) (json.RawMessage, error) {
			return encodeJSON(response.(domain.PackageDetails))
		},
	}
}
