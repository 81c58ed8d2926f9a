package tools

import (
	"context"
	"encoding/json"

	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
)

// PublisherPackagesRequest is publisher_packages' bound parameter type.
type PublisherPackagesRequest struct {
	Publisher string `json:"publisher"`
}

// PublisherPackagesResponse lists every package attributed to a publisher.
type PublisherPackagesResponse struct {
	Publisher string                  `json:"publisher"`
	Packages  []domain.PackageSummary `json:"packages"`
}

func newPublisherPackagesDescriptor(deps Deps) Descriptor {
	return Descriptor{
		Name:        "publisher_packages",
		Description: "List every package attributed to a verified publisher.",
		Bind: func(params json.RawMessage) (interface{}, error) {
			req := PublisherPackagesRequest{}
			if err := bindJSON(params, &req); err != nil {
				return nil, err
			}
			return req, nil
		},
		Validate: func(request interface{}) []FieldError {
			req := request.(PublisherPackagesRequest)
			var errs []FieldError
			if err := validatePublisherID("publisher", req.Publisher); err != nil {
				errs = append(errs, *err)
			}
			return errs
		},
		Execute: func(ctx context.Context, request interface{}) (interface{}, error) {
			req := request.(PublisherPackagesRequest)
			packages, err := deps.Client.PublisherPackages(ctx, req.Publisher)
			if err != nil {
				return nil, err
			}
			return PublisherPackagesResponse{Publisher: req.Publisher, Packages: packages}, nil
		},
		Encode: func(response interface{}) (json.RawMessage, error) {
			return encodeJSON(response.(PublisherPackagesResponse))
		},
	}
}
