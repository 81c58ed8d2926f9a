package tools

import (
	"context"
	"encoding/json"

	"github.com/mbilalbenli/pub-dev-mcp/internal/compat"
	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
)

// CheckCompatibilityRequest is check_compatibility's bound parameter type.
type CheckCompatibilityRequest struct {
	Package           string  `json:"package"`
	FlutterSDK        string  `json:"flutterSdk"`
	ProjectConstraint *string `json:"projectConstraint"`
}

func newCheckCompatibilityDescriptor(deps Deps) Descriptor {
	return Descriptor{
		Name:        "check_compatibility",
		Description: "Evaluate whether a package has a version compatible with a target Flutter SDK.",
		Bind: func(params json.RawMessage) (interface{}, error) {
			req := CheckCompatibilityRequest{}
			if err := bindJSON(params, &req); err != nil {
				return nil, err
			}
			return req, nil
		},
		Validate: func(request interface{}) []FieldError {
			req := request.(CheckCompatibilityRequest)
			var errs []FieldError
			if err := validatePackageName("package", req.Package); err != nil {
				errs = append(errs, *err)
			}
			if req.FlutterSDK == "" {
				errs = append(errs, FieldError{Field: "flutterSdk", Message: "must not be empty"})
			}
			return errs
		},
		Execute: func(ctx context.Context, request interface{}) (interface{}, error) {
			req := request.(CheckCompatibilityRequest)

			compatRequest, err := domain.NewCompatibilityRequest(req.Package, req.FlutterSDK, req.ProjectConstraint)
			if err != nil {
				return nil, err
			}

			history, err := deps.Client.VersionHistory(ctx, req.Package)
			if err != nil {
				return nil, err
			}

			return compat.Solve(compatRequest, history)
		},
		Encode: func(response interface{}) (json.RawMessage, error) {
			return encodeJSON(response.(domain.CompatibilityResult))
		},
	}
}
