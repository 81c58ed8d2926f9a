package tools

import (
	"context"
	"encoding/json"

	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
)

// ScoreInsightsRequest is score_insights' bound parameter type.
type ScoreInsightsRequest struct {
	Package string `json:"package"`
}

func newScoreInsightsDescriptor(deps Deps) Descriptor {
	return Descriptor{
		Name:        "score_insights",
		Description: "Fetch a package's pub points, popularity, and like count, memoized for 10 minutes.",
		Bind: func(params json.RawMessage) (interface{}, error) {
			req := ScoreInsightsRequest{}
			if err := bindJSON(params, &req); err != nil {
				return nil, err
			}
			return req, nil
		},
		Validate: func(request interface{}) []FieldError {
			req := request.(ScoreInsightsRequest)
			var errs []FieldError
			if err := validatePackageName("package", req.Package); err != nil {
				errs = append(errs, *err)
			}
			return errs
		},
		Execute: func(ctx context.Context, request interface{}) (interface{}, error) {
			req := request.(ScoreInsightsRequest)
			if deps.ScoreCache == nil {
				return deps.Client.Score(ctx, req.Package)
			}
			return deps.ScoreCache.Get(ctx, scoreCacheKey(req.Package), func(ctx context.Context) (domain.ScoreInsight, error) {
				return deps.Client.Score(ctx, req.Package)
			})
		},
		Encode: func(response interface{}) (json.RawMessage, error) {
			return encodeJSON(response.(domain.ScoreInsight))
		},
	}
}
