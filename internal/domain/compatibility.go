package domain

import (
	"encoding/json"
	"strings"
)

// CompatibilityRequest is the input to the compatibility solver.
type CompatibilityRequest struct {
	pkg               string
	flutterSDK        string
	projectConstraint *string
}

// NewCompatibilityRequest validates and constructs a CompatibilityRequest.
func NewCompatibilityRequest(pkg, flutterSDK string, projectConstraint *string) (CompatibilityRequest, error) {
	if strings.TrimSpace(pkg) == "" {
		return CompatibilityRequest{}, invalid("package", "must not be empty")
	}
	if strings.TrimSpace(flutterSDK) == "" {
		return CompatibilityRequest{}, invalid("flutterSdk", "must not be empty")
	}
	return CompatibilityRequest{
		pkg:               pkg,
		flutterSDK:        flutterSDK,
		projectConstraint: projectConstraint,
	}, nil
}

func (r CompatibilityRequest) Package() string            { return r.pkg }
func (r CompatibilityRequest) FlutterSDK() string          { return r.flutterSDK }
func (r CompatibilityRequest) ProjectConstraint() *string { return r.projectConstraint }

type compatibilityRequestWire struct {
	Package           string  `json:"package"`
	FlutterSDK        string  `json:"flutterSdk"`
	ProjectConstraint *string `json:"projectConstraint,omitempty"`
}

func (r CompatibilityRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(compatibilityRequestWire{
		Package:           r.pkg,
		FlutterSDK:        r.flutterSDK,
		ProjectConstraint: r.projectConstraint,
	})
}

func (r *CompatibilityRequest) UnmarshalJSON(data []byte) error {
	var w compatibilityRequestWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := NewCompatibilityRequest(w.Package, w.FlutterSDK, w.ProjectConstraint)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// CompatibilityResult is the solver's verdict.
type CompatibilityResult struct {
	request            CompatibilityRequest
	recommendedVersion *VersionDetail
	satisfies          bool
	explanation        string
	evaluatedVersions  []VersionDetail
}

// NewCompatibilityResult validates and constructs a CompatibilityResult.
func NewCompatibilityResult(request CompatibilityRequest, recommendedVersion *VersionDetail, satisfies bool, explanation string, evaluatedVersions []VersionDetail) (CompatibilityResult, error) {
	if strings.TrimSpace(explanation) == "" {
		return CompatibilityResult{}, invalid("explanation", "must not be empty")
	}
	if len(evaluatedVersions) == 0 || len(evaluatedVersions) > 50 {
		return CompatibilityResult{}, invalid("evaluatedVersions", "must contain 1..50 entries")
	}
	if satisfies && recommendedVersion == nil {
		return CompatibilityResult{}, invalid("recommendedVersion", "must be set when satisfies is true")
	}
	return CompatibilityResult{
		request:            request,
		recommendedVersion: recommendedVersion,
		satisfies:          satisfies,
		explanation:        explanation,
		evaluatedVersions:  append([]VersionDetail(nil), evaluatedVersions...),
	}, nil
}

func (r CompatibilityResult) Request() CompatibilityRequest        { return r.request }
func (r CompatibilityResult) RecommendedVersion() *VersionDetail   { return r.recommendedVersion }
func (r CompatibilityResult) Satisfies() bool                       { return r.satisfies }
func (r CompatibilityResult) Explanation() string                   { return r.explanation }
func (r CompatibilityResult) EvaluatedVersions() []VersionDetail {
	return append([]VersionDetail(nil), r.evaluatedVersions...)
}

type compatibilityResultWire struct {
	Request            CompatibilityRequest `json:"request"`
	RecommendedVersion *VersionDetail        `json:"recommendedVersion,omitempty"`
	Satisfies          bool                  `json:"satisfies"`
	Explanation        string                `json:"explanation"`
	EvaluatedVersions  []VersionDetail        `json:"evaluatedVersions"`
}

func (r CompatibilityResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(compatibilityResultWire{
		Request:            r.request,
		RecommendedVersion: r.recommendedVersion,
		Satisfies:          r.satisfies,
		Explanation:        r.explanation,
		EvaluatedVersions:  r.evaluatedVersions,
	})
}

func (r *CompatibilityResult) UnmarshalJSON(data []byte) error {
	var w compatibilityResultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := NewCompatibilityResult(w.Request, w.RecommendedVersion, w.Satisfies, w.Explanation, w.EvaluatedVersions)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}
