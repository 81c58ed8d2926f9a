package registry

import (
	"encoding/json"
	"time"
)

// These wire types mirror the shapes pub.dev's JSON API actually returns
// (trimmed to the fields the server consumes). Unknown upstream fields are
// ignored by the decoder simply by not naming them here.

type searchResponseDTO struct {
	Packages []struct {
		Package string `json:"package"`
	} `json:"packages"`
	Next  string `json:"next"`
	Total int    `json:"total"` // 0 when upstream omits a total count
}

type packageInfoDTO struct {
	Name     string          `json:"name"`
	Latest   packageVersionDTO `json:"latest"`
	Versions []packageVersionDTO `json:"versions"`
}

type packageVersionDTO struct {
	Version    string      `json:"version"`
	Published  time.Time   `json:"published"`
	Pubspec    pubspecDTO  `json:"pubspec"`
	ArchiveURL string      `json:"archive_url"`
}

type pubspecDTO struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Homepage     string            `json:"homepage"`
	Repository   string            `json:"repository"`
	IssueTracker string            `json:"issue_tracker"`
	Environment  map[string]string `json:"environment"` // "sdk" / "flutter" constraints
	Dependencies map[string]rawConstraint `json:"dependencies"`
	DevDependencies map[string]rawConstraint `json:"dev_dependencies"`
}

// rawConstraint accepts either a bare string constraint (the common case)
// or an object form (git/path/hosted dependency); only the string form
// resolves to a dependency edge. Any other form is marked IsRef and is
// left out of the dependency listing.
type rawConstraint struct {
	Value string
	IsRef bool
}

func (r *rawConstraint) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		r.Value = s
		return nil
	}
	r.IsRef = true
	return nil
}

type publisherInfoDTO struct {
	PublisherID string `json:"publisherId"`
	Packages    []struct {
		Package string `json:"package"`
	} `json:"packages"`
}

type scoreDTO struct {
	GrantedPoints   int            `json:"grantedPoints"`
	MaxPoints       int            `json:"maxPoints"`
	LikeCount       int            `json:"likeCount"`
	PopularityScore float64        `json:"popularityScore"` // upstream scale: [0,100]
	Tags            []string       `json:"tags"`
	LastUpdated     time.Time      `json:"lastUpdated"`
	ReportNotes     map[string]string `json:"reportNotes"`
}
