package domain

import (
	"encoding/json"
	"strings"
)

// PackageSummary is the compact representation of a package returned by
// search and publisher listings.
type PackageSummary struct {
	name         string
	description  string
	publisher    string
	likes        int
	pubPoints    int
	popularity   float64
	latestStable *VersionDetail
}

// NewPackageSummary validates and constructs a PackageSummary.
func NewPackageSummary(name, description, publisher string, likes, pubPoints int, popularity float64, latestStable *VersionDetail) (PackageSummary, error) {
	if strings.TrimSpace(name) == "" {
		return PackageSummary{}, invalid("name", "must not be empty")
	}
	if likes < 0 {
		return PackageSummary{}, invalid("likes", "must be >= 0")
	}
	if pubPoints < 0 {
		return PackageSummary{}, invalid("pubPoints", "must be >= 0")
	}
	if popularity < 0 || popularity > 1 {
		return PackageSummary{}, invalid("popularity", "must be in [0,1]")
	}

	return PackageSummary{
		name:         name,
		description:  description,
		publisher:    publisher,
		likes:        likes,
		pubPoints:    pubPoints,
		popularity:   popularity,
		latestStable: latestStable,
	}, nil
}

func (p PackageSummary) Name() string                     { return p.name }
func (p PackageSummary) Description() string               { return p.description }
func (p PackageSummary) Publisher() string                 { return p.publisher }
func (p PackageSummary) Likes() int                         { return p.likes }
func (p PackageSummary) PubPoints() int                     { return p.pubPoints }
func (p PackageSummary) Popularity() float64                { return p.popularity }
func (p PackageSummary) LatestStable() *VersionDetail       { return p.latestStable }

type packageSummaryWire struct {
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Publisher    string         `json:"publisher"`
	Likes        int            `json:"likes"`
	PubPoints    int            `json:"pubPoints"`
	Popularity   float64        `json:"popularity"`
	LatestStable *VersionDetail `json:"latestStable,omitempty"`
}

func (p PackageSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(packageSummaryWire{
		Name:         p.name,
		Description:  p.description,
		Publisher:    p.publisher,
		Likes:        p.likes,
		PubPoints:    p.pubPoints,
		Popularity:   p.popularity,
		LatestStable: p.latestStable,
	})
}

func (p *PackageSummary) UnmarshalJSON(data []byte) error {
	var w packageSummaryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := NewPackageSummary(w.Name, w.Description, w.Publisher, w.Likes, w.PubPoints, w.Popularity, w.LatestStable)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// PackageDetails is the full detail view of a package.
type PackageDetails struct {
	pkg             string
	description     string
	publisher       string
	homepage        *string
	repository      *string
	issueTracker    *string
	latestStable    VersionDetail
	topics          []string
}

// NewPackageDetails validates and constructs a PackageDetails.
func NewPackageDetails(pkg, description, publisher string, homepage, repository, issueTracker *string, latestStable VersionDetail, topics []string) (PackageDetails, error) {
	if strings.TrimSpace(pkg) == "" {
		return PackageDetails{}, invalid("package", "must not be empty")
	}
	topicsCopy := append([]string(nil), topics...)
	return PackageDetails{
		pkg:          pkg,
		description:  description,
		publisher:    publisher,
		homepage:     homepage,
		repository:   repository,
		issueTracker: issueTracker,
		latestStable: latestStable,
		topics:       topicsCopy,
	}, nil
}

func (d PackageDetails) Package() string           { return d.pkg }
func (d PackageDetails) Description() string       { return d.description }
func (d PackageDetails) Publisher() string         { return d.publisher }
func (d PackageDetails) Homepage() *string         { return d.homepage }
func (d PackageDetails) Repository() *string       { return d.repository }
func (d PackageDetails) IssueTracker() *string      { return d.issueTracker }
func (d PackageDetails) LatestStable() VersionDetail { return d.latestStable }
func (d PackageDetails) Topics() []string           { return append([]string(nil), d.topics...) }

type packageDetailsWire struct {
	Package      string        `json:"package"`
	Description  string        `json:"description"`
	Publisher    string        `json:"publisher"`
	Homepage     *string       `json:"homepage,omitempty"`
	Repository   *string       `json:"repository,omitempty"`
	IssueTracker *string       `json:"issueTracker,omitempty"`
	LatestStable VersionDetail `json:"latestStable"`
	Topics       []string      `json:"topics"`
}

func (d PackageDetails) MarshalJSON() ([]byte, error) {
	topics := d.topics
	if topics == nil {
		topics = []string{}
	}
	return json.Marshal(packageDetailsWire{
		Package:      d.pkg,
		Description:  d.description,
		Publisher:    d.publisher,
		Homepage:     d.homepage,
		Repository:   d.repository,
		IssueTracker: d.issueTracker,
		LatestStable: d.latestStable,
		Topics:       topics,
	})
}

func (d *PackageDetails) UnmarshalJSON(data []byte) error {
	var w packageDetailsWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := NewPackageDetails(w.Package, w.Description, w.Publisher, w.Homepage, w.Repository, w.IssueTracker, w.LatestStable, w.Topics)
	if err != nil {
		return err
	}
	*d = decoded
	return nil
}
