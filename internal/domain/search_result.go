package domain

import (
	"encoding/json"
	"strings"
)

// MaxSearchResults is the hard cap on packages returned by a single search
// (spec.md §4.1, L_search).
const MaxSearchResults = 10

// SearchResultSet is the outcome of a package search.
type SearchResultSet struct {
	query           string
	packages        []PackageSummary
	moreResultsHint *string
}

// NewSearchResultSet validates and constructs a SearchResultSet.
func NewSearchResultSet(query string, packages []PackageSummary, moreResultsHint *string) (SearchResultSet, error) {
	if strings.TrimSpace(query) == "" {
		return SearchResultSet{}, invalid("query", "must not be empty")
	}
	if len(packages) == 0 {
		return SearchResultSet{}, invalid("packages", "must contain at least 1 package")
	}
	if len(packages) > MaxSearchResults {
		return SearchResultSet{}, invalid("packages", "must not exceed 10 entries")
	}
	return SearchResultSet{
		query:           query,
		packages:        append([]PackageSummary(nil), packages...),
		moreResultsHint: moreResultsHint,
	}, nil
}

func (s SearchResultSet) Query() string                { return s.query }
func (s SearchResultSet) Packages() []PackageSummary    { return append([]PackageSummary(nil), s.packages...) }
func (s SearchResultSet) MoreResultsHint() *string      { return s.moreResultsHint }

type searchResultSetWire struct {
	Query           string           `json:"query"`
	Packages        []PackageSummary `json:"packages"`
	MoreResultsHint *string          `json:"moreResultsHint,omitempty"`
}

func (s SearchResultSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(searchResultSetWire{
		Query:           s.query,
		Packages:        s.packages,
		MoreResultsHint: s.moreResultsHint,
	})
}

func (s *SearchResultSet) UnmarshalJSON(data []byte) error {
	var w searchResultSetWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := NewSearchResultSet(w.Query, w.Packages, w.MoreResultsHint)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}
