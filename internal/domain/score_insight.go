package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// ScoreInsight is the pub points / popularity / likes breakdown for a package.
type ScoreInsight struct {
	pkg            string
	overallScore   float64
	popularity     float64
	likes          int
	pubPoints      int
	componentNotes map[string]string
	fetchedAt      time.Time
}

// NewScoreInsight validates and constructs a ScoreInsight.
func NewScoreInsight(pkg string, overallScore, popularity float64, likes, pubPoints int, componentNotes map[string]string, fetchedAt time.Time) (ScoreInsight, error) {
	if strings.TrimSpace(pkg) == "" {
		return ScoreInsight{}, invalid("package", "must not be empty")
	}
	if overallScore < 0 {
		return ScoreInsight{}, invalid("overallScore", "must be >= 0")
	}
	if popularity < 0 || popularity > 1 {
		return ScoreInsight{}, invalid("popularity", "must be in [0,1]")
	}
	if likes < 0 {
		return ScoreInsight{}, invalid("likes", "must be >= 0")
	}
	if pubPoints < 0 {
		return ScoreInsight{}, invalid("pubPoints", "must be >= 0")
	}
	if fetchedAt.IsZero() {
		return ScoreInsight{}, invalid("fetchedAt", "must be an absolute instant")
	}

	notes := make(map[string]string, len(componentNotes))
	for k, v := range componentNotes {
		notes[strings.ToLower(k)] = v
	}

	return ScoreInsight{
		pkg:            pkg,
		overallScore:   overallScore,
		popularity:     popularity,
		likes:          likes,
		pubPoints:      pubPoints,
		componentNotes: notes,
		fetchedAt:      fetchedAt.UTC(),
	}, nil
}

func (s ScoreInsight) Package() string      { return s.pkg }
func (s ScoreInsight) OverallScore() float64 { return s.overallScore }
func (s ScoreInsight) Popularity() float64   { return s.popularity }
func (s ScoreInsight) Likes() int             { return s.likes }
func (s ScoreInsight) PubPoints() int         { return s.pubPoints }
func (s ScoreInsight) FetchedAt() time.Time  { return s.fetchedAt }
func (s ScoreInsight) ComponentNotes() map[string]string {
	out := make(map[string]string, len(s.componentNotes))
	for k, v := range s.componentNotes {
		out[k] = v
	}
	return out
}

type scoreInsightWire struct {
	Package        string            `json:"package"`
	OverallScore   float64           `json:"overallScore"`
	Popularity     float64           `json:"popularity"`
	Likes          int               `json:"likes"`
	PubPoints      int               `json:"pubPoints"`
	ComponentNotes map[string]string `json:"componentNotes"`
	FetchedAt      time.Time         `json:"fetchedAt"`
}

func (s ScoreInsight) MarshalJSON() ([]byte, error) {
	notes := s.componentNotes
	if notes == nil {
		notes = map[string]string{}
	}
	return json.Marshal(scoreInsightWire{
		Package:        s.pkg,
		OverallScore:   s.overallScore,
		Popularity:     s.popularity,
		Likes:          s.likes,
		PubPoints:      s.pubPoints,
		ComponentNotes: notes,
		FetchedAt:      s.fetchedAt,
	})
}

func (s *ScoreInsight) UnmarshalJSON(data []byte) error {
	var w scoreInsightWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := NewScoreInsight(w.Package, w.OverallScore, w.Popularity, w.Likes, w.PubPoints, w.ComponentNotes, w.FetchedAt)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

// AuditLogEntry records the digest of one tool invocation for C8.
type AuditLogEntry struct {
	timestamp      time.Time
	tool           string
	requestDigest  string
	responseDigest string
}

// NewAuditLogEntry validates and constructs an AuditLogEntry.
func NewAuditLogEntry(timestamp time.Time, tool, requestDigest, responseDigest string) (AuditLogEntry, error) {
	if timestamp.IsZero() {
		return AuditLogEntry{}, invalid("timestamp", "must be an absolute instant")
	}
	if strings.TrimSpace(tool) == "" {
		return AuditLogEntry{}, invalid("tool", "must not be empty")
	}
	if strings.TrimSpace(requestDigest) == "" {
		return AuditLogEntry{}, invalid("requestDigest", "must not be empty")
	}
	if strings.TrimSpace(responseDigest) == "" {
		return AuditLogEntry{}, invalid("responseDigest", "must not be empty")
	}
	return AuditLogEntry{
		timestamp:      timestamp.UTC(),
		tool:           tool,
		requestDigest:  requestDigest,
		responseDigest: responseDigest,
	}, nil
}

func (a AuditLogEntry) Timestamp() time.Time     { return a.timestamp }
func (a AuditLogEntry) Tool() string              { return a.tool }
func (a AuditLogEntry) RequestDigest() string     { return a.requestDigest }
func (a AuditLogEntry) ResponseDigest() string    { return a.responseDigest }
