package domain

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// VersionDetail describes a single published version of a package.
type VersionDetail struct {
	version         string
	released        time.Time
	sdkConstraint   string
	isPrerelease    bool
	releaseNotesURL *string
}

// NewVersionDetail validates and constructs a VersionDetail.
func NewVersionDetail(version string, released time.Time, sdkConstraint string, isPrerelease bool, releaseNotesURL string) (VersionDetail, error) {
	if strings.TrimSpace(version) == "" {
		return VersionDetail{}, invalid("version", "must not be empty")
	}
	if released.IsZero() {
		return VersionDetail{}, invalid("released", "must be an absolute instant")
	}
	if strings.TrimSpace(sdkConstraint) == "" {
		sdkConstraint = "any"
	}

	var notesURL *string
	if releaseNotesURL != "" {
		if _, err := url.ParseRequestURI(releaseNotesURL); err != nil {
			return VersionDetail{}, invalid("releaseNotesUrl", "must be an absolute URL")
		}
		notesURL = &releaseNotesURL
	}

	return VersionDetail{
		version:         version,
		released:        released.UTC(),
		sdkConstraint:   sdkConstraint,
		isPrerelease:    isPrerelease,
		releaseNotesURL: notesURL,
	}, nil
}

func (v VersionDetail) Version() string         { return v.version }
func (v VersionDetail) Released() time.Time      { return v.released }
func (v VersionDetail) SDKConstraint() string    { return v.sdkConstraint }
func (v VersionDetail) IsPrerelease() bool       { return v.isPrerelease }
func (v VersionDetail) ReleaseNotesURL() *string { return v.releaseNotesURL }

type versionDetailWire struct {
	Version         string    `json:"version"`
	Released        time.Time `json:"released"`
	SDKConstraint   string    `json:"sdkConstraint"`
	IsPrerelease    bool      `json:"isPrerelease"`
	ReleaseNotesURL *string   `json:"releaseNotesUrl,omitempty"`
}

// MarshalJSON implements the wire shape from spec.md §3.
func (v VersionDetail) MarshalJSON() ([]byte, error) {
	return json.Marshal(versionDetailWire{
		Version:         v.version,
		Released:        v.released,
		SDKConstraint:   v.sdkConstraint,
		IsPrerelease:    v.isPrerelease,
		ReleaseNotesURL: v.releaseNotesURL,
	})
}

// UnmarshalJSON decodes a VersionDetail, ignoring unknown fields.
func (v *VersionDetail) UnmarshalJSON(data []byte) error {
	var w versionDetailWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := NewVersionDetail(w.Version, w.Released, w.SDKConstraint, w.IsPrerelease, derefOrEmpty(w.ReleaseNotesURL))
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
