package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPackageSummary_ValidatesPopularity(t *testing.T) {
	tests := []struct {
		name       string
		popularity float64
		wantErr    bool
	}{
		{"lower bound", 0, false},
		{"upper bound", 1, false},
		{"mid", 0.42, false},
		{"negative", -0.01, true},
		{"above one", 1.01, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPackageSummary("http", "desc", "dart.dev", 10, 130, tt.popularity, nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPackageSummary_RejectsEmptyName(t *testing.T) {
	_, err := NewPackageSummary("", "desc", "dart.dev", 0, 0, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSearchResultSet_EnforcesCap(t *testing.T) {
	pkgs := make([]PackageSummary, MaxSearchResults+1)
	for i := range pkgs {
		p, err := NewPackageSummary("pkg", "d", "pub", 0, 0, 0, nil)
		require.NoError(t, err)
		pkgs[i] = p
	}

	_, err := NewSearchResultSet("http client", pkgs, nil)
	assert.ErrorIs(t, err, ErrInvalidValue)

	ok, err := NewSearchResultSet("http client", pkgs[:MaxSearchResults], nil)
	require.NoError(t, err)
	assert.Len(t, ok.Packages(), MaxSearchResults)
}

func TestCompatibilityResult_SatisfiesRequiresRecommendation(t *testing.T) {
	req, err := NewCompatibilityRequest("http", "3.24.0", nil)
	require.NoError(t, err)
	v, err := NewVersionDetail("1.2.1", time.Now(), ">=3.13.0 <4.0.0", false, "")
	require.NoError(t, err)

	_, err = NewCompatibilityResult(req, nil, true, "explanation", []VersionDetail{v})
	assert.ErrorIs(t, err, ErrInvalidValue)

	result, err := NewCompatibilityResult(req, &v, true, "explanation", []VersionDetail{v})
	require.NoError(t, err)
	assert.True(t, result.Satisfies())
	assert.Equal(t, "1.2.1", result.RecommendedVersion().Version())
}

func TestDomainEntities_RoundTripJSON(t *testing.T) {
	v, err := NewVersionDetail("1.2.1", time.Now(), ">=3.13.0 <4.0.0", false, "https://pub.dev/notes")
	require.NoError(t, err)

	summary, err := NewPackageSummary("http", "HTTP client", "dart.dev", 1200, 140, 0.97, &v)
	require.NoError(t, err)

	data, err := json.Marshal(summary)
	require.NoError(t, err)

	var decoded PackageSummary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, summary.Name(), decoded.Name())
	assert.Equal(t, summary.LatestStable().Version(), decoded.LatestStable().Version())
}

func TestDomainEntities_UnmarshalIgnoresUnknownFields(t *testing.T) {
	raw := []byte(`{"package":"http","overallScore":120,"popularity":0.5,"likes":10,"pubPoints":130,"componentNotes":{"Maintenance":"good"},"fetchedAt":"2026-01-01T00:00:00Z","unexpected":"value"}`)

	var insight ScoreInsight
	require.NoError(t, json.Unmarshal(raw, &insight))
	assert.Equal(t, "http", insight.Package())
	assert.Equal(t, "good", insight.ComponentNotes()["maintenance"])
}

func TestDependencyNode_NoRepeatedPathInvariantIsCallerEnforced(t *testing.T) {
	child, err := NewDependencyNode("b", "^1.0.0", "1.2.0", false, nil)
	require.NoError(t, err)
	root, err := NewDependencyNode("a", "any", "1.0.0", true, []DependencyNode{child})
	require.NoError(t, err)
	assert.Len(t, root.Children(), 1)
	assert.Equal(t, "b", root.Children()[0].Package())
}
