// Package registry wraps the upstream package registry's HTTP API behind
// a small, typed interface, wiring every call through the circuit
// breaker -> retry -> per-attempt timeout pipeline described in
// SPEC_FULL.md §4.1. It is grounded on the teacher framework's
// ai/providers/base.go BaseClient: a shared *http.Client plus
// ExecuteWithRetry-style wrapping, extended here with the resilience
// package's breaker and crypto-jittered retry instead of the teacher's
// hand-rolled loop.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
	"github.com/mbilalbenli/pub-dev-mcp/internal/logging"
	"github.com/mbilalbenli/pub-dev-mcp/internal/resilience"
)

// Client is the registry's public contract: six operations mapped 1:1
// onto upstream endpoints plus a readiness Probe, per spec.md §4.1.
type Client interface {
	Search(ctx context.Context, query string, includePrerelease bool, sdkConstraint string) (domain.SearchResultSet, error)
	LatestVersion(ctx context.Context, pkg string) (domain.VersionDetail, error)
	VersionHistory(ctx context.Context, pkg string) ([]domain.VersionDetail, error)
	PackageDetails(ctx context.Context, pkg string) (domain.PackageDetails, error)
	PublisherPackages(ctx context.Context, publisher string) ([]domain.PackageSummary, error)
	Score(ctx context.Context, pkg string) (domain.ScoreInsight, error)
	// Probe exercises a lightweight upstream call for the HTTP transport's
	// readiness check (GET /health/ready).
	Probe(ctx context.Context) error
}

// rawDependencies is the pubspec-level dependency listing for one package
// version, consumed by the dependency graph builder (internal/depgraph).
// It is intentionally not a domain type: it is resolver input, not a
// value returned to callers.
type rawDependencies struct {
	Package      string
	Version      string
	Dependencies []DependencyEdge
	DevDependencies []DependencyEdge
}

// DependencyEdge names one declared dependency and its constraint string
// exactly as pub.dev's pubspec.yaml expresses it. Dependencies given as a
// git/path/hosted reference (or null) get no edge at all.
type DependencyEdge struct {
	Name       string
	Constraint string
}

const defaultMaxSearchResults = 10

// HTTPClient is the production Client implementation.
type HTTPClient struct {
	baseURL          string
	userAgent        string
	maxSearchResults int
	httpClient       *http.Client
	breakers         *resilience.HostBreakers
	retry            *resilience.RetryConfig
	logger           logging.Logger
}

// NewHTTPClient builds a client bound to baseURL (e.g. "https://pub.dev"),
// sharing one *resilience.HostBreakers and retry policy across every call
// per spec.md §5's process-wide singleton requirement. searchResultCap
// caps Search's result count per spec.md's PubDev.Api.SearchResultLimit;
// a value <= 0 falls back to defaultMaxSearchResults.
func NewHTTPClient(baseURL, userAgent string, searchResultCap int, retry *resilience.RetryConfig, breakers *resilience.HostBreakers, logger logging.Logger) *HTTPClient {
	if logger == nil {
		logger = logging.NoOp{}
	}
	if retry == nil {
		retry = resilience.DefaultRetryConfig()
	}
	if breakers == nil {
		breakers = resilience.NewHostBreakers(logger, nil)
	}
	if searchResultCap <= 0 {
		searchResultCap = defaultMaxSearchResults
	}
	return &HTTPClient{
		baseURL:          strings.TrimRight(baseURL, "/"),
		userAgent:        userAgent,
		maxSearchResults: searchResultCap,
		httpClient:       &http.Client{},
		breakers:         breakers,
		retry:            retry,
		logger:           logger.WithComponent("registry"),
	}
}

func (c *HTTPClient) host() string {
	if u, err := url.Parse(c.baseURL); err == nil {
		return u.Host
	}
	return c.baseURL
}

// doJSON issues a GET request against path through the resilience
// pipeline and decodes the JSON body into out.
func (c *HTTPClient) doJSON(ctx context.Context, path string, out interface{}) error {
	breaker := c.breakers.For(c.host())

	retryCfg := *c.retry
	retryCfg.Retryable = isRetryableHTTPError

	var statusLine string
	err := breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, &retryCfg, func(attemptCtx context.Context) error {
			req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.baseURL+path, nil)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			if c.userAgent != "" {
				req.Header.Set("User-Agent", c.userAgent)
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				// attemptCtx.Err() fires both when the caller's own ctx was
				// cancelled and when only this attempt's timeout expired;
				// only the former is a genuine cancellation. A lone
				// per-attempt timeout (ctx still live) is a transient
				// upstream slowness symptom and must stay retryable.
				if ctx.Err() != nil {
					return fmt.Errorf("%w: %v", ErrCancelled, err)
				}
				return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
			}
			defer resp.Body.Close()

			statusLine = resp.Status
			if err := statusToError(resp.StatusCode, resp.Status); err != nil {
				return err
			}

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("%w: %v", ErrDecodeFailed, err)
			}
			return nil
		})
	})

	if err != nil {
		c.logger.WarnContext(ctx, "upstream call failed", map[string]interface{}{
			"path":   path,
			"status": statusLine,
			"error":  err.Error(),
		})
	}
	return err
}

func statusToError(code int, status string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrUpstreamNotFound, status)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrUpstreamRateLimited, status)
	case code == http.StatusRequestTimeout || code >= 500:
		return fmt.Errorf("%w: %s", ErrUpstreamUnavailable, status)
	case code >= 400:
		return fmt.Errorf("%w: %s", ErrInvalidInput, status)
	default:
		return fmt.Errorf("%w: %s", ErrUpstreamUnavailable, status)
	}
}

// isRetryableHTTPError matches spec.md §4.1: retry transient transport
// errors, 408, 429, and 5xx; never 4xx-other, decode errors, or
// cancellation.
func isRetryableHTTPError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamRateLimited)
}

// Probe performs a minimal search call used by the HTTP transport's
// readiness check.
func (c *HTTPClient) Probe(ctx context.Context) error {
	var out searchResponseDTO
	return c.doJSON(ctx, "/api/search?q=ping", &out)
}

// Search implements the registry client's search operation per spec.md
// §4.1: keep at most c.maxSearchResults distinct names in first-appearance
// order, then fan out to package+score lookups.
func (c *HTTPClient) Search(ctx context.Context, query string, includePrerelease bool, sdkConstraint string) (domain.SearchResultSet, error) {
	var resp searchResponseDTO
	if err := c.doJSON(ctx, "/api/search?q="+url.QueryEscape(query), &resp); err != nil {
		return domain.SearchResultSet{}, err
	}

	seen := make(map[string]bool, len(resp.Packages))
	names := make([]string, 0, c.maxSearchResults)
	for _, p := range resp.Packages {
		if p.Package == "" || seen[p.Package] {
			continue
		}
		seen[p.Package] = true
		names = append(names, p.Package)
		if len(names) == c.maxSearchResults {
			break
		}
	}

	summaries := make([]domain.PackageSummary, 0, len(names))
	for _, name := range names {
		details, err := c.PackageDetails(ctx, name)
		if err != nil {
			continue
		}
		latest := details.LatestStable()
		summary, err := domain.NewPackageSummary(details.Package(), details.Description(), details.Publisher(), 0, 0, 0, &latest)
		if err != nil {
			continue
		}
		if insight, err := c.Score(ctx, name); err == nil {
			summary, err = domain.NewPackageSummary(details.Package(), details.Description(), details.Publisher(), insight.Likes(), insight.PubPoints(), insight.Popularity(), &latest)
			if err != nil {
				continue
			}
		}
		summaries = append(summaries, summary)
	}

	if len(summaries) == 0 {
		return domain.SearchResultSet{}, fmt.Errorf("%w: no packages resolved for query %q", ErrDecodeFailed, query)
	}

	var hint *string
	if resp.Total > len(names) || resp.Next != "" {
		h := "More packages available…"
		hint = &h
	}

	return domain.NewSearchResultSet(query, summaries, hint)
}

// LatestVersion returns the newest non-prerelease version, per spec.md
// scenario 2.
func (c *HTTPClient) LatestVersion(ctx context.Context, pkg string) (domain.VersionDetail, error) {
	history, err := c.VersionHistory(ctx, pkg)
	if err != nil {
		return domain.VersionDetail{}, err
	}
	for _, v := range history {
		if !v.IsPrerelease() {
			return v, nil
		}
	}
	if len(history) > 0 {
		return history[0], nil
	}
	return domain.VersionDetail{}, fmt.Errorf("%w: no versions for %q", ErrDecodeFailed, pkg)
}

// VersionHistory returns every known version sorted descending by release
// time, tiebroken by descending lexicographic version string.
func (c *HTTPClient) VersionHistory(ctx context.Context, pkg string) ([]domain.VersionDetail, error) {
	var info packageInfoDTO
	if err := c.doJSON(ctx, "/api/packages/"+url.PathEscape(pkg), &info); err != nil {
		return nil, err
	}

	versions := make([]domain.VersionDetail, 0, len(info.Versions))
	for _, v := range info.Versions {
		detail, err := toVersionDetail(v)
		if err != nil {
			continue
		}
		versions = append(versions, detail)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: no versions for %q", ErrDecodeFailed, pkg)
	}

	sort.SliceStable(versions, func(i, j int) bool {
		if !versions[i].Released().Equal(versions[j].Released()) {
			return versions[i].Released().After(versions[j].Released())
		}
		return versions[i].Version() > versions[j].Version()
	})
	return versions, nil
}

// PackageDetails decodes the latest release into a PackageDetails value.
func (c *HTTPClient) PackageDetails(ctx context.Context, pkg string) (domain.PackageDetails, error) {
	var info packageInfoDTO
	if err := c.doJSON(ctx, "/api/packages/"+url.PathEscape(pkg), &info); err != nil {
		return domain.PackageDetails{}, err
	}
	if info.Name == "" {
		return domain.PackageDetails{}, fmt.Errorf("%w: missing package name for %q", ErrDecodeFailed, pkg)
	}

	latest, err := toVersionDetail(info.Latest)
	if err != nil {
		return domain.PackageDetails{}, err
	}

	pubspec := info.Latest.Pubspec
	publisher := publisherFromRepository(pubspec.Repository)

	return domain.NewPackageDetails(
		info.Name,
		pubspec.Description,
		publisher,
		emptyToNil(pubspec.Homepage),
		emptyToNil(pubspec.Repository),
		emptyToNil(pubspec.IssueTracker),
		latest,
		nil,
	)
}

// publisherFromRepository is a pragmatic stand-in: pub.dev's public API
// does not expose a verified-publisher field on /api/packages/<name>, so
// the repository host is reported as the organizing identity (e.g.
// "github.com/dart-lang"). Empty when no repository is declared.
func publisherFromRepository(repo string) string {
	u, err := url.Parse(repo)
	if err != nil || u.Host == "" {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 {
		return u.Host
	}
	return u.Host + "/" + parts[0]
}

// PublisherPackages lists every package attributed to publisher.
func (c *HTTPClient) PublisherPackages(ctx context.Context, publisher string) ([]domain.PackageSummary, error) {
	var resp searchResponseDTO
	if err := c.doJSON(ctx, "/api/search?q="+url.QueryEscape("publisher:"+publisher), &resp); err != nil {
		return nil, err
	}

	summaries := make([]domain.PackageSummary, 0, len(resp.Packages))
	for _, p := range resp.Packages {
		details, err := c.PackageDetails(ctx, p.Package)
		if err != nil {
			continue
		}
		latest := details.LatestStable()
		summary, err := domain.NewPackageSummary(details.Package(), details.Description(), details.Publisher(), 0, 0, 0, &latest)
		if err != nil {
			continue
		}
		summaries = append(summaries, summary)
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("%w: no packages for publisher %q", ErrUpstreamNotFound, publisher)
	}
	return summaries, nil
}

// Score fetches pub points, popularity, and likes, rescaling popularity
// from the upstream's [0,100] scale to [0,1].
func (c *HTTPClient) Score(ctx context.Context, pkg string) (domain.ScoreInsight, error) {
	var s scoreDTO
	if err := c.doJSON(ctx, "/api/packages/"+url.PathEscape(pkg)+"/score", &s); err != nil {
		return domain.ScoreInsight{}, err
	}

	fetchedAt := s.LastUpdated
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	notes := make(map[string]string, len(s.ReportNotes))
	for k, v := range s.ReportNotes {
		notes[k] = v
	}

	return domain.NewScoreInsight(
		pkg,
		float64(s.GrantedPoints),
		clamp01(s.PopularityScore/100),
		s.LikeCount,
		s.GrantedPoints,
		notes,
		fetchedAt,
	)
}

// InspectDependencies fetches the pubspec for (pkg, version) — empty
// version means "latest" — and returns its declared dependency edges for
// the depgraph builder to resolve.
func (c *HTTPClient) InspectDependencies(ctx context.Context, pkg, version string, includeDev bool) (rawDependencies, error) {
	var info packageInfoDTO
	if err := c.doJSON(ctx, "/api/packages/"+url.PathEscape(pkg), &info); err != nil {
		return rawDependencies{}, err
	}

	target := info.Latest
	if version != "" {
		found := false
		for _, v := range info.Versions {
			if v.Version == version {
				target = v
				found = true
				break
			}
		}
		if !found {
			return rawDependencies{}, fmt.Errorf("%w: version %q of %q not found", ErrUpstreamNotFound, version, pkg)
		}
	}

	out := rawDependencies{Package: pkg, Version: target.Version}
	for name, constraint := range target.Pubspec.Dependencies {
		if constraint.IsRef {
			continue
		}
		out.Dependencies = append(out.Dependencies, DependencyEdge{Name: name, Constraint: constraint.Value})
	}
	sort.Slice(out.Dependencies, func(i, j int) bool { return out.Dependencies[i].Name < out.Dependencies[j].Name })

	if includeDev {
		for name, constraint := range target.Pubspec.DevDependencies {
			if constraint.IsRef {
				continue
			}
			out.DevDependencies = append(out.DevDependencies, DependencyEdge{Name: name, Constraint: constraint.Value})
		}
		sort.Slice(out.DevDependencies, func(i, j int) bool { return out.DevDependencies[i].Name < out.DevDependencies[j].Name })
	}

	return out, nil
}

func toVersionDetail(v packageVersionDTO) (domain.VersionDetail, error) {
	if v.Version == "" || v.Published.IsZero() {
		return domain.VersionDetail{}, fmt.Errorf("%w: missing version or published time", ErrDecodeFailed)
	}

	sdkConstraint := "any"
	if c, ok := v.Pubspec.Environment["flutter"]; ok && c != "" {
		sdkConstraint = c
	} else if c, ok := v.Pubspec.Environment["sdk"]; ok && c != "" {
		sdkConstraint = c
	}

	isPrerelease := strings.Contains(v.Version, "-")

	releaseNotes := ""
	if v.Pubspec.Repository != "" {
		releaseNotes = strings.TrimRight(v.Pubspec.Repository, "/") + "/blob/master/CHANGELOG.md"
	} else if v.Pubspec.IssueTracker != "" {
		releaseNotes = v.Pubspec.IssueTracker
	}

	return domain.NewVersionDetail(v.Version, v.Published, sdkConstraint, isPrerelease, releaseNotes)
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
