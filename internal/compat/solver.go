// Package compat implements the SDK-compatibility solver described in
// SPEC_FULL.md §4.3: given a compatibility request and a package's version
// history, find the newest version whose declared SDK constraint admits
// the caller's Flutter SDK. Constraint parsing is grounded on
// github.com/Masterminds/semver/v3, the only semver library the example
// corpus uses in real (non-test-only) source across multiple repos.
package compat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mbilalbenli/pub-dev-mcp/internal/domain"
)

const evaluationWindow = 20

// Solve implements spec.md §4.3 steps 1-7.
func Solve(request domain.CompatibilityRequest, history []domain.VersionDetail) (domain.CompatibilityResult, error) {
	probe, err := probeVersion(request.FlutterSDK())
	if err != nil {
		return domain.CompatibilityResult{}, fmt.Errorf("parsing flutterSdk %q: %w", request.FlutterSDK(), err)
	}

	var projectConstraint *semver.Constraints
	if request.ProjectConstraint() != nil && strings.TrimSpace(*request.ProjectConstraint()) != "" {
		projectConstraint, err = parseRange(*request.ProjectConstraint())
		if err != nil {
			return domain.CompatibilityResult{}, fmt.Errorf("parsing projectConstraint %q: %w", *request.ProjectConstraint(), err)
		}
	}

	if len(history) == 0 {
		return domain.CompatibilityResult{}, fmt.Errorf("compat: no version history to evaluate for %s", request.Package())
	}
	window := history
	if len(window) > evaluationWindow {
		window = window[:evaluationWindow]
	}

	candidates := filterCandidates(window, probe, projectConstraint, true)
	if best := pickNewest(candidates); best != nil {
		explanation := fmt.Sprintf("version %s satisfies Flutter SDK %s", best.Version(), request.FlutterSDK())
		return domain.NewCompatibilityResult(request, best, true, explanation, window)
	}

	fallback := filterCandidates(window, probe, projectConstraint, false)
	if best := pickNewest(fallback); best != nil {
		explanation := fmt.Sprintf("version %s satisfies Flutter SDK %s (prerelease fallback, no stable release qualifies)", best.Version(), request.FlutterSDK())
		return domain.NewCompatibilityResult(request, best, true, explanation, window)
	}

	explanation := fmt.Sprintf("evaluated %d version(s); none declared an SDK constraint admitting %s", len(window), request.FlutterSDK())
	return domain.NewCompatibilityResult(request, nil, false, explanation, window)
}

func filterCandidates(window []domain.VersionDetail, probe *semver.Version, projectConstraint *semver.Constraints, excludePrerelease bool) []domain.VersionDetail {
	out := make([]domain.VersionDetail, 0, len(window))
	for _, v := range window {
		if excludePrerelease && v.IsPrerelease() {
			continue
		}
		if !sdkSatisfies(v.SDKConstraint(), probe) {
			continue
		}
		if projectConstraint != nil {
			parsed, err := semver.NewVersion(v.Version())
			if err != nil || !projectConstraint.Check(parsed) {
				continue
			}
		}
		out = append(out, v)
	}
	return out
}

func pickNewest(candidates []domain.VersionDetail) *domain.VersionDetail {
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].Released().Equal(candidates[j].Released()) {
			return candidates[i].Released().After(candidates[j].Released())
		}
		vi, ei := semver.NewVersion(candidates[i].Version())
		vj, ej := semver.NewVersion(candidates[j].Version())
		if ei != nil || ej != nil {
			return candidates[i].Version() > candidates[j].Version()
		}
		return vi.GreaterThan(vj)
	})
	best := candidates[0]
	return &best
}

// probeVersion implements spec.md §4.3 step 1: an exact semver is used
// directly; a constraint/range's lower bound is extracted as the probe.
func probeVersion(flutterSDK string) (*semver.Version, error) {
	if v, err := semver.NewVersion(strings.TrimSpace(flutterSDK)); err == nil {
		return v, nil
	}
	return lowerBound(flutterSDK)
}

func parseRange(expr string) (*semver.Constraints, error) {
	return semver.NewConstraint(translateGrammar(expr))
}

// lowerBound extracts the smallest version named by a constraint/range
// expression, per the grammar in SPEC_FULL.md §4.3: the expression is split
// into "||" clauses and whitespace-separated tokens, and the smallest
// version carried by any token of any clause is returned.
func lowerBound(expr string) (*semver.Version, error) {
	clauses := strings.Split(expr, "||")
	var lowest *semver.Version
	for _, clause := range clauses {
		tokens := strings.Fields(clause)
		for _, tok := range tokens {
			v, err := tokenVersion(tok)
			if err != nil {
				continue
			}
			if lowest == nil || v.LessThan(lowest) {
				lowest = v
			}
		}
	}
	if lowest == nil {
		return nil, fmt.Errorf("no version token found in %q", expr)
	}
	return lowest, nil
}

func tokenVersion(tok string) (*semver.Version, error) {
	tok = strings.TrimSpace(tok)
	for _, prefix := range []string{"^", ">=", ">", "<=", "<", "="} {
		if strings.HasPrefix(tok, prefix) {
			return semver.NewVersion(strings.TrimPrefix(tok, prefix))
		}
	}
	return semver.NewVersion(tok)
}

// sdkSatisfies implements the constraint grammar from SPEC_FULL.md §4.3:
// "||" separated clauses form a disjunction; within a clause,
// whitespace-separated tokens conjoin. "any" or empty matches everything.
func sdkSatisfies(constraint string, probe *semver.Version) bool {
	trimmed := strings.TrimSpace(constraint)
	if trimmed == "" || strings.EqualFold(trimmed, "any") {
		return true
	}

	c, err := semver.NewConstraint(translateGrammar(trimmed))
	if err != nil {
		return false
	}
	return c.Check(probe)
}

// translateGrammar rewrites the bare-version-means-equality rule ("X.Y.Z"
// with no operator means "=X.Y.Z") into Masterminds/semver/v3's native
// constraint syntax, which already treats "^", ">=", ">", "<=", "<", "="
// and "||" identically to SPEC_FULL.md §4.3's grammar.
func translateGrammar(expr string) string {
	clauses := strings.Split(expr, "||")
	for i, clause := range clauses {
		tokens := strings.Fields(clause)
		for j, tok := range tokens {
			if isBareVersion(tok) {
				tokens[j] = "=" + tok
			}
		}
		clauses[i] = strings.Join(tokens, " ")
	}
	return strings.Join(clauses, " || ")
}

func isBareVersion(tok string) bool {
	for _, prefix := range []string{"^", ">=", ">", "<=", "<", "="} {
		if strings.HasPrefix(tok, prefix) {
			return false
		}
	}
	_, err := semver.NewVersion(tok)
	return err == nil
}
