package pkgmgr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ParseVersion accepts Composer version strings: "v1.2.3", "1.2.3.0",
// "1.2.3-beta1". Branch versions ("dev-master", "1.x-dev") are rejected.
func ParseVersion(raw string) (*semver.Version, error) {
	v := strings.TrimSpace(raw)
	if IsDevVersion(v) {
		return nil, fmt.Errorf("branch version %q has no semantic order", raw)
	}
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")

	// Composer normalizes to four numeric parts; drop a trailing zero build.
	core, pre, hasPre := strings.Cut(v, "-")
	if parts := strings.Split(core, "."); len(parts) == 4 && parts[3] == "0" {
		core = strings.Join(parts[:3], ".")
	}
	if hasPre {
		v = core + "-" + pre
	} else {
		v = core
	}

	return semver.NewVersion(v)
}

func IsDevVersion(v string) bool {
	return strings.HasPrefix(v, "dev-") || strings.HasSuffix(v, "-dev")
}

// ParseConstraint turns a Composer constraint into a semver constraint.
// Composer allows a single pipe as OR and "@stability" flags; both are
// normalized away.
func ParseConstraint(raw string) (*semver.Constraints, error) {
	c := strings.TrimSpace(raw)
	if c == "" {
		c = "*"
	}
	if at := strings.Index(c, "@"); at >= 0 {
		c = strings.TrimSpace(c[:at])
		if c == "" {
			c = "*"
		}
	}
	if !strings.Contains(c, "||") {
		c = strings.ReplaceAll(c, "|", "||")
	}
	return semver.NewConstraint(c)
}

// Satisfies reports whether version matches constraint. Branch versions only
// match themselves.
func Satisfies(version, constraint string) bool {
	if IsDevVersion(version) || IsDevVersion(constraint) {
		return strings.TrimSpace(version) == strings.TrimSpace(constraint)
	}
	v, err := ParseVersion(version)
	if err != nil {
		return false
	}
	c, err := ParseConstraint(constraint)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// SortVersions orders versions newest first; branch versions go last.
func SortVersions(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, erri := ParseVersion(versions[i])
		vj, errj := ParseVersion(versions[j])
		switch {
		case erri != nil && errj != nil:
			return versions[i] < versions[j]
		case erri != nil:
			return false
		case errj != nil:
			return true
		}
		return vi.GreaterThan(vj)
	})
}

var stabilityRank = map[string]int{
	"stable": 0,
	"rc":     1,
	"beta":   2,
	"alpha":  3,
	"dev":    4,
}

// Stability classifies a version the way minimum-stability does.
func Stability(version string) string {
	if IsDevVersion(version) {
		return "dev"
	}
	v, err := ParseVersion(version)
	if err != nil || v.Prerelease() == "" {
		return "stable"
	}
	pre := strings.ToLower(v.Prerelease())
	for _, s := range []string{"rc", "beta", "alpha"} {
		if strings.HasPrefix(pre, s) {
			return s
		}
	}
	return "dev"
}

// StabilityAllowed reports whether version is at least as stable as minimum.
func StabilityAllowed(version, minimum string) bool {
	if minimum == "" {
		minimum = "stable"
	}
	limit, ok := stabilityRank[strings.ToLower(minimum)]
	if !ok {
		limit = 0
	}
	return stabilityRank[Stability(version)] <= limit
}
