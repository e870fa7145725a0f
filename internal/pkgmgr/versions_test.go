package pkgmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersionNormalizesComposerForms(t *testing.T) {
	for raw, want := range map[string]string{
		"v1.2.3":      "1.2.3",
		"1.2.3.0":     "1.2.3",
		"2.0.0-beta1": "2.0.0-beta1",
		"3.5.40":      "3.5.40",
		"1.0.0.0-RC2": "1.0.0-RC2",
	} {
		v, err := ParseVersion(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, v.String(), raw)
	}

	_, err := ParseVersion("dev-master")
	assert.Error(t, err)
}

func TestSatisfies(t *testing.T) {
	cases := []struct {
		version, constraint string
		want                bool
	}{
		{"1.2.3", "^1.0", true},
		{"2.0.0", "^1.0", false},
		{"1.4.0", "~1.2", true},
		{"3.5.40", "3.5.*", true},
		{"3.2.0", "~3.2 | ~3.5", true},
		{"3.3.0", "~3.2.0 || ~3.5.0", false},
		{"1.0.0", "*", true},
		{"1.0.0", "", true},
		{"1.0.0", ">=1.0@dev", true},
		{"dev-master", "dev-master", true},
		{"1.0.0", "dev-master", false},
		{"1.0.0", "not a constraint", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Satisfies(tc.version, tc.constraint), "%s %s", tc.version, tc.constraint)
	}
}

func TestSortVersionsNewestFirstBranchesLast(t *testing.T) {
	versions := []string{"1.0.0", "dev-master", "v2.1.0", "1.10.0", "2.0.0-beta1"}
	SortVersions(versions)
	assert.Equal(t, []string{"v2.1.0", "2.0.0-beta1", "1.10.0", "1.0.0", "dev-master"}, versions)
}

func TestStabilityAllowed(t *testing.T) {
	assert.True(t, StabilityAllowed("1.0.0", ""))
	assert.False(t, StabilityAllowed("1.0.0-beta2", "stable"))
	assert.True(t, StabilityAllowed("1.0.0-beta2", "beta"))
	assert.False(t, StabilityAllowed("1.0.0-alpha1", "beta"))
	assert.True(t, StabilityAllowed("dev-master", "dev"))
	assert.Equal(t, "rc", Stability("2.0.0-RC1"))
}
