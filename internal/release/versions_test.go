package release

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBump(t *testing.T) {
	tests := []struct {
		input   string
		want    Bump
		wantErr bool
	}{
		{input: "patch", want: BumpPatch},
		{input: "minor", want: BumpMinor},
		{input: "major", want: BumpMajor},
		{input: " Major ", want: BumpMajor},
		{input: "", wantErr: true},
		{input: "huge", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			bump, err := ParseBump(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, bump)
		})
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		name   string
		latest string
		bump   Bump
		want   string
	}{
		{name: "patch bump", latest: "1.2.3", bump: BumpPatch, want: "1.2.4"},
		{name: "minor bump resets patch", latest: "1.2.3", bump: BumpMinor, want: "1.3.0"},
		{name: "major bump resets minor and patch", latest: "1.2.3", bump: BumpMajor, want: "2.0.0"},
		{name: "patch rollover", latest: "0.9.9", bump: BumpPatch, want: "0.9.10"},
		{name: "minor at zero", latest: "2.0.0", bump: BumpMinor, want: "2.1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			latest := semver.MustParse(tt.latest)
			assert.Equal(t, tt.want, Next(latest, tt.bump).String())
		})
	}
}

func TestNextWithoutPriorRelease(t *testing.T) {
	for _, bump := range []Bump{BumpPatch, BumpMinor, BumpMajor} {
		assert.Equal(t, "0.1.0", Next(nil, bump).String())
	}
}

func TestParseVersion(t *testing.T) {
	version, err := ParseVersion("1.4.0", "v")
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", version.String())

	version, err = ParseVersion("v2.0.1", "v")
	require.NoError(t, err)
	assert.Equal(t, "2.0.1", version.String())

	_, err = ParseVersion("1.4", "v")
	assert.Error(t, err)

	_, err = ParseVersion("not-a-version", "v")
	assert.Error(t, err)
}

func TestBranchAndTagNames(t *testing.T) {
	version := semver.MustParse("1.4.0")
	assert.Equal(t, "release/1.4.0", BranchName(version))
	assert.Equal(t, "v1.4.0", TagName("v", version))
	assert.Equal(t, "1.4.0", TagName("", version))
}
