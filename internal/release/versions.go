package release

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/shipkit-io/shipkit/internal/errors"
)

// Bump names which semver component the next release increments.
type Bump string

const (
	BumpPatch Bump = "patch"
	BumpMinor Bump = "minor"
	BumpMajor Bump = "major"
)

// initialVersion is used when the repository has no version tags yet.
var initialVersion = semver.MustParse("0.1.0")

// ParseBump validates a user-supplied bump name.
func ParseBump(value string) (Bump, error) {
	switch Bump(strings.ToLower(strings.TrimSpace(value))) {
	case BumpPatch:
		return BumpPatch, nil
	case BumpMinor:
		return BumpMinor, nil
	case BumpMajor:
		return BumpMajor, nil
	default:
		return "", errors.NewValidationError(errors.ErrCodeTagInvalid,
			"invalid bump "+value+": must be patch, minor, or major")
	}
}

// Next computes the version after latest for the given bump. A nil latest
// means the repository has never been released and yields 0.1.0.
func Next(latest *semver.Version, bump Bump) *semver.Version {
	if latest == nil {
		return initialVersion
	}

	var next semver.Version
	switch bump {
	case BumpMajor:
		next = latest.IncMajor()
	case BumpMinor:
		next = latest.IncMinor()
	default:
		next = latest.IncPatch()
	}
	return &next
}

// ParseVersion parses an explicit version override, accepting an optional
// leading tag prefix.
func ParseVersion(value, tagPrefix string) (*semver.Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), tagPrefix)
	version, err := semver.StrictNewVersion(trimmed)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeTagInvalid,
			"invalid version "+value+": expected X.Y.Z")
	}
	return version, nil
}

// BranchName returns the release branch for a version.
func BranchName(version *semver.Version) string {
	return "release/" + version.String()
}

// TagName returns the tag for a version with the configured prefix.
func TagName(tagPrefix string, version *semver.Version) string {
	return tagPrefix + version.String()
}
