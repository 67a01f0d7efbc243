package assembly

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// semverString maps a four-part assembly version onto the three-part
// semver x/mod/semver understands, carrying Revision as build metadata
// (semver.Compare ignores build metadata, so ties are broken on Revision
// by hand below — Major.Minor.Build is what resolution actually cares
// about, same as .NET's own binding policy in the common case).
func (v Version) semverString() string {
	return fmt.Sprintf("v%d.%d.%d+%d", v.Major, v.Minor, v.Build, v.Revision)
}

// Satisfies reports whether this version can serve a reference asking for
// want: at least as new by Major.Minor.Build, with Revision breaking ties.
func (v Version) Satisfies(want Version) bool {
	c := semver.Compare(v.semverString(), want.semverString())
	if c != 0 {
		return c >= 0
	}
	return v.Revision >= want.Revision
}
