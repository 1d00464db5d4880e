// Package version holds the library version.
package version

import "fmt"

type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%v.%v.%v", v.Major, v.Minor, v.Patch)
}

// Current is the version of the library.
var Current = Version{Major: 0, Minor: 1, Patch: 0}
