// pkg/version/version.go

package version

import "fmt"

var (
	version      = "0.3.0-dev"
	revision     = "$Format:%h$"
	revisionDate = "$Format:%as$"
)

// Version returns `VERSION (REVISIONDATE REVISION)`, the parts are set with
// -ldflags "-X AveSeq/pkg/version.revision=..." at release builds.
func Version() string {
	return fmt.Sprintf("%v (%v %v)", version, revisionDate, revision)
}
