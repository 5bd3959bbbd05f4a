// Package version exposes build information, overridable at link time with
// -ldflags "-X voice-detect/internal/version.version=...".
package version

//nolint:gochecknoglobals // set by the linker
var (
	name    = "voicecheck"
	version = "dev"
	commit  = "unknown"
)

func Name() string {
	return name
}

func Version() string {
	return version
}

func Commit() string {
	return commit
}
