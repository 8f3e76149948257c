package tab

import "fmt"

// InvalidTabError indicates a TAB archive failed to parse: a corrupt
// tar stream, missing metadata.toml, or a member that is not a valid
// TBF.
type InvalidTabError struct {
	Reason string
}

func (e *InvalidTabError) Error() string {
	return fmt.Sprintf("invalid TAB file: %s", e.Reason)
}

// UnsupportedArchError indicates a TAB carries no compiled binary for
// the architecture requested.
type UnsupportedArchError struct {
	Arch string
}

func (e *UnsupportedArchError) Error() string {
	return fmt.Sprintf("TAB has no variant for architecture %q", e.Arch)
}
