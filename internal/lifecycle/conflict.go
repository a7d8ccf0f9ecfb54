package lifecycle

// Resolution is the user's answer to an update conflict: a bundle being
// installed whose identity is already installed from another source.
type Resolution int

const (
	// ResolutionCancel aborts the install before any file is touched.
	ResolutionCancel Resolution = iota
	// ResolutionReplace uninstalls the existing bundle first.
	ResolutionReplace
	// ResolutionKeepBoth installs alongside under a distinct storage
	// name.
	ResolutionKeepBoth
)

func (r Resolution) String() string {
	switch r {
	case ResolutionCancel:
		return "cancel"
	case ResolutionReplace:
		return "replace"
	case ResolutionKeepBoth:
		return "keep-both"
	default:
		return "unknown"
	}
}

// ConflictResolver decides what to do when an install collides with an
// existing bundle of the same identity. The CLI backs this with a
// prompt; tests and --on-conflict use fixed answers.
type ConflictResolver interface {
	Resolve(name, existingProvenance, newProvenance string) (Resolution, error)
}

// FixedResolver always answers with the same resolution.
type FixedResolver struct {
	Resolution Resolution
}

func (f FixedResolver) Resolve(name, existingProvenance, newProvenance string) (Resolution, error) {
	return f.Resolution, nil
}
