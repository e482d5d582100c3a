package markdown

import "fmt"

// UnsupportedElementError reports an HTML tag outside the supported
// vocabulary. Inline distinguishes a failure while rendering a node's
// children from one at the article's top level, so diagnostics can tell
// the two contexts apart.
type UnsupportedElementError struct {
	Tag    string
	Inline bool
}

func (e *UnsupportedElementError) Error() string {
	if e.Inline {
		return fmt.Sprintf("unsupported inline element %q", e.Tag)
	}
	return fmt.Sprintf("unsupported element %q", e.Tag)
}

// UnsupportedEmbedError reports an embed container class outside the
// enumerated widget set.
type UnsupportedEmbedError struct {
	Class string
}

func (e *UnsupportedEmbedError) Error() string {
	return fmt.Sprintf("unsupported embed variant %q", e.Class)
}

// MissingFieldError reports a required field absent from a fetched document
// or embed payload. It is fatal for the current article only.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}
