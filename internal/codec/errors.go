package codec

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord is the class of structural violations in a serialized
// record. The whole decode call fails; no partial document escapes.
var ErrMalformedRecord = errors.New("malformed record")

// RecordError reports a structural violation together with the path to the
// offending part of the record, e.g. "root.contents[2].properties.title[0]".
type RecordError struct {
	Path string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("malformed record at %s: %v", e.Path, e.Err)
}

// Unwrap exposes both the malformed-record class and the specific cause,
// so errors.Is works against either.
func (e *RecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}
