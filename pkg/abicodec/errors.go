package abicodec

import "fmt"

// EncodingError reports a value that does not fit its declared ABI type.
// Index is the position of the offending value in the tuple, or -1 when the
// error concerns the tuple as a whole.
type EncodingError struct {
	Index  int
	Type   string
	Value  any
	Reason string
}

func (e *EncodingError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("encoding error: %s", e.Reason)
	}
	if e.Value == nil {
		return fmt.Sprintf("encoding error at #%d (%s): %s", e.Index, e.Type, e.Reason)
	}
	return fmt.Sprintf("encoding error at #%d (%s = %v): %s", e.Index, e.Type, e.Value, e.Reason)
}
