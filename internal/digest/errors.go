package digest

import "fmt"

// IOError reports a file that could not be read for hashing.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// MismatchError reports a digest that did not match the expected value.
// Both fields are lowercase hex.
type MismatchError struct {
	Expected string
	Actual   string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("digest mismatch:\nactual:   %s\nexpected: %s", e.Actual, e.Expected)
}
