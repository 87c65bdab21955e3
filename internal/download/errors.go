package download

import "fmt"

// NetworkError reports a download whose transport or response failed.
// Attempts records how many tries were made before giving up; transient
// faults are retried per policy, permanent remote faults (e.g. a 404)
// fail on the first attempt.
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("download %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IOError reports a non-retryable local filesystem fault.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// VerificationFailed reports a downloaded file whose digest did not
// match the expected value. The untrusted file is deleted before this
// error is returned. Both digests are lowercase hex.
type VerificationFailed struct {
	URL      string
	Expected string
	Actual   string
}

func (e *VerificationFailed) Error() string {
	return fmt.Sprintf("verification failed for %s:\nactual:   %s\nexpected: %s",
		e.URL, e.Actual, e.Expected)
}
