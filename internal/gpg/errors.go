package gpg

import "fmt"

// KeyringError reports a keyring that could not be loaded.
type KeyringError struct {
	Path string
	Err  error
}

func (e *KeyringError) Error() string {
	return fmt.Sprintf("load keyring %s: %v", e.Path, e.Err)
}

func (e *KeyringError) Unwrap() error { return e.Err }

// SignatureError reports a signature that could not be verified.
type SignatureError struct {
	Artifact string
	Err      error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("verify signature for %s: %v", e.Artifact, e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }
