// Package digest computes and verifies 160-bit content digests.
//
// All operations share one algorithm (SHA-1, 40 hex characters) and
// differ only in I/O strategy: Compute reads the whole file at once,
// ComputeStreaming hashes in fixed 8 KiB windows. The two always agree
// bit-for-bit; streaming is purely a memory/speed tradeoff.
//
// Digest strings are compared case-insensitively everywhere.
package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// Size is the digest length in bytes (160 bits).
	Size = sha1.Size
	// HexLength is the length of the hex string form.
	HexLength = Size * 2
	// streamWindow is the read window used by ComputeStreaming.
	streamWindow = 8 * 1024
)

// Value is a parsed digest.
type Value [Size]byte

// ParseValue parses a 40-character hex string into a Value.
// Parsing is case-insensitive.
func ParseValue(s string) (Value, error) {
	var v Value
	if len(s) != HexLength {
		return v, fmt.Errorf("digest must be %d hex characters, got %d", HexLength, len(s))
	}
	raw, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		return v, fmt.Errorf("decode digest: %w", err)
	}
	copy(v[:], raw)
	return v, nil
}

// Hex returns the lowercase hex form of the digest.
func (v Value) Hex() string {
	return hex.EncodeToString(v[:])
}

// Equal reports whether the digest equals a hex string, comparing
// case-insensitively. Malformed strings are never equal.
func (v Value) Equal(hexDigest string) bool {
	other, err := ParseValue(hexDigest)
	if err != nil {
		return false
	}
	return v == other
}

// HashBytes hashes an in-memory buffer and returns the hex form.
// It is a pure function, independent of the filesystem.
func HashBytes(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Sum hashes an in-memory buffer and returns the raw digest.
func Sum(data []byte) Value {
	return sha1.Sum(data)
}

// Compute reads the whole file into memory and hashes it once.
// Intended for files below a practical in-memory size; use
// ComputeStreaming for anything large.
func Compute(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	return HashBytes(data), nil
}

// ComputeStreaming reads the file in fixed windows and updates the hash
// incrementally, keeping memory use constant regardless of file size.
func ComputeStreaming(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	defer file.Close()

	hasher := sha1.New()
	buf := make([]byte, streamWindow)
	if _, err := io.CopyBuffer(hasher, file, buf); err != nil {
		return "", &IOError{Path: path, Err: err}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Verify computes the file's digest and compares it against expected,
// case-insensitively. A mismatch is a normal false result, not an
// error; errors are reserved for unreadable files.
func Verify(path, expected string) (bool, error) {
	actual, err := ComputeStreaming(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}

// VerifyStrict computes the file's digest and returns a MismatchError
// when it differs from expected. Used by callers for which a mismatch
// is a fault, not a query result.
func VerifyStrict(path, expected string) error {
	actual, err := ComputeStreaming(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return &MismatchError{Expected: strings.ToLower(expected), Actual: actual}
	}
	return nil
}
