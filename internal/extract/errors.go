package extract

import "fmt"

// UnsupportedFormatError reports an archive whose format could not be
// resolved or is not handled.
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported archive format: %s", e.Name)
}

// IOError reports a local filesystem fault while writing entries.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ArchiveError reports a malformed or unreadable container.
type ArchiveError struct {
	Detail string
	Err    error
}

func (e *ArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("archive error: %s", e.Detail)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// PathTraversalError reports an entry whose declared path would resolve
// outside the destination root. It aborts the whole session.
type PathTraversalError struct {
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path traversal attempt: %s", e.Path)
}

// LinkEntryError reports a symlink or hardlink entry. Link kinds are
// rejected unconditionally; extraction never creates links.
type LinkEntryError struct {
	Path string
	Kind string
}

func (e *LinkEntryError) Error() string {
	return fmt.Sprintf("refusing to extract %s entry: %s", e.Kind, e.Path)
}

// EntryTooLargeError reports an entry whose declared or decompressed
// size exceeds the per-entry ceiling.
type EntryTooLargeError struct {
	Path string
	Size int64
}

func (e *EntryTooLargeError) Error() string {
	return fmt.Sprintf("entry %s exceeds size ceiling (%d bytes)", e.Path, e.Size)
}
