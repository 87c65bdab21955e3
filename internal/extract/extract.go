// Package extract decodes ZIP, TAR, and TAR+gzip archives into a
// validated file tree under a destination root.
//
// Every entry is validated strictly before any filesystem write:
// absolute paths are rejected, relative paths must normalize inside the
// destination root (defeating zip-slip traversal), link entries are
// never materialized, and each entry is capped at a hard size ceiling
// against decompression bombs.
//
// A validation or write failure aborts the session; entries written
// before the offending one are not rolled back. That limitation is
// deliberate and documented, not an atomicity guarantee.
package extract

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/fetchkit/internal/progress"
)

const (
	// MaxEntrySize is the hard per-entry ceiling (2 GiB). An entry
	// declaring exactly this size is allowed; one byte over is not.
	MaxEntrySize = 2 << 30

	// defaultFileMode is applied when the archive recorded no
	// permission bits for a file entry.
	defaultFileMode fs.FileMode = 0644
	// defaultDirMode is applied to directory entries and auto-created
	// parents.
	defaultDirMode fs.FileMode = 0755

	copyChunk = 32 * 1024
)

// Extractor handles archive extraction
type Extractor struct {
	sink   progress.Sink
	logger progress.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSink installs a progress sink receiving session events.
func WithSink(s progress.Sink) Option {
	return func(e *Extractor) { e.sink = s }
}

// WithLogger installs a structured logger.
func WithLogger(l progress.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates a new extractor
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		sink:   progress.NopSink{},
		logger: progress.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractFile extracts an archive whose format is resolved from its
// file extension.
func (e *Extractor) ExtractFile(ctx context.Context, archivePath, destRoot string) error {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return err
	}
	return e.Extract(ctx, archivePath, destRoot, format)
}

// Extract extracts an archive of an explicitly chosen format into
// destRoot, creating it as needed.
//
// The session publishes exactly one ExtractionStarted event, one
// FileExtracted per written file entry in entry order, and one terminal
// ExtractionComplete whose count equals the files written. An aborted
// session publishes no terminal event.
//
// Recorded directory modes are widened with owner rwx so the session
// can keep writing into directories it just created; file modes are
// applied exactly as recorded.
func (e *Extractor) Extract(ctx context.Context, archivePath, destRoot string, format Format) error {
	w, fileCount, err := newWalker(archivePath, format)
	if err != nil {
		return err
	}
	defer w.close()

	if err := os.MkdirAll(destRoot, defaultDirMode); err != nil {
		return &IOError{Op: "create dest dir", Path: destRoot, Err: err}
	}

	e.sink.Publish(progress.ExtractionStarted{
		ArchiveType: format.String(),
		FileCount:   fileCount,
		Destination: destRoot,
	})

	written := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ent, contents, err := w.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		target, err := validateEntry(destRoot, ent)
		if err != nil {
			e.logger.Warn("rejected archive entry", "path", ent.path, "error", err)
			return err
		}

		switch ent.kind {
		case kindDir:
			if err := os.MkdirAll(target, dirMode(ent.mode)); err != nil {
				return &IOError{Op: "create directory", Path: target, Err: err}
			}

		case kindFile:
			if err := e.writeEntry(target, ent, contents); err != nil {
				return err
			}
			written++
			e.sink.Publish(progress.FileExtracted{
				FileName: ent.path,
				Index:    written,
				Total:    fileCount,
			})

		default:
			// Device nodes, FIFOs and the like are skipped; link
			// kinds never reach here (validateEntry rejects them).
			e.logger.Debug("skipping archive entry", "path", ent.path, "kind", ent.kind.String())
		}
	}

	e.sink.Publish(progress.ExtractionComplete{FileCount: written})
	e.logger.Debug("extraction complete", "archive", archivePath, "files", written)
	return nil
}

// validateEntry applies the security checks an entry must pass before
// any write happens, in fixed order: absolute path, root escape, link
// kind, size ceiling. It returns the resolved target path.
func validateEntry(destRoot string, ent *entry) (string, error) {
	name := ent.path
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", &PathTraversalError{Path: name}
	}

	// "./" and "." entries normalize to the root itself, which many tar
	// producers emit; resolving to the root is not an escape.
	target := filepath.Join(destRoot, filepath.FromSlash(name))
	cleanRoot := filepath.Clean(destRoot)
	if target != cleanRoot && !strings.HasPrefix(target, cleanRoot+string(os.PathSeparator)) {
		return "", &PathTraversalError{Path: name}
	}

	switch ent.kind {
	case kindSymlink, kindHardlink:
		return "", &LinkEntryError{Path: name, Kind: ent.kind.String()}
	}

	if ent.size > MaxEntrySize {
		return "", &EntryTooLargeError{Path: name, Size: ent.size}
	}

	return target, nil
}

// writeEntry writes one file entry's full contents to target. The copy
// is capped at the size ceiling so a header that under-declares its
// decompressed size cannot blow past it.
func (e *Extractor) writeEntry(target string, ent *entry, contents io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), defaultDirMode); err != nil {
		return &IOError{Op: "create parent dir", Path: target, Err: err}
	}

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode(ent.mode))
	if err != nil {
		return &IOError{Op: "create file", Path: target, Err: err}
	}

	written, err := copyCapped(outFile, contents)
	if closeErr := outFile.Close(); err == nil && closeErr != nil {
		err = &IOError{Op: "close file", Path: target, Err: closeErr}
	}
	if err != nil {
		return err
	}

	if written > MaxEntrySize {
		os.Remove(target)
		return &EntryTooLargeError{Path: ent.path, Size: written}
	}

	return nil
}

// copyCapped streams contents to dst, reading at most one byte past the
// ceiling so overruns are detectable without unbounded writes. Read
// faults are container faults; write faults are local I/O faults.
func copyCapped(dst *os.File, contents io.Reader) (int64, error) {
	limited := io.LimitReader(contents, MaxEntrySize+1)
	buf := make([]byte, copyChunk)
	var written int64

	for {
		n, readErr := limited.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, &IOError{Op: "write file", Path: dst.Name(), Err: writeErr}
			}
			written += int64(n)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, &ArchiveError{Detail: "read entry contents", Err: readErr}
		}
	}
}

func fileMode(recorded fs.FileMode) fs.FileMode {
	if recorded == 0 {
		return defaultFileMode
	}
	return recorded
}

func dirMode(recorded fs.FileMode) fs.FileMode {
	if recorded == 0 {
		return defaultDirMode
	}
	// Directories must stay traversable by their owner
	return recorded | 0700
}
