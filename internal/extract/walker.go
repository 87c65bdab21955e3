package extract

import (
	"archive/tar"
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// entryKind classifies an archive entry as declared by the container.
type entryKind int

const (
	kindFile entryKind = iota
	kindDir
	kindSymlink
	kindHardlink
	kindOther
)

func (k entryKind) String() string {
	switch k {
	case kindFile:
		return "file"
	case kindDir:
		return "directory"
	case kindSymlink:
		return "symlink"
	case kindHardlink:
		return "hardlink"
	default:
		return "other"
	}
}

// entry is an archive entry exactly as the container declared it.
// Nothing here is trusted until it passes validateEntry.
type entry struct {
	path string
	kind entryKind
	size int64
	mode fs.FileMode // permission bits; 0 when the archive recorded none
}

// walker iterates the entries of one archive format. next returns the
// entry, a reader over its contents (nil for non-file entries), and
// io.EOF after the last entry.
type walker interface {
	next() (*entry, io.Reader, error)
	close() error
}

// newWalker opens the archive with the walker for its format. The
// returned count is the number of file entries when the format has an
// upfront directory (zip); 0 for streaming formats.
func newWalker(archivePath string, format Format) (walker, int, error) {
	switch format {
	case FormatZip:
		return newZipWalker(archivePath)
	case FormatTar:
		return newTarWalker(archivePath, false)
	case FormatTarGz:
		return newTarWalker(archivePath, true)
	default:
		return nil, 0, &UnsupportedFormatError{Name: format.String()}
	}
}

// zipWalker walks a ZIP central directory.
type zipWalker struct {
	rc      *zip.ReadCloser
	index   int
	current io.ReadCloser
}

func newZipWalker(archivePath string) (walker, int, error) {
	rc, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, 0, &ArchiveError{Detail: "open zip", Err: err}
	}

	fileCount := 0
	for _, f := range rc.File {
		if zipKind(f) == kindFile {
			fileCount++
		}
	}

	return &zipWalker{rc: rc}, fileCount, nil
}

func (w *zipWalker) next() (*entry, io.Reader, error) {
	if w.current != nil {
		w.current.Close()
		w.current = nil
	}

	if w.index >= len(w.rc.File) {
		return nil, nil, io.EOF
	}

	f := w.rc.File[w.index]
	w.index++

	ent := &entry{
		path: f.Name,
		kind: zipKind(f),
		size: int64(f.UncompressedSize64),
		mode: f.Mode().Perm(),
	}

	if ent.kind != kindFile {
		return ent, nil, nil
	}

	rc, err := f.Open()
	if err != nil {
		return nil, nil, &ArchiveError{Detail: "open zip entry " + f.Name, Err: err}
	}
	w.current = rc
	return ent, rc, nil
}

func (w *zipWalker) close() error {
	if w.current != nil {
		w.current.Close()
		w.current = nil
	}
	return w.rc.Close()
}

// zipKind classifies a zip entry from its recorded mode and name.
func zipKind(f *zip.File) entryKind {
	mode := f.Mode()
	switch {
	case mode&fs.ModeSymlink != 0:
		return kindSymlink
	case mode.IsDir(), strings.HasSuffix(f.Name, "/"):
		return kindDir
	case mode.IsRegular():
		return kindFile
	default:
		return kindOther
	}
}

// tarWalker walks a TAR stream, optionally gzip-compressed.
type tarWalker struct {
	file *os.File
	gz   *gzip.Reader
	tr   *tar.Reader
}

func newTarWalker(archivePath string, compressed bool) (walker, int, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, 0, &IOError{Op: "open archive", Path: archivePath, Err: err}
	}

	w := &tarWalker{file: file}
	var src io.Reader = file

	if compressed {
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, 0, &ArchiveError{Detail: "create gzip reader", Err: err}
		}
		w.gz = gz
		src = gz
	}

	w.tr = tar.NewReader(src)
	return w, 0, nil
}

func (w *tarWalker) next() (*entry, io.Reader, error) {
	header, err := w.tr.Next()
	if err == io.EOF {
		return nil, nil, io.EOF
	}
	if err != nil {
		return nil, nil, &ArchiveError{Detail: "read tar header", Err: err}
	}

	ent := &entry{
		path: header.Name,
		kind: tarKind(header.Typeflag),
		size: header.Size,
		mode: fs.FileMode(header.Mode).Perm(),
	}

	if ent.kind != kindFile {
		return ent, nil, nil
	}
	return ent, w.tr, nil
}

func (w *tarWalker) close() error {
	if w.gz != nil {
		w.gz.Close()
	}
	return w.file.Close()
}

func tarKind(typeflag byte) entryKind {
	switch typeflag {
	case tar.TypeReg:
		return kindFile
	case tar.TypeDir:
		return kindDir
	case tar.TypeSymlink:
		return kindSymlink
	case tar.TypeLink:
		return kindHardlink
	default:
		return kindOther
	}
}
