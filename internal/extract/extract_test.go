package extract

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/ZebulonRouseFrantzich/fetchkit/internal/progress"
)

// tarEntry describes one entry for the tar archive test helper. Order
// is preserved, which matters for abort-on-first-failure tests.
type tarEntry struct {
	name     string
	content  string
	mode     int64
	typeflag byte
	linkname string
}

// createTestTar writes a tar (optionally gzipped) archive with the
// given entries and returns its path.
func createTestTar(t *testing.T, compressed bool, entries []tarEntry) string {
	t.Helper()

	suffix := ".tar"
	if compressed {
		suffix = ".tar.gz"
	}
	archivePath := filepath.Join(t.TempDir(), "test"+suffix)

	archiveFile, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer func() { _ = archiveFile.Close() }()

	var tarWriter *tar.Writer
	if compressed {
		gzipWriter := gzip.NewWriter(archiveFile)
		defer func() { _ = gzipWriter.Close() }()
		tarWriter = tar.NewWriter(gzipWriter)
	} else {
		tarWriter = tar.NewWriter(archiveFile)
	}
	defer func() { _ = tarWriter.Close() }()

	for _, ent := range entries {
		typeflag := ent.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}
		mode := ent.mode
		if mode == 0 {
			mode = 0644
		}

		header := &tar.Header{
			Name:     ent.name,
			Mode:     mode,
			Typeflag: typeflag,
			Linkname: ent.linkname,
		}
		if typeflag == tar.TypeReg {
			header.Size = int64(len(ent.content))
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", ent.name, err)
		}
		if typeflag == tar.TypeReg {
			if _, err := tarWriter.Write([]byte(ent.content)); err != nil {
				t.Fatalf("failed to write content for %s: %v", ent.name, err)
			}
		}
	}

	return archivePath
}

// createTestZip writes a zip archive. Names ending in "/" become
// directory entries.
func createTestZip(t *testing.T, entries map[string]string) string {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), "test.zip")
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer func() { _ = archiveFile.Close() }()

	zipWriter := zip.NewWriter(archiveFile)
	defer func() { _ = zipWriter.Close() }()

	for name, content := range entries {
		header := &zip.FileHeader{Name: name, Method: zip.Deflate}
		if name[len(name)-1] == '/' {
			header.SetMode(fs.ModeDir | 0755)
		} else {
			header.SetMode(0644)
		}

		w, err := zipWriter.CreateHeader(header)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write zip entry %s: %v", name, err)
		}
	}

	return archivePath
}

// collectSink records every published event.
type collectSink struct {
	events []progress.Event
}

func (s *collectSink) Publish(e progress.Event) {
	s.events = append(s.events, e)
}

func TestExtractZipScenario(t *testing.T) {
	archivePath := createTestZip(t, map[string]string{
		"a.txt":     "alpha",
		"dir/":      "",
		"dir/b.txt": "bravo",
	})

	destDir := t.TempDir()
	sink := &collectSink{}
	extractor := NewExtractor(WithSink(sink))

	if err := extractor.Extract(context.Background(), archivePath, destDir, FormatZip); err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	// Exactly the three declared filesystem objects
	content, err := os.ReadFile(filepath.Join(destDir, "a.txt"))
	if err != nil {
		t.Fatalf("a.txt missing: %v", err)
	}
	if string(content) != "alpha" {
		t.Errorf("a.txt content = %q, want %q", content, "alpha")
	}

	info, err := os.Stat(filepath.Join(destDir, "dir"))
	if err != nil || !info.IsDir() {
		t.Errorf("dir is not a directory (err=%v)", err)
	}

	content, err = os.ReadFile(filepath.Join(destDir, "dir", "b.txt"))
	if err != nil {
		t.Fatalf("dir/b.txt missing: %v", err)
	}
	if string(content) != "bravo" {
		t.Errorf("dir/b.txt content = %q, want %q", content, "bravo")
	}

	// Exactly one Started, two FileExtracted (file entries only), one Complete
	var started, completed int
	var extracted []progress.FileExtracted
	for _, e := range sink.events {
		switch ev := e.(type) {
		case progress.ExtractionStarted:
			started++
			if ev.ArchiveType != "zip" {
				t.Errorf("ArchiveType = %s, want zip", ev.ArchiveType)
			}
			if ev.FileCount != 2 {
				t.Errorf("started FileCount = %d, want 2", ev.FileCount)
			}
			if ev.Destination != destDir {
				t.Errorf("Destination = %s, want %s", ev.Destination, destDir)
			}
		case progress.FileExtracted:
			extracted = append(extracted, ev)
		case progress.ExtractionComplete:
			completed++
			if ev.FileCount != 2 {
				t.Errorf("complete FileCount = %d, want 2", ev.FileCount)
			}
		}
	}

	if started != 1 {
		t.Errorf("ExtractionStarted published %d times, want 1", started)
	}
	if completed != 1 {
		t.Errorf("ExtractionComplete published %d times, want 1", completed)
	}
	if len(extracted) != 2 {
		t.Fatalf("FileExtracted published %d times, want 2", len(extracted))
	}
	for i, ev := range extracted {
		if ev.Index != i+1 {
			t.Errorf("FileExtracted[%d].Index = %d, want %d", i, ev.Index, i+1)
		}
		if ev.Total != 2 {
			t.Errorf("FileExtracted[%d].Total = %d, want 2", i, ev.Total)
		}
	}

	// First event must be Started, last must be Complete
	if _, ok := sink.events[0].(progress.ExtractionStarted); !ok {
		t.Errorf("first event is %T, want ExtractionStarted", sink.events[0])
	}
	if _, ok := sink.events[len(sink.events)-1].(progress.ExtractionComplete); !ok {
		t.Errorf("last event is %T, want ExtractionComplete", sink.events[len(sink.events)-1])
	}
}

func TestExtractTarFormats(t *testing.T) {
	entries := []tarEntry{
		{name: "file1.txt", content: "content1"},
		{name: "dir1/", typeflag: tar.TypeDir, mode: 0755},
		{name: "dir1/file2.txt", content: "content2"},
		{name: "dir1/dir2/file3.txt", content: "content3"},
	}

	tests := []struct {
		name       string
		compressed bool
		format     Format
	}{
		{name: "plain_tar", compressed: false, format: FormatTar},
		{name: "tar_gz", compressed: true, format: FormatTarGz},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archivePath := createTestTar(t, tt.compressed, entries)
			destDir := t.TempDir()

			extractor := NewExtractor()
			if err := extractor.Extract(context.Background(), archivePath, destDir, tt.format); err != nil {
				t.Fatalf("extraction failed: %v", err)
			}

			for _, ent := range entries {
				if ent.typeflag == tar.TypeDir {
					continue
				}
				content, err := os.ReadFile(filepath.Join(destDir, ent.name))
				if err != nil {
					t.Errorf("failed to read %s: %v", ent.name, err)
					continue
				}
				if string(content) != ent.content {
					t.Errorf("content mismatch for %s:\ngot:  %q\nwant: %q", ent.name, content, ent.content)
				}
			}
		})
	}
}

func TestExtractDeterministic(t *testing.T) {
	archivePath := createTestTar(t, true, []tarEntry{
		{name: "a.txt", content: "alpha"},
		{name: "nested/b.txt", content: "bravo"},
		{name: "nested/deep/c.txt", content: "charlie"},
	})

	destA := t.TempDir()
	destB := t.TempDir()
	extractor := NewExtractor()

	if err := extractor.Extract(context.Background(), archivePath, destA, FormatTarGz); err != nil {
		t.Fatalf("first extraction failed: %v", err)
	}
	if err := extractor.Extract(context.Background(), archivePath, destB, FormatTarGz); err != nil {
		t.Fatalf("second extraction failed: %v", err)
	}

	err := filepath.WalkDir(destA, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(destA, path)
		if err != nil {
			return err
		}
		mirror := filepath.Join(destB, rel)

		if d.IsDir() {
			info, err := os.Stat(mirror)
			if err != nil || !info.IsDir() {
				t.Errorf("directory %s missing from second tree (err=%v)", rel, err)
			}
			return nil
		}

		first, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		second, err := os.ReadFile(mirror)
		if err != nil {
			t.Errorf("file %s missing from second tree: %v", rel, err)
			return nil
		}
		if !bytes.Equal(first, second) {
			t.Errorf("trees differ at %s", rel)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk failed: %v", err)
	}
}

func TestExtractPathTraversalAborts(t *testing.T) {
	archivePath := createTestTar(t, true, []tarEntry{
		{name: "before.txt", content: "written before detection"},
		{name: "../../../etc/evil", content: "escape attempt"},
		{name: "after.txt", content: "must never be written"},
	})

	destDir := t.TempDir()
	sink := &collectSink{}
	extractor := NewExtractor(WithSink(sink))

	err := extractor.Extract(context.Background(), archivePath, destDir, FormatTarGz)
	if err == nil {
		t.Fatal("expected traversal error")
	}

	var traversal *PathTraversalError
	if !errors.As(err, &traversal) {
		t.Fatalf("expected PathTraversalError, got %T: %v", err, err)
	}
	if traversal.Path != "../../../etc/evil" {
		t.Errorf("offending path = %s, want ../../../etc/evil", traversal.Path)
	}

	// Entries before detection stay (documented limitation), entries
	// after must never be written.
	if _, err := os.Stat(filepath.Join(destDir, "before.txt")); err != nil {
		t.Errorf("before.txt should remain on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "after.txt")); !os.IsNotExist(err) {
		t.Error("after.txt was written after the session aborted")
	}

	// No terminal event for an aborted session
	for _, e := range sink.events {
		if _, ok := e.(progress.ExtractionComplete); ok {
			t.Error("ExtractionComplete published for aborted session")
		}
	}
}

func TestExtractDotRootedTar(t *testing.T) {
	// tar -C dir -cf out.tar . produces a "./" root entry and "./"-
	// prefixed names; resolving to the root itself is not an escape.
	archivePath := createTestTar(t, false, []tarEntry{
		{name: "./", typeflag: tar.TypeDir, mode: 0755},
		{name: "./hello.txt", content: "hello"},
		{name: "./sub/", typeflag: tar.TypeDir, mode: 0755},
		{name: "./sub/nested.txt", content: "nested"},
	})

	destDir := t.TempDir()
	extractor := NewExtractor()

	if err := extractor.Extract(context.Background(), archivePath, destDir, FormatTar); err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(destDir, "hello.txt"))
	if err != nil {
		t.Fatalf("hello.txt missing: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("hello.txt content = %q, want %q", content, "hello")
	}

	content, err = os.ReadFile(filepath.Join(destDir, "sub", "nested.txt"))
	if err != nil {
		t.Fatalf("sub/nested.txt missing: %v", err)
	}
	if string(content) != "nested" {
		t.Errorf("sub/nested.txt content = %q, want %q", content, "nested")
	}
}

func TestValidateEntryRootResolution(t *testing.T) {
	destRoot := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "dot_slash", path: "./", wantErr: false},
		{name: "dot", path: ".", wantErr: false},
		{name: "dot_prefixed_child", path: "./child", wantErr: false},
		{name: "parent_escape", path: "..", wantErr: true},
		{name: "dot_slash_escape", path: "./../escape", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ent := &entry{path: tt.path, kind: kindDir}
			_, err := validateEntry(destRoot, ent)

			if tt.wantErr {
				var traversal *PathTraversalError
				if !errors.As(err, &traversal) {
					t.Fatalf("expected PathTraversalError, got %T: %v", err, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestExtractRejectsAbsolutePath(t *testing.T) {
	archivePath := createTestTar(t, false, []tarEntry{
		{name: "/etc/passwd", content: "absolute"},
	})

	destDir := t.TempDir()
	extractor := NewExtractor()

	err := extractor.Extract(context.Background(), archivePath, destDir, FormatTar)
	if err == nil {
		t.Fatal("expected error for absolute path entry")
	}

	var traversal *PathTraversalError
	if !errors.As(err, &traversal) {
		t.Fatalf("expected PathTraversalError, got %T: %v", err, err)
	}
}

func TestExtractRejectsLinkEntries(t *testing.T) {
	tests := []struct {
		name     string
		typeflag byte
		kind     string
	}{
		{name: "symlink", typeflag: tar.TypeSymlink, kind: "symlink"},
		{name: "hardlink", typeflag: tar.TypeLink, kind: "hardlink"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archivePath := createTestTar(t, false, []tarEntry{
				{name: "link", typeflag: tt.typeflag, linkname: "target.txt"},
			})

			destDir := t.TempDir()
			extractor := NewExtractor()

			err := extractor.Extract(context.Background(), archivePath, destDir, FormatTar)
			if err == nil {
				t.Fatal("expected error for link entry")
			}

			var linkErr *LinkEntryError
			if !errors.As(err, &linkErr) {
				t.Fatalf("expected LinkEntryError, got %T: %v", err, err)
			}
			if linkErr.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", linkErr.Kind, tt.kind)
			}

			// The link must not exist in any form
			if _, err := os.Lstat(filepath.Join(destDir, "link")); !os.IsNotExist(err) {
				t.Error("link entry was materialized")
			}
		})
	}
}

func TestValidateEntrySizeCeiling(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		wantErr bool
	}{
		{name: "zero", size: 0, wantErr: false},
		{name: "exactly_ceiling", size: MaxEntrySize, wantErr: false},
		{name: "one_byte_over", size: MaxEntrySize + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ent := &entry{path: "big.bin", kind: kindFile, size: tt.size}
			_, err := validateEntry(t.TempDir(), ent)

			if tt.wantErr {
				var tooLarge *EntryTooLargeError
				if !errors.As(err, &tooLarge) {
					t.Fatalf("expected EntryTooLargeError, got %T: %v", err, err)
				}
				if tooLarge.Size != tt.size {
					t.Errorf("Size = %d, want %d", tooLarge.Size, tt.size)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateEntryOrder(t *testing.T) {
	// A link entry with a traversal path must be reported as traversal:
	// path checks run before kind checks.
	ent := &entry{path: "../escape", kind: kindSymlink}
	_, err := validateEntry(t.TempDir(), ent)

	var traversal *PathTraversalError
	if !errors.As(err, &traversal) {
		t.Fatalf("expected PathTraversalError, got %T: %v", err, err)
	}
}

func TestExtractAppliesModeBits(t *testing.T) {
	archivePath := createTestTar(t, false, []tarEntry{
		{name: "bin/tool", content: "#!/bin/sh\necho ok", mode: 0755},
		{name: "plain.txt", content: "text"},
	})

	destDir := t.TempDir()
	extractor := NewExtractor()

	if err := extractor.Extract(context.Background(), archivePath, destDir, FormatTar); err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(destDir, "bin", "tool"))
	if err != nil {
		t.Fatalf("failed to stat extracted tool: %v", err)
	}
	if info.Mode().Perm()&0111 == 0 {
		t.Error("recorded executable bit was not applied")
	}

	info, err = os.Stat(filepath.Join(destDir, "plain.txt"))
	if err != nil {
		t.Fatalf("failed to stat plain.txt: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("plain.txt mode = %o, want 0644", info.Mode().Perm())
	}
}

func TestExtractWidensDirectoryModes(t *testing.T) {
	archivePath := createTestTar(t, false, []tarEntry{
		{name: "readonly/", typeflag: tar.TypeDir, mode: 0555},
		{name: "readonly/inside.txt", content: "written despite 0555"},
	})

	destDir := t.TempDir()
	extractor := NewExtractor()

	if err := extractor.Extract(context.Background(), archivePath, destDir, FormatTar); err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(destDir, "readonly"))
	if err != nil {
		t.Fatalf("failed to stat directory: %v", err)
	}
	// Recorded bits kept, owner rwx added so the session can write into it
	if got := info.Mode().Perm(); got&0700 != 0700 {
		t.Errorf("directory mode = %o, want owner rwx set", got)
	}
	if got := info.Mode().Perm(); got&0055 != 0055 {
		t.Errorf("directory mode = %o, recorded group/other bits lost", got)
	}

	if _, err := os.Stat(filepath.Join(destDir, "readonly", "inside.txt")); err != nil {
		t.Errorf("file inside recorded-read-only directory missing: %v", err)
	}
}

func TestExtractCorruptedArchive(t *testing.T) {
	corruptedPath := filepath.Join(t.TempDir(), "corrupted.tar.gz")
	if err := os.WriteFile(corruptedPath, []byte("not a valid gzip file"), 0644); err != nil {
		t.Fatalf("failed to create corrupted file: %v", err)
	}

	extractor := NewExtractor()
	err := extractor.Extract(context.Background(), corruptedPath, t.TempDir(), FormatTarGz)
	if err == nil {
		t.Fatal("expected error for corrupted archive")
	}

	var archiveErr *ArchiveError
	if !errors.As(err, &archiveErr) {
		t.Fatalf("expected ArchiveError, got %T: %v", err, err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{name: "zip", input: "release.zip", want: FormatZip},
		{name: "zip_uppercase", input: "RELEASE.ZIP", want: FormatZip},
		{name: "tar", input: "bundle.tar", want: FormatTar},
		{name: "tar_gz", input: "bundle.tar.gz", want: FormatTarGz},
		{name: "tgz", input: "bundle.tgz", want: FormatTarGz},
		{name: "unknown", input: "artifact.rar", wantErr: true},
		{name: "no_extension", input: "artifact", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.input)

			if tt.wantErr {
				var unsupported *UnsupportedFormatError
				if !errors.As(err, &unsupported) {
					t.Fatalf("expected UnsupportedFormatError, got %T: %v", err, err)
				}
				if unsupported.Name != tt.input {
					t.Errorf("Name = %s, want %s", unsupported.Name, tt.input)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat(%s) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractUnknownFormat(t *testing.T) {
	extractor := NewExtractor()
	err := extractor.Extract(context.Background(), "whatever.bin", t.TempDir(), FormatUnknown)

	var unsupported *UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError, got %T: %v", err, err)
	}
}

func TestExtractFileByExtension(t *testing.T) {
	archivePath := createTestZip(t, map[string]string{
		"hello.txt": "hello",
	})

	destDir := t.TempDir()
	extractor := NewExtractor()

	if err := extractor.ExtractFile(context.Background(), archivePath, destDir); err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(destDir, "hello.txt"))
	if err != nil {
		t.Fatalf("failed to read extracted file: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("content = %q, want %q", content, "hello")
	}
}

func TestExtractTarStartedFileCountUnknown(t *testing.T) {
	archivePath := createTestTar(t, false, []tarEntry{
		{name: "one.txt", content: "1"},
		{name: "two.txt", content: "2"},
	})

	sink := &collectSink{}
	extractor := NewExtractor(WithSink(sink))

	if err := extractor.Extract(context.Background(), archivePath, t.TempDir(), FormatTar); err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	started, ok := sink.events[0].(progress.ExtractionStarted)
	if !ok {
		t.Fatalf("first event is %T, want ExtractionStarted", sink.events[0])
	}
	// Streaming tar has no upfront directory
	if started.FileCount != 0 {
		t.Errorf("started FileCount = %d, want 0 for tar", started.FileCount)
	}

	complete, ok := sink.events[len(sink.events)-1].(progress.ExtractionComplete)
	if !ok {
		t.Fatalf("last event is %T, want ExtractionComplete", sink.events[len(sink.events)-1])
	}
	if complete.FileCount != 2 {
		t.Errorf("complete FileCount = %d, want 2", complete.FileCount)
	}
}
