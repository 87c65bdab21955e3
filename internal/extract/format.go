package extract

import "strings"

// Format identifies a supported archive container. It is resolved once
// at the boundary (by extension or explicit caller input) and then
// dispatched through a per-format walker; nothing deeper in the
// pipeline matches on strings.
type Format int

const (
	// FormatUnknown is the zero value; Extract rejects it.
	FormatUnknown Format = iota
	// FormatZip is a ZIP container.
	FormatZip
	// FormatTar is an uncompressed TAR container.
	FormatTar
	// FormatTarGz is a gzip-compressed TAR container.
	FormatTarGz
)

// String returns the conventional name of the format.
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGz:
		return "tar.gz"
	default:
		return "unknown"
	}
}

// ParseFormat resolves an explicitly named format ("zip", "tar",
// "tar.gz", "tgz").
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "zip":
		return FormatZip, nil
	case "tar":
		return FormatTar, nil
	case "tar.gz", "tgz":
		return FormatTarGz, nil
	default:
		return FormatUnknown, &UnsupportedFormatError{Name: name}
	}
}

// DetectFormat resolves an archive format from a file name's extension.
// Recognized: .zip, .tar, .tar.gz, .tgz.
func DetectFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(lower, ".tar"):
		return FormatTar, nil
	default:
		return FormatUnknown, &UnsupportedFormatError{Name: name}
	}
}
