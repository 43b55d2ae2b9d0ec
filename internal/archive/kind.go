// Package archive reads the documents mekuri can open: comic archives
// (zip/cbz, rar/cbr, 7z/cb7) and PDFs.
package archive

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupported is returned for files that are neither an archive nor a PDF
	ErrUnsupported = errors.New("unsupported file format")

	// ErrEntryNotFound is returned when an archive has no entry of the given name
	ErrEntryNotFound = errors.New("entry not found")
)

// Kind classifies a file by what the viewer does with it
type Kind int

const (
	KindUnknown Kind = iota
	KindArchive
	KindPDF
)

func (k Kind) String() string {
	switch k {
	case KindArchive:
		return "archive"
	case KindPDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// format identifies the reader backend for an archive
type format int

const (
	formatNone format = iota
	formatZip
	formatRar
	formatSevenZip
)

func detectFormat(name string) format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".zip", ".cbz":
		return formatZip
	case ".rar", ".cbr":
		return formatRar
	case ".7z", ".cb7":
		return formatSevenZip
	default:
		return formatNone
	}
}

// DetectKind classifies path by its extension
func DetectKind(path string) Kind {
	if detectFormat(path) != formatNone {
		return KindArchive
	}
	if IsPDF(path) {
		return KindPDF
	}
	return KindUnknown
}

// IsArchive reports whether name has a supported archive extension
func IsArchive(name string) bool {
	return detectFormat(name) != formatNone
}

// IsPDF reports whether name has a .pdf extension
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// IsImage reports whether name has a decodable image extension
func IsImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp", ".bmp", ".gif":
		return true
	default:
		return false
	}
}

// MimeType guesses the MIME type of an image entry. Unknown extensions
// are reported as JPEG.
func MimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/jpeg"
	}
}
