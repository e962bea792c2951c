// Package archive writes converted documents into a single compressed
// archive, one entry per document, in append order.
package archive

import "fmt"

// Format selects the archive container and compression.
type Format string

const (
	FormatZip   Format = "zip"
	FormatTarXz Format = "tzip"
	FormatTarGz Format = "gzip"
)

// Writer accumulates entries and emits a finished archive. Implementations
// are not safe for concurrent use; the pipeline worker is the archive's
// sole writer.
type Writer interface {
	Append(filename string, data []byte) error
	Finalize() ([]byte, error)
}

// New returns a Writer for the requested format.
func New(format Format) (Writer, error) {
	switch format {
	case FormatZip:
		return newZipWriter(), nil
	case FormatTarXz:
		return newTarXzWriter()
	case FormatTarGz:
		return newTarGzWriter(), nil
	default:
		return nil, fmt.Errorf("archive: unknown format %q", format)
	}
}
