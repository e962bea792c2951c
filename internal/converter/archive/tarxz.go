package archive

import (
	"archive/tar"
	"bytes"
	"fmt"

	"github.com/ulikunitz/xz"
)

// tarXzWriter builds a GNU tar archive over an XZ stream in memory. The
// ulikunitz/xz writer's default configuration targets a level-6-equivalent
// dictionary size, matching the spec's TarXz level.
type tarXzWriter struct {
	buf *bytes.Buffer
	xzw *xz.Writer
	tw  *tar.Writer
}

func newTarXzWriter() (*tarXzWriter, error) {
	buf := &bytes.Buffer{}
	xzw, err := xz.NewWriter(buf)
	if err != nil {
		return nil, fmt.Errorf("archive: tarxz init: %w", err)
	}
	tw := tar.NewWriter(xzw)
	tw.Format = tar.FormatGNU
	return &tarXzWriter{buf: buf, xzw: xzw, tw: tw}, nil
}

func (w *tarXzWriter) Append(filename string, data []byte) error {
	header := &tar.Header{
		Name: filename + ".html",
		Mode: 0644,
		Size: int64(len(data)),
	}
	if err := w.tw.WriteHeader(header); err != nil {
		return fmt.Errorf("archive: tarxz write header: %w", err)
	}
	if _, err := w.tw.Write(data); err != nil {
		return fmt.Errorf("archive: tarxz write entry: %w", err)
	}
	return nil
}

func (w *tarXzWriter) Finalize() ([]byte, error) {
	if err := w.tw.Close(); err != nil {
		return nil, fmt.Errorf("archive: tarxz close tar: %w", err)
	}
	if err := w.xzw.Close(); err != nil {
		return nil, fmt.Errorf("archive: tarxz close xz: %w", err)
	}
	return w.buf.Bytes(), nil
}
