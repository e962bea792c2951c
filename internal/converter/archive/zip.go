package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// zipWriter builds a Deflate-compressed zip archive in memory, with every
// entry named "<filename>.html" and mode 0644.
type zipWriter struct {
	buf *bytes.Buffer
	zw  *zip.Writer
}

func newZipWriter() *zipWriter {
	buf := &bytes.Buffer{}
	return &zipWriter{buf: buf, zw: zip.NewWriter(buf)}
}

func (w *zipWriter) Append(filename string, data []byte) error {
	header := &zip.FileHeader{
		Name:   filename + ".html",
		Method: zip.Deflate,
	}
	header.SetMode(0644)

	entry, err := w.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("archive: zip create entry: %w", err)
	}
	if _, err := entry.Write(data); err != nil {
		return fmt.Errorf("archive: zip write entry: %w", err)
	}
	return nil
}

func (w *zipWriter) Finalize() ([]byte, error) {
	if err := w.zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: zip finalize: %w", err)
	}
	return w.buf.Bytes(), nil
}
