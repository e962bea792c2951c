// Package decompress decodes XZ-compressed UBL and XSLT blobs fetched from
// the object store.
package decompress

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ulikunitz/xz"
)

// AsyncThreshold is the decompressed-size (original_size) boundary at or
// above which the manager offloads decompression instead of running it
// inline.
const AsyncThreshold = 2 * 1024 * 1024 // 2 MiB

// sizeSlack bounds how far the decoded length may exceed the object store's
// reported original_size before the result is treated as corrupt.
const sizeSlack = 32

// Decompress decodes XZ-compressed content, pre-sizing the output buffer to
// originalSize plus slack. It fails if the decoded length exceeds
// originalSize+32, which guards against a mismatched or corrupt record.
func Decompress(content []byte, originalSize int64) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("xz reader: %w", err)
	}

	out := bytes.NewBuffer(make([]byte, 0, originalSize+sizeSlack))
	if _, err := io.Copy(out, r); err != nil {
		return nil, fmt.Errorf("xz decode: %w", err)
	}

	if int64(out.Len()) > originalSize+sizeSlack {
		return nil, fmt.Errorf("decompressed size %d exceeds original_size %d by more than %d bytes", out.Len(), originalSize, sizeSlack)
	}

	return out.Bytes(), nil
}

// DecompressWithTimeout runs Decompress on a separate goroutine bounded by
// timeout, for use when the manager offloads a large decompression. It
// returns ctx.Err() if ctx is cancelled first, and a deadline-exceeded error
// if timeout elapses first.
func DecompressWithTimeout(ctx context.Context, content []byte, originalSize int64, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := Decompress(content, originalSize)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.data, res.err
	}
}
