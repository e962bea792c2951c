package decompress

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

func compress(t *testing.T, plain []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecompressRoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("hello ubl "), 100)
	compressed := compress(t, plain)

	out, err := Decompress(compressed, int64(len(plain)))
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestDecompressRejectsOversizedOutput(t *testing.T) {
	plain := bytes.Repeat([]byte("x"), 1000)
	compressed := compress(t, plain)

	_, err := Decompress(compressed, 10)
	assert.Error(t, err)
}

func TestDecompressWithTimeoutCancelled(t *testing.T) {
	plain := bytes.Repeat([]byte("y"), 1000)
	compressed := compress(t, plain)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DecompressWithTimeout(ctx, compressed, int64(len(plain)), time.Second)
	assert.Error(t, err)
}

func TestDecompressWithTimeoutSucceeds(t *testing.T) {
	plain := bytes.Repeat([]byte("z"), 1000)
	compressed := compress(t, plain)

	out, err := DecompressWithTimeout(context.Background(), compressed, int64(len(plain)), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}
