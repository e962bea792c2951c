package xslt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// XsltprocEngine shells out to the xsltproc binary. The stylesheet is
// materialized to a temp file once at Compile time and reused for every
// Transform call against that Compiled handle.
type XsltprocEngine struct {
	binaryPath string
}

// NewXsltprocEngine returns an Engine backed by the given xsltproc binary
// path (e.g. cfg.Converter.XSLT.XsltprocPath).
func NewXsltprocEngine(binaryPath string) *XsltprocEngine {
	return &XsltprocEngine{binaryPath: binaryPath}
}

// xsltprocCompiled wraps the on-disk stylesheet path xsltproc reads from
// on every Transform call; xsltproc has no separate compile step, so
// Compile's only job is to stage the file.
type xsltprocCompiled struct {
	path string
}

func (c *xsltprocCompiled) Close() error {
	return os.Remove(c.path)
}

// Compile writes the stylesheet to a temp file so Transform can hand
// xsltproc a path rather than re-materializing the bytes per call.
func (e *XsltprocEngine) Compile(_ context.Context, stylesheet []byte) (Compiled, error) {
	f, err := os.CreateTemp("", "style-*.xslt")
	if err != nil {
		return nil, fmt.Errorf("xsltproc: create temp stylesheet: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(stylesheet); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("xsltproc: write temp stylesheet: %w", err)
	}

	return &xsltprocCompiled{path: f.Name()}, nil
}

// Transform writes xmlData to a temp file and runs xsltproc <stylesheet>
// <xml> with the compiled stylesheet's staged path.
func (e *XsltprocEngine) Transform(ctx context.Context, compiled Compiled, xmlData []byte) ([]byte, error) {
	c, ok := compiled.(*xsltprocCompiled)
	if !ok {
		return nil, fmt.Errorf("xsltproc: compiled handle from a different engine")
	}

	xmlFile, err := os.CreateTemp("", "input-*.xml")
	if err != nil {
		return nil, fmt.Errorf("xsltproc: create temp input: %w", err)
	}
	defer os.Remove(xmlFile.Name())

	if _, err := xmlFile.Write(xmlData); err != nil {
		xmlFile.Close()
		return nil, fmt.Errorf("xsltproc: write temp input: %w", err)
	}
	if err := xmlFile.Close(); err != nil {
		return nil, fmt.Errorf("xsltproc: close temp input: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.binaryPath, c.path, xmlFile.Name())
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("xsltproc: %w: %s", err, stderr.String())
	}

	return stdout.Bytes(), nil
}
