// Package stream opens and creates record dumps and scripts, compressing
// them according to the file suffix.
package stream

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Encoding is a compression format.
type Encoding int

const (
	Plain Encoding = iota
	Zstd
	Brotli
	Gzip
)

func (e Encoding) String() string {
	switch e {
	case Zstd:
		return "zstd"
	case Brotli:
		return "br"
	case Gzip:
		return "gzip"
	default:
		return "plain"
	}
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// EncodingFor picks the encoding from a file name: .zst, .br or .gz.
func EncodingFor(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return Zstd
	case ".br":
		return Brotli
	case ".gz":
		return Gzip
	default:
		return Plain
	}
}

// Sniff detects zstd and gzip streams by their magic number. Brotli has no
// magic number and is only recognised by suffix.
func Sniff(br *bufio.Reader) Encoding {
	head, _ := br.Peek(4)
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	default:
		return Plain
	}
}

// NewReader wraps r with a decompressor for enc.
func NewReader(r io.Reader, enc Encoding) (io.ReadCloser, error) {
	switch enc {
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	case Brotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	case Gzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return gr, nil
	default:
		return io.NopCloser(r), nil
	}
}

// NewWriter wraps w with a compressor for enc. Closing the returned writer
// flushes the compressor but does not close w.
func NewWriter(w io.Writer, enc Encoding) (io.WriteCloser, error) {
	switch enc {
	case Zstd:
		e, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return e, nil
	case Brotli:
		return brotli.NewWriter(w), nil
	case Gzip:
		return gzip.NewWriter(w), nil
	default:
		return nopWriteCloser{w}, nil
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Open opens path for reading. The encoding comes from the suffix, or from
// the content when the suffix says nothing.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	enc := EncodingFor(path)
	if enc == Plain {
		enc = Sniff(br)
	}

	rc, err := NewReader(br, enc)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &closers{Reader: rc, close: []io.Closer{rc, f}}, nil
}

// Create creates or truncates path and compresses what is written according
// to its suffix.
func Create(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	wc, err := NewWriter(f, EncodingFor(path))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &closers{Writer: wc, close: []io.Closer{wc, f}}, nil
}

// closers closes the compressor before the file underneath it.
type closers struct {
	io.Reader
	io.Writer
	close []io.Closer
}

func (c *closers) Close() error {
	var first error
	for _, cl := range c.close {
		if err := cl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
