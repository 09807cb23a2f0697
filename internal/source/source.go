// Package source turns a downloaded source bundle (gzip'd tar, gzip'd single
// file, bare tar or plain text) into the text of its main LaTeX file.
package source

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	// ErrNoTeX means the bundle holds no .tex file.
	ErrNoTeX = errors.New("source: no .tex file found")

	ErrTooLarge = errors.New("source: file exceeds maximum size")
)

// MaxFileSize limits a single extracted file.
var MaxFileSize int64 = 64 << 20

// Source is the selected main file of a bundle.
type Source struct {
	Name  string   `json:"name"`
	Text  string   `json:"-"`
	Files []string `json:"files"`
}

type file struct {
	name string
	data []byte
}

// Open inspects data and returns the main .tex file. Invalid UTF-8 is
// replaced rather than rejected.
func Open(data []byte) (*Source, error) {
	if isGzip(data) {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip: %w", err)
		}
		defer zr.Close()

		inner, err := readLimited(zr)
		if err != nil {
			return nil, fmt.Errorf("gunzip: %w", err)
		}
		if isTar(inner) {
			return fromTar(inner)
		}
		name := zr.Name
		if name == "" {
			name = "main.tex"
		}
		return single(name, inner), nil
	}
	if isTar(data) {
		return fromTar(data)
	}
	return single("main.tex", data), nil
}

func single(name string, data []byte) *Source {
	return &Source{Name: name, Text: clean(data), Files: []string{name}}
}

func fromTar(data []byte) (*Source, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	var files []file
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Clean(strings.TrimPrefix(hdr.Name, "./"))
		names = append(names, name)
		if !strings.EqualFold(path.Ext(name), ".tex") {
			continue
		}
		body, err := readLimited(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		files = append(files, file{name: name, data: body})
	}

	chosen, ok := selectMain(files)
	if !ok {
		return nil, ErrNoTeX
	}
	return &Source{Name: chosen.name, Text: clean(chosen.data), Files: names}, nil
}

// selectMain prefers a top-level main.tex, then the first file declaring a
// document class, then the first .tex in archive order.
func selectMain(files []file) (file, bool) {
	if len(files) == 0 {
		return file{}, false
	}
	for _, f := range files {
		if strings.EqualFold(f.name, "main.tex") {
			return f, true
		}
	}
	for _, f := range files {
		if bytes.Contains(f.data, []byte(`\documentclass`)) {
			return f, true
		}
	}
	return files[0], true
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

func clean(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// isTar checks for the ustar magic in the first header block.
func isTar(data []byte) bool {
	return len(data) >= 512 && bytes.HasPrefix(data[257:], []byte("ustar"))
}
