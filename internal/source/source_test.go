package source

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"
)

func tarball(t *testing.T, gz bool, files ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for i := 0; i+1 < len(files); i += 2 {
		hdr := &tar.Header{Name: files[i], Mode: 0o644, Size: int64(len(files[i+1])), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(files[i+1])); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if !gz {
		return buf.Bytes()
	}
	return gzipped(t, "", buf.Bytes())
}

func gzipped(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Name = name
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOpen_PrefersMainTex(t *testing.T) {
	data := tarball(t, true,
		"intro.tex", `\documentclass{article} other`,
		"main.tex", `\section{Main}`,
		"fig.png", "binary",
	)
	src, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if src.Name != "main.tex" || src.Text != `\section{Main}` {
		t.Errorf("unexpected selection %q %q", src.Name, src.Text)
	}
	if len(src.Files) != 3 {
		t.Errorf("expected 3 files listed, got %v", src.Files)
	}
}

func TestOpen_PrefersDocumentClass(t *testing.T) {
	data := tarball(t, true,
		"macros.tex", `\newcommand{\x}{y}`,
		"paper.tex", `\documentclass{article}\begin{document}x\end{document}`,
	)
	src, err := Open(data)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if src.Name != "paper.tex" {
		t.Errorf("expected paper.tex, got %q", src.Name)
	}
}

func TestOpen_FirstTexFallback(t *testing.T) {
	src, err := Open(tarball(t, false, "./b.tex", "b", "a.tex", "a"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if src.Name != "b.tex" {
		t.Errorf("expected b.tex, got %q", src.Name)
	}
}

func TestOpen_NoTeX(t *testing.T) {
	_, err := Open(tarball(t, true, "readme.txt", "hi"))
	if !errors.Is(err, ErrNoTeX) {
		t.Errorf("expected ErrNoTeX, got %v", err)
	}
}

func TestOpen_GzipSingleFile(t *testing.T) {
	src, err := Open(gzipped(t, "paper.tex", []byte(`\section{Only}`)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if src.Name != "paper.tex" || src.Text != `\section{Only}` {
		t.Errorf("unexpected source %q %q", src.Name, src.Text)
	}
}

func TestOpen_PlainCleansUTF8(t *testing.T) {
	src, err := Open([]byte("caf\xe9 \\section{X}"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if src.Text != `caf \section{X}` {
		t.Errorf("unexpected text %q", src.Text)
	}
}

func TestOpen_TooLarge(t *testing.T) {
	old := MaxFileSize
	MaxFileSize = 4
	defer func() { MaxFileSize = old }()

	_, err := Open(gzipped(t, "x.tex", []byte(strings.Repeat("x", 10))))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
}
