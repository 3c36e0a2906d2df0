package convert

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

func encodeWithTransformer(t *testing.T, data []byte, encoder transform.Transformer) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := transform.NewWriter(&buf, encoder)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("encode sample: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("finalize encoded sample: %v", err)
	}
	return buf.Bytes()
}

func encodeSample(t *testing.T, data []byte, enc srcEncoding) []byte {
	t.Helper()
	switch enc {
	case encUnknown:
		return data
	case encUTF8:
		return append([]byte{0xEF, 0xBB, 0xBF}, data...)
	case encUTF16BigEndian:
		return encodeWithTransformer(t, data, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder())
	case encUTF16LittleEndian:
		return encodeWithTransformer(t, data, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder())
	case encUTF32BigEndian:
		return encodeWithTransformer(t, data, utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewEncoder())
	case encUTF32LittleEndian:
		return encodeWithTransformer(t, data, utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewEncoder())
	}
	t.Fatalf("unsupported encoding: %v", enc)
	return nil
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func writeZip(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	zf, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zf.Close()

	w := zip.NewWriter(zf)
	for name, data := range files {
		f, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatalf("Failed to write to zip: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finalize zip: %v", err)
	}
}

func TestDetectUTF(t *testing.T) {
	sample := []byte("a { color: red }")
	for _, enc := range []srcEncoding{encUnknown, encUTF8, encUTF16BigEndian, encUTF16LittleEndian, encUTF32BigEndian, encUTF32LittleEndian} {
		if got := detectUTF(encodeSample(t, sample, enc)); got != enc {
			t.Errorf("detectUTF() = %d, want %d", got, enc)
		}
	}
	if got := detectUTF(nil); got != encUnknown {
		t.Errorf("detectUTF(nil) = %d, want %d", got, encUnknown)
	}
}

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("plain text", func(t *testing.T) {
		path := filepath.Join(tmpDir, "test.zip")
		writeFile(t, path, []byte("not a real zip file"))
		got, err := isArchiveFile(path)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("zip with any extension", func(t *testing.T) {
		path := filepath.Join(tmpDir, "styles.bin")
		writeZip(t, path, map[string][]byte{"a.css": []byte("a{}")})
		got, err := isArchiveFile(path)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Error("isArchiveFile() = false, want true")
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(tmpDir, "empty")
		writeFile(t, path, nil)
		if got, err := isArchiveFile(path); err != nil || got {
			t.Errorf("isArchiveFile() = %v, %v", got, err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := isArchiveFile(filepath.Join(tmpDir, "missing")); err == nil {
			t.Error("isArchiveFile() expected error")
		}
	})
}

func TestIsStylesheetFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		data    []byte
		want    bool
		wantEnc srcEncoding
	}{
		{"plain", "a.css", []byte("a{}"), true, encUnknown},
		{"upper case extension", "B.CSS", []byte("a{}"), true, encUnknown},
		{"utf-8 bom", "c.css", encodeSample(t, []byte("a{}"), encUTF8), true, encUTF8},
		{"utf-16le bom", "d.css", encodeSample(t, []byte("a{}"), encUTF16LittleEndian), true, encUTF16LittleEndian},
		{"wrong extension", "e.txt", []byte("a{}"), false, encUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			writeFile(t, path, tt.data)
			got, enc, err := isStylesheetFile(path)
			if err != nil {
				t.Fatalf("isStylesheetFile() error = %v", err)
			}
			if got != tt.want || enc != tt.wantEnc {
				t.Errorf("isStylesheetFile() = %v, %d, want %v, %d", got, enc, tt.want, tt.wantEnc)
			}
		})
	}
}

func TestIsStylesheetInArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.zip")
	writeZip(t, path, map[string][]byte{
		"x/a.css":    encodeSample(t, []byte("a{}"), encUTF32BigEndian),
		"x/b.txt":    []byte("a{}"),
		"x/tiny.css": []byte("a"),
	})

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		got, enc, err := isStylesheetInArchive(f)
		if err != nil {
			t.Errorf("isStylesheetInArchive(%s) error = %v", f.Name, err)
			continue
		}
		switch f.Name {
		case "x/a.css":
			if !got || enc != encUTF32BigEndian {
				t.Errorf("isStylesheetInArchive(%s) = %v, %d", f.Name, got, enc)
			}
		case "x/b.txt":
			if got {
				t.Errorf("isStylesheetInArchive(%s) = true", f.Name)
			}
		case "x/tiny.css":
			if !got || enc != encUnknown {
				t.Errorf("isStylesheetInArchive(%s) = %v, %d", f.Name, got, enc)
			}
		}
	}
}

func TestDecodeStylesheet(t *testing.T) {
	const sample = `a:after { content: "Привет"; color: rgba(0,0,0,.5) }`

	t.Run("bom encodings", func(t *testing.T) {
		for _, enc := range []srcEncoding{encUTF8, encUTF16BigEndian, encUTF16LittleEndian, encUTF32BigEndian, encUTF32LittleEndian} {
			data, label, err := decodeStylesheet(bytes.NewReader(encodeSample(t, []byte(sample), enc)), enc)
			if err != nil {
				t.Errorf("decodeStylesheet(%d) error = %v", enc, err)
				continue
			}
			if string(data) != sample || label != "" {
				t.Errorf("decodeStylesheet(%d) = %q, %q", enc, data, label)
			}
		}
	})

	t.Run("declared charset", func(t *testing.T) {
		src := `@charset "windows-1251";` + "\n" + sample
		encoded, err := charmap.Windows1251.NewEncoder().Bytes([]byte(src))
		if err != nil {
			t.Fatalf("encode sample: %v", err)
		}
		data, label, err := decodeStylesheet(bytes.NewReader(encoded), encUnknown)
		if err != nil {
			t.Fatalf("decodeStylesheet() error = %v", err)
		}
		if string(data) != src {
			t.Errorf("decodeStylesheet() = %q, want %q", data, src)
		}
		if label != "windows-1251" {
			t.Errorf("decodeStylesheet() label = %q", label)
		}
	})

	t.Run("declared utf-8", func(t *testing.T) {
		src := `@charset "UTF-8"; ` + sample
		data, label, err := decodeStylesheet(strings.NewReader(src), encUnknown)
		if err != nil || string(data) != src || label != "" {
			t.Errorf("decodeStylesheet() = %q, %q, %v", data, label, err)
		}
	})

	t.Run("bom wins over charset", func(t *testing.T) {
		src := `@charset "windows-1251"; ` + sample
		data, label, err := decodeStylesheet(bytes.NewReader(encodeSample(t, []byte(src), encUTF8)), encUTF8)
		if err != nil || string(data) != src || label != "" {
			t.Errorf("decodeStylesheet() = %q, %q, %v", data, label, err)
		}
	})

	t.Run("charset not at the start", func(t *testing.T) {
		src := "\n" + `@charset "windows-1251"; ` + sample
		data, label, err := decodeStylesheet(strings.NewReader(src), encUnknown)
		if err != nil || string(data) != src || label != "" {
			t.Errorf("decodeStylesheet() = %q, %q, %v", data, label, err)
		}
	})

	t.Run("unknown charset", func(t *testing.T) {
		if _, _, err := decodeStylesheet(strings.NewReader(`@charset "x-no-such-thing"; a{}`), encUnknown); err == nil {
			t.Error("decodeStylesheet() expected error")
		}
	})
}
