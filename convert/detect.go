package convert

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// srcEncoding is an encoding detected by BOM.
type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

// enough for both BOM and zip signature
const sniffLen = 262

func isUTF32BigEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

func isUTF8BOM3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE
}

// detectUTF checks BOM, 4 byte marks go first since UTF-32LE mark starts with
// UTF-16LE one.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case isUTF32BigEndianBOM4(buf):
		return encUTF32BigEndian
	case isUTF32LittleEndianBOM4(buf):
		return encUTF32LittleEndian
	case isUTF8BOM3(buf):
		return encUTF8
	case isUTF16BigEndianBOM2(buf):
		return encUTF16BigEndian
	case isUTF16LittleEndianBOM2(buf):
		return encUTF16LittleEndian
	}
	return encUnknown
}

// selectReader returns reader producing UTF-8 without BOM for known
// encodings, unknown encoding is passed as is.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	}
	panic(fmt.Sprintf("unexpected source encoding %d", enc))
}

func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return head[:n], nil
}

// isArchiveFile checks file content for zip signature.
func isArchiveFile(path string) (bool, error) {
	head, err := readHead(path)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}

func hasStylesheetExt(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".css")
}

// isStylesheetFile checks file extension and detects encoding by BOM.
func isStylesheetFile(path string) (bool, srcEncoding, error) {
	if !hasStylesheetExt(path) {
		return false, encUnknown, nil
	}
	head, err := readHead(path)
	if err != nil {
		return false, encUnknown, err
	}
	return true, detectUTF(head), nil
}

// isStylesheetInArchive does the same as isStylesheetFile for archive entry.
func isStylesheetInArchive(f *zip.File) (bool, srcEncoding, error) {
	if !hasStylesheetExt(f.FileHeader.Name) {
		return false, encUnknown, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	head := make([]byte, 4)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, encUnknown, err
	}
	return true, detectUTF(head[:n]), nil
}

// charsetRule matches @charset at the very beginning of the stylesheet, it
// has to be written exactly this way to count.
var charsetRule = regexp.MustCompile(`^@charset "([^"]*)";`)

// decodeStylesheet reads stylesheet and returns it in UTF-8. BOM has priority,
// otherwise declared @charset is used. Returned label is the encoding input
// has been decoded from, empty when input was taken as UTF-8.
func decodeStylesheet(r io.Reader, enc srcEncoding) ([]byte, string, error) {
	data, err := io.ReadAll(selectReader(r, enc))
	if err != nil {
		return nil, "", fmt.Errorf("unable to read stylesheet: %w", err)
	}
	if enc != encUnknown {
		return data, "", nil
	}

	m := charsetRule.FindSubmatch(data)
	if m == nil {
		return data, "", nil
	}
	label := strings.ToLower(strings.TrimSpace(string(m[1])))
	if label == "utf-8" || label == "utf8" {
		return data, "", nil
	}

	cr, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unsupported stylesheet charset %q: %w", label, err)
	}
	decoded, err := io.ReadAll(cr)
	if err != nil {
		return nil, "", fmt.Errorf("unable to decode stylesheet from %q: %w", label, err)
	}
	return decoded, label, nil
}
