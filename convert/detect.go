package convert

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func (e srcEncoding) String() string {
	switch e {
	case encUnknown:
		return "unknown"
	case encUTF8:
		return "utf8"
	case encUTF16BigEndian:
		return "utf16be"
	case encUTF16LittleEndian:
		return "utf16le"
	case encUTF32BigEndian:
		return "utf32be"
	case encUTF32LittleEndian:
		return "utf32le"
	default:
		return fmt.Sprintf("srcEncoding(%d)", int(e))
	}
}

// amount of data sufficient for all detections we do
const headSize = 512

const stylesheetExt = ".css"

func isUTF8BOM3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// detectUTF looks for byte order mark. UTF-32 is checked first since its
// little endian mark starts with UTF-16 one.
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

// selectReader returns reader producing UTF-8 text with byte order mark
// removed.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return unicode.UTF8BOM.NewDecoder().Reader(r)
	case encUTF16BigEndian:
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Reader(r)
	case encUTF16LittleEndian:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Reader(r)
	case encUTF32BigEndian:
		return utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder().Reader(r)
	case encUTF32LittleEndian:
		return utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder().Reader(r)
	default:
		// this should never happen
		panic(fmt.Sprintf("unsupported source encoding %d", enc))
	}
}

func readHead(r io.Reader) ([]byte, error) {
	buf := make([]byte, headSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

func isArchiveFile(fname string) (bool, error) {
	f, err := os.Open(fname)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}

func hasStylesheetExt(name string) bool {
	return strings.EqualFold(path.Ext(strings.ReplaceAll(name, `\`, "/")), stylesheetExt)
}

// isStylesheet checks file content: anything filetype recognizes as known
// binary format is not a stylesheet regardless of its name.
func isStylesheet(head []byte) (bool, srcEncoding) {
	enc := detectUTF(head)
	if enc == encUnknown {
		if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
			return false, encUnknown
		}
		if bytes.IndexByte(head, 0) >= 0 {
			return false, encUnknown
		}
	}
	return true, enc
}

func isStylesheetFile(fname string) (bool, srcEncoding, error) {
	if !hasStylesheetExt(fname) {
		return false, encUnknown, nil
	}

	f, err := os.Open(fname)
	if err != nil {
		return false, encUnknown, err
	}
	defer f.Close()

	head, err := readHead(f)
	if err != nil {
		return false, encUnknown, err
	}
	ok, enc := isStylesheet(head)
	return ok, enc, nil
}

// isStylesheetInArchive uses decoded name of the entry for extension check.
func isStylesheetInArchive(f *zip.File, name string) (bool, srcEncoding, error) {
	if !hasStylesheetExt(name) {
		return false, encUnknown, nil
	}

	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	head, err := readHead(r)
	if err != nil {
		return false, encUnknown, err
	}
	ok, enc := isStylesheet(head)
	return ok, enc, nil
}
