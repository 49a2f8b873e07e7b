package convert

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

const sampleCSS = "p {\n  color: black;\n  @plumber {\n    font-size: 1;\n  }\n}\n"

// TestIsArchiveFile tests archive file detection
func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("text file", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.css")
		if err := os.WriteFile(filePath, []byte(sampleCSS), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.zip")
		if err := os.WriteFile(filePath, []byte("not a real zip file"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("valid zip file", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "styles.bin")
		zipFile, err := os.Create(filePath)
		if err != nil {
			t.Fatalf("Failed to create zip file: %v", err)
		}
		w := zip.NewWriter(zipFile)
		f, err := w.Create("site.css")
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		f.Write([]byte(sampleCSS))
		w.Close()
		zipFile.Close()

		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Error("isArchiveFile() = false, want true (detection must not depend on extension)")
		}
	})

	t.Run("empty file", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "empty")
		if err := os.WriteFile(filePath, nil, 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil || got {
			t.Errorf("isArchiveFile() = %v, %v, want false, nil", got, err)
		}
	})
}

func TestIsArchiveFile_NonExistent(t *testing.T) {
	if _, err := isArchiveFile("/nonexistent/file.zip"); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestDetectUTF(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want srcEncoding
	}{
		{"UTF-8 BOM", []byte{0xEF, 0xBB, 0xBF, 0x00}, encUTF8},
		{"UTF-16 Big Endian BOM", []byte{0xFE, 0xFF, 0x00, 0x00}, encUTF16BigEndian},
		{"UTF-16 Little Endian BOM", []byte{0xFF, 0xFE, 0x01, 0x00}, encUTF16LittleEndian},
		{"UTF-32 Big Endian BOM", []byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
		{"UTF-32 Little Endian BOM", []byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
		{"No BOM", []byte("p {}"), encUnknown},
		{"Short", []byte{0xFF}, encUnknown},
		{"Empty", nil, encUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectUTF(tt.buf); got != tt.want {
				t.Errorf("detectUTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBOMDetectionFunctions(t *testing.T) {
	if !isUTF8BOM3([]byte{0xEF, 0xBB, 0xBF}) || isUTF8BOM3([]byte{0xEF, 0xBB}) {
		t.Error("isUTF8BOM3 misdetects")
	}
	if !isUTF16BigEndianBOM2([]byte{0xFE, 0xFF}) || isUTF16BigEndianBOM2([]byte{0xFF, 0xFE}) {
		t.Error("isUTF16BigEndianBOM2 misdetects")
	}
	if !isUTF16LittleEndianBOM2([]byte{0xFF, 0xFE}) || isUTF16LittleEndianBOM2([]byte{0xFE, 0xFF}) {
		t.Error("isUTF16LittleEndianBOM2 misdetects")
	}
	if !isUTF32BigEndianBOM4([]byte{0x00, 0x00, 0xFE, 0xFF}) || isUTF32BigEndianBOM4([]byte{0xFF, 0xFE, 0x00, 0x00}) {
		t.Error("isUTF32BigEndianBOM4 misdetects")
	}
	if !isUTF32LittleEndianBOM4([]byte{0xFF, 0xFE, 0x00, 0x00}) || isUTF32LittleEndianBOM4([]byte{0x00, 0x00, 0xFE, 0xFF}) {
		t.Error("isUTF32LittleEndianBOM4 misdetects")
	}
}

func TestIsStylesheetFile(t *testing.T) {
	tmpDir := t.TempDir()
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}

	tests := []struct {
		name     string
		filename string
		content  []byte
		want     bool
		wantEnc  srcEncoding
	}{
		{"plain stylesheet", "site.css", []byte(sampleCSS), true, encUnknown},
		{"stylesheet with UTF-8 BOM", "bom.css", append([]byte{0xEF, 0xBB, 0xBF}, sampleCSS...), true, encUTF8},
		{"UTF-16 stylesheet", "wide.css", readAll(t, readerForEncoding(t, []byte(sampleCSS), encUTF16LittleEndian)), true, encUTF16LittleEndian},
		{"uppercase extension", "SITE.CSS", []byte(sampleCSS), true, encUnknown},
		{"empty stylesheet", "empty.css", nil, true, encUnknown},
		{"other extension", "site.txt", []byte(sampleCSS), false, encUnknown},
		{"image named as stylesheet", "image.css", png, false, encUnknown},
		{"binary content", "binary.css", []byte("p {\x00}"), false, encUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, tt.filename)
			if err := os.WriteFile(filePath, tt.content, 0644); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			got, enc, err := isStylesheetFile(filePath)
			if err != nil {
				t.Fatalf("isStylesheetFile() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("isStylesheetFile() = %v, want %v", got, tt.want)
			}
			if enc != tt.wantEnc {
				t.Errorf("isStylesheetFile() encoding = %v, want %v", enc, tt.wantEnc)
			}
		})
	}
}

func TestIsStylesheetFile_NonExistent(t *testing.T) {
	if _, _, err := isStylesheetFile("/nonexistent/file.css"); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestIsStylesheetInArchive(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	w := zip.NewWriter(zipFile)
	for _, e := range []struct {
		name    string
		content []byte
	}{
		{"site.css", []byte(sampleCSS)},
		{"readme.txt", []byte("not a stylesheet")},
		{"bom.css", append([]byte{0xEF, 0xBB, 0xBF}, sampleCSS...)},
	} {
		f, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate})
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		f.Write(e.content)
	}
	w.Close()
	zipFile.Close()

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("Failed to open zip: %v", err)
	}
	defer r.Close()

	tests := []struct {
		idx     int
		want    bool
		wantEnc srcEncoding
	}{
		{0, true, encUnknown},
		{1, false, encUnknown},
		{2, true, encUTF8},
	}
	for _, tt := range tests {
		f := r.File[tt.idx]
		got, enc, err := isStylesheetInArchive(f, f.Name)
		if err != nil {
			t.Errorf("%s: isStylesheetInArchive() error = %v", f.Name, err)
			continue
		}
		if got != tt.want || enc != tt.wantEnc {
			t.Errorf("%s: isStylesheetInArchive() = %v, %v, want %v, %v", f.Name, got, enc, tt.want, tt.wantEnc)
		}
	}

	// decoded name decides
	if got, _, _ := isStylesheetInArchive(r.File[1], "readme.css"); !got {
		t.Error("decoded name with stylesheet extension should be accepted")
	}
}

func TestSelectReader(t *testing.T) {
	for _, enc := range []srcEncoding{
		encUnknown,
		encUTF8,
		encUTF16BigEndian,
		encUTF16LittleEndian,
		encUTF32BigEndian,
		encUTF32LittleEndian,
	} {
		t.Run(enc.String(), func(t *testing.T) {
			got := readAll(t, selectReader(readerForEncoding(t, []byte(sampleCSS), enc), enc))
			if !bytes.Equal(got, []byte(sampleCSS)) {
				t.Errorf("selectReader() decoded %q, want %q", got, sampleCSS)
			}
		})
	}
}

func TestSelectReader_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for invalid encoding, but didn't panic")
		}
	}()
	selectReader(bytes.NewReader([]byte("test")), srcEncoding(999))
}

func TestSrcEncoding_String(t *testing.T) {
	encodings := map[srcEncoding]string{
		encUnknown:           "unknown",
		encUTF8:              "utf8",
		encUTF16BigEndian:    "utf16be",
		encUTF16LittleEndian: "utf16le",
		encUTF32BigEndian:    "utf32be",
		encUTF32LittleEndian: "utf32le",
		srcEncoding(42):      "srcEncoding(42)",
	}
	for enc, want := range encodings {
		if got := enc.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return data
}
