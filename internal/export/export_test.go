package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/storage"
)

func TestToCSV(t *testing.T) {
	docs := []models.DocumentResult{
		{Name: "Informe A", Codes: []string{"A-1", "A-2"}},
		{Name: "Informe B", Codes: []string{"B-1"}},
	}

	data, err := ToCSV(docs)
	if err != nil {
		t.Fatalf("ToCSV failed: %v", err)
	}

	if !bytes.HasPrefix(data, utf8BOM) {
		t.Error("Expected UTF-8 BOM prefix")
	}

	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("Parsing CSV: %v", err)
	}

	// Header plus one row per (code, document) pair.
	if len(rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(rows))
	}
	if rows[0][0] != "Código" || rows[0][1] != "Documento" {
		t.Errorf("Unexpected header %v", rows[0])
	}
	if rows[1][0] != "A-1" || rows[1][1] != "Informe A" {
		t.Errorf("Unexpected first row %v", rows[1])
	}
	if rows[3][0] != "B-1" || rows[3][1] != "Informe B" {
		t.Errorf("Unexpected last row %v", rows[3])
	}
}

func TestToCSV_Empty(t *testing.T) {
	data, err := ToCSV(nil)
	if err != nil {
		t.Fatalf("ToCSV failed: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	if err != nil {
		t.Fatalf("Parsing CSV: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected header only, got %d rows", len(rows))
	}
}

func TestToZIP(t *testing.T) {
	root := t.TempDir()
	for name, content := range map[string]string{
		"1700000000_a.pdf": "pdf-a",
		"1700000001_b.pdf": "pdf-b",
		"notes.txt":        "skip me",
	} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	data, err := ToZIP(storage.NewLocalStore(nil), root)
	if err != nil {
		t.Fatalf("ToZIP failed: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Opening archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(zr.File))
	}

	entries := map[string]bool{}
	for _, f := range zr.File {
		entries[f.Name] = true
	}
	if !entries["1700000000_a.pdf"] || !entries["1700000001_b.pdf"] {
		t.Errorf("Unexpected entries: %v", entries)
	}
}

func TestToZIP_EmptyRoot(t *testing.T) {
	data, err := ToZIP(storage.NewLocalStore(nil), filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("ToZIP failed: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Opening archive: %v", err)
	}
	if len(zr.File) != 0 {
		t.Errorf("Expected empty archive, got %d entries", len(zr.File))
	}
}
