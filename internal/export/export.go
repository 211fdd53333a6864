package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/storage"
)

// utf8BOM makes spreadsheet applications detect the encoding correctly.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ToCSV renders one row per (code, document-name) pair across all
// documents, not deduplicated: a document with N codes yields N rows.
func ToCSV(docs []models.DocumentResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Write(utf8BOM)

	w := csv.NewWriter(buf)
	if err := w.Write([]string{"Código", "Documento"}); err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}
	for _, doc := range docs {
		for _, code := range doc.Codes {
			if err := w.Write([]string{code, doc.Name}); err != nil {
				return nil, fmt.Errorf("writing CSV row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// ToZIP bundles every .pdf directly under the tenant's storage root into
// a single in-memory archive, entries named by stored basename.
func ToZIP(store *storage.LocalStore, root string) ([]byte, error) {
	names, err := store.ListPDFs(root)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	for _, name := range names {
		if err := addFile(zw, filepath.Join(root, name), name); err != nil {
			zw.Close()
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("%w: closing archive: %v", models.ErrStorage, err)
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, path, entryName string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", models.ErrStorage, entryName, err)
	}
	defer f.Close()

	entry, err := zw.Create(entryName)
	if err != nil {
		return fmt.Errorf("%w: adding %s: %v", models.ErrStorage, entryName, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("%w: writing %s: %v", models.ErrStorage, entryName, err)
	}
	return nil
}
