package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/utils"
)

// LocalStore keeps each tenant's PDF binaries under that tenant's storage
// root on the local filesystem, independent from the relational rows.
type LocalStore struct {
	logger *logrus.Logger
}

// NewLocalStore creates a local filesystem store.
func NewLocalStore(logger *logrus.Logger) *LocalStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &LocalStore{logger: logger}
}

// Store writes the upload under root as {unix_timestamp}_{sanitized
// basename} and returns the stored name. The timestamp prefix keeps names
// collision-free within a tenant root.
func (s *LocalStore) Store(root, filename string, content io.Reader) (string, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("%w: creating storage root: %v", models.ErrStorage, err)
	}

	storedName := utils.StoredName(filename, time.Now())
	fullPath := filepath.Join(root, storedName)

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("%w: creating file: %v", models.ErrStorage, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("%w: writing content: %v", models.ErrStorage, err)
	}

	s.logger.WithFields(logrus.Fields{
		"root": root,
		"name": storedName,
	}).Info("Stored file")
	return storedName, nil
}

// Delete removes a stored file. A file that is already absent counts as
// success.
func (s *LocalStore) Delete(root, storedName string) error {
	path, err := s.join(root, storedName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: deleting file: %v", models.ErrStorage, err)
	}
	return nil
}

// Resolve returns the absolute path of a stored file, or
// models.ErrNotFound when it does not exist.
func (s *LocalStore) Resolve(root, storedName string) (string, error) {
	path, err := s.join(root, storedName)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", models.ErrNotFound, storedName)
		}
		return "", fmt.Errorf("%w: stat %s: %v", models.ErrStorage, storedName, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", models.ErrStorage, storedName, err)
	}
	return abs, nil
}

// ListPDFs returns the names of every file ending .pdf directly under the
// root, non-recursive.
func (s *LocalStore) ListPDFs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: listing %s: %v", models.ErrStorage, root, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// join builds the path of a stored name under root, rejecting names that
// would escape the tenant's directory.
func (s *LocalStore) join(root, storedName string) (string, error) {
	if storedName == "" || storedName != filepath.Base(storedName) {
		return "", fmt.Errorf("%w: invalid stored name %q", models.ErrStorage, storedName)
	}
	return filepath.Join(root, storedName), nil
}
