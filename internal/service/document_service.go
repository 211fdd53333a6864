package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tesseract-hub/docsearch-service/internal/cache"
	"github.com/tesseract-hub/docsearch-service/internal/events"
	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/repository"
	"github.com/tesseract-hub/docsearch-service/internal/storage"
	"github.com/tesseract-hub/docsearch-service/internal/tenants"
)

// ServiceOptions tunes optional behavior of the document service.
type ServiceOptions struct {
	Cache      cache.Cache
	SuggestTTL time.Duration
}

// DocumentService orchestrates the document store, the file store and the
// event publisher for one deployment. Tenant scoping comes from the
// tenants.Context passed to every call.
type DocumentService struct {
	store      *storage.LocalStore
	publisher  *events.Publisher
	cache      cache.Cache
	suggestTTL time.Duration
	logger     *logrus.Logger
}

// NewDocumentService creates a document service.
func NewDocumentService(store *storage.LocalStore, publisher *events.Publisher, logger *logrus.Logger, opts *ServiceOptions) *DocumentService {
	if logger == nil {
		logger = logrus.New()
	}
	s := &DocumentService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
	if opts != nil {
		s.cache = opts.Cache
		s.suggestTTL = opts.SuggestTTL
	}
	return s
}

// ListAll returns every document of the tenant with codes, newest first.
func (s *DocumentService) ListAll(ctx context.Context, tc *tenants.Context) ([]models.DocumentResult, error) {
	docs, err := repository.NewDocumentRepository(tc.DB).ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toResults(docs), nil
}

// Get returns one document with its codes.
func (s *DocumentService) Get(ctx context.Context, tc *tenants.Context, id uint) (*models.Document, error) {
	return repository.NewDocumentRepository(tc.DB).GetByID(ctx, id)
}

// Create validates the upload, stores the file and inserts the document
// row plus its codes. The file is optional only in the sense that a nil
// reader skips storage; the action layer requires one for uploads.
func (s *DocumentService) Create(ctx context.Context, tc *tenants.Context, req models.CreateDocumentRequest, file io.Reader) (uint, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Date) == "" {
		return 0, fmt.Errorf("%w: name and date are required", models.ErrValidation)
	}

	storedName := ""
	if file != nil {
		var err error
		storedName, err = s.store.Store(tc.StorageRoot, req.Filename, file)
		if err != nil {
			return 0, err
		}
	}

	doc := &models.Document{Name: req.Name, Date: req.Date, Path: storedName}
	repo := repository.NewDocumentRepository(tc.DB)
	if err := repo.Create(ctx, doc, req.Codes); err != nil {
		// The row never landed; drop the stored file so the upload
		// directory does not accumulate orphans.
		if storedName != "" {
			if delErr := s.store.Delete(tc.StorageRoot, storedName); delErr != nil {
				s.logger.WithError(delErr).Warn("Failed to remove orphaned upload")
			}
		}
		return 0, err
	}

	s.publish(ctx, events.DocumentCreated, tc.ID, doc.ID, storedName)

	s.logger.WithFields(logrus.Fields{
		"tenant_id":   tc.ID,
		"document_id": doc.ID,
		"path":        storedName,
	}).Info("Document created")
	return doc.ID, nil
}

// Update overwrites name/date, replaces the full code set and, when a
// replacement file is supplied, swaps the stored file. The new file is
// stored and the path column updated before the old file is removed, so a
// storage failure never leaves the row pointing at a missing file.
func (s *DocumentService) Update(ctx context.Context, tc *tenants.Context, req models.UpdateDocumentRequest, file io.Reader) error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Date) == "" {
		return fmt.Errorf("%w: name and date are required", models.ErrValidation)
	}

	repo := repository.NewDocumentRepository(tc.DB)
	doc, err := repo.GetByID(ctx, req.ID)
	if err != nil {
		return err
	}

	if err := repo.Update(ctx, req.ID, req.Name, req.Date, req.Codes); err != nil {
		return err
	}

	if file != nil {
		storedName, err := s.store.Store(tc.StorageRoot, req.Filename, file)
		if err != nil {
			return err
		}
		if err := repo.UpdatePath(ctx, req.ID, storedName); err != nil {
			return err
		}
		// Old file goes last, best-effort: at worst an orphaned file
		// lingers, never a row pointing at nothing.
		if doc.Path != "" && doc.Path != storedName {
			if err := s.store.Delete(tc.StorageRoot, doc.Path); err != nil {
				s.logger.WithError(err).Warn("Failed to delete replaced file")
			}
		}
	}

	s.publish(ctx, events.DocumentUpdated, tc.ID, req.ID, doc.Path)

	s.logger.WithFields(logrus.Fields{
		"tenant_id":   tc.ID,
		"document_id": req.ID,
	}).Info("Document updated")
	return nil
}

// Delete removes the stored file (best-effort), the codes and the row.
// Deleting an id that does not exist still reports success.
func (s *DocumentService) Delete(ctx context.Context, tc *tenants.Context, id uint) error {
	repo := repository.NewDocumentRepository(tc.DB)

	doc, err := repo.GetByID(ctx, id)
	if err == nil && doc.Path != "" {
		if delErr := s.store.Delete(tc.StorageRoot, doc.Path); delErr != nil {
			s.logger.WithError(delErr).Warn("Failed to delete stored file")
		}
	}

	if err := repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, events.DocumentDeleted, tc.ID, id, "")

	s.logger.WithFields(logrus.Fields{
		"tenant_id":   tc.ID,
		"document_id": id,
	}).Info("Document deleted")
	return nil
}

// SearchByCodes returns the documents covering at least one of the given
// codes, each annotated with its full code list.
func (s *DocumentService) SearchByCodes(ctx context.Context, tc *tenants.Context, codes []string) ([]models.DocumentResult, error) {
	docs, err := repository.NewDocumentRepository(tc.DB).SearchByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}
	return toResults(docs), nil
}

// SearchByCode is the single-code search.
func (s *DocumentService) SearchByCode(ctx context.Context, tc *tenants.Context, code string) ([]models.DocumentResult, error) {
	docs, err := repository.NewDocumentRepository(tc.DB).SearchByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return toResults(docs), nil
}

// Suggest returns up to 10 distinct codes starting with the prefix.
// Results are cached briefly per tenant and prefix; after a mutation,
// entries may stay stale until the short TTL lapses.
func (s *DocumentService) Suggest(ctx context.Context, tc *tenants.Context, prefix string) ([]string, error) {
	key := cache.SuggestCacheKey(tc.ID, prefix)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err == nil && cached != "" {
			var suggestions []string
			if err := json.Unmarshal([]byte(cached), &suggestions); err == nil {
				return suggestions, nil
			}
		}
	}

	suggestions, err := repository.NewDocumentRepository(tc.DB).Suggest(ctx, prefix)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.suggestTTL > 0 {
		if err := s.cache.SetJSON(ctx, key, suggestions, s.suggestTTL); err != nil {
			s.logger.WithError(err).Debug("Failed to cache suggestions")
		}
	}
	return suggestions, nil
}

func (s *DocumentService) publish(ctx context.Context, eventType, tenantID string, docID uint, path string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDocumentEvent(ctx, eventType, tenantID, docID, path); err != nil {
		s.logger.WithError(err).Warn("Failed to publish document event")
	}
}

func toResults(docs []*models.Document) []models.DocumentResult {
	results := make([]models.DocumentResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, d.ToResult())
	}
	return results
}
