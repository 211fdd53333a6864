package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/utils"
)

// DocumentRepository owns the documents and codes relations of one tenant.
// It wraps the tenant-scoped database handle resolved for the request, so
// queries can never cross tenants.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a repository over a tenant database handle.
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// preloadCodes preloads each document's codes in insertion order, which is
// the natural display order they were stored in.
func preloadCodes(db *gorm.DB) *gorm.DB {
	return db.Order("codes.id ASC")
}

// ListAll returns every document with its codes, newest date first, ties
// broken by insertion order.
func (r *DocumentRepository) ListAll(ctx context.Context) ([]*models.Document, error) {
	var docs []*models.Document
	err := r.db.WithContext(ctx).
		Preload("Codes", preloadCodes).
		Order("date DESC, id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: listing documents: %v", models.ErrDatabase, err)
	}
	return docs, nil
}

// GetByID retrieves a document with its codes.
func (r *DocumentRepository) GetByID(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).
		Preload("Codes", preloadCodes).
		First(&doc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: document %d", models.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: getting document %d: %v", models.ErrDatabase, id, err)
	}
	return &doc, nil
}

// Create inserts a document row and its codes in one transaction. Codes
// are stored in case-insensitive natural order.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document, codes []string) error {
	utils.SortCodesNatural(codes)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(doc).Error; err != nil {
			return err
		}
		return insertCodes(tx, doc.ID, codes)
	})
	if err != nil {
		return fmt.Errorf("%w: creating document: %v", models.ErrDatabase, err)
	}
	return nil
}

// Update overwrites a document's name and date and replaces its entire
// code set, all inside one transaction so readers never observe a
// momentarily empty code list.
func (r *DocumentRepository) Update(ctx context.Context, id uint, name, date string, codes []string) error {
	utils.SortCodesNatural(codes)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc models.Document
		if err := tx.First(&doc, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&doc).Updates(map[string]interface{}{
			"name": name,
			"date": date,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", id).Delete(&models.Code{}).Error; err != nil {
			return err
		}
		return insertCodes(tx, id, codes)
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: document %d", models.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: updating document %d: %v", models.ErrDatabase, id, err)
	}
	return nil
}

// UpdatePath sets the stored file column after a replacement upload.
func (r *DocumentRepository) UpdatePath(ctx context.Context, id uint, path string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ?", id).
		Update("path", path).Error
	if err != nil {
		return fmt.Errorf("%w: updating document path: %v", models.ErrDatabase, err)
	}
	return nil
}

// Delete removes a document's codes and row in one transaction. Deleting
// an id that does not exist reports success.
func (r *DocumentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.Code{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Document{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("%w: deleting document %d: %v", models.ErrDatabase, id, err)
	}
	return nil
}

// SearchByCodes returns the documents having at least one code whose
// case-insensitive value is in the given set, each with its full code
// list, newest date first. An empty query matches nothing.
func (r *DocumentRepository) SearchByCodes(ctx context.Context, codes []string) ([]*models.Document, error) {
	if len(codes) == 0 {
		return []*models.Document{}, nil
	}

	uppers := make([]string, 0, len(codes))
	for _, c := range codes {
		uppers = append(uppers, strings.ToUpper(c))
	}

	matched := r.db.Model(&models.Code{}).
		Select("document_id").
		Where("UPPER(code) IN ?", uppers)

	var docs []*models.Document
	err := r.db.WithContext(ctx).
		Preload("Codes", preloadCodes).
		Where("id IN (?)", matched).
		Order("date DESC, id ASC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: searching documents: %v", models.ErrDatabase, err)
	}
	return docs, nil
}

// SearchByCode is the single-code case of SearchByCodes: case-insensitive
// exact match, not substring.
func (r *DocumentRepository) SearchByCode(ctx context.Context, code string) ([]*models.Document, error) {
	return r.SearchByCodes(ctx, []string{code})
}

// Suggest returns up to 10 distinct code values starting with the given
// prefix, lexicographically ordered. The prefix match is case-sensitive.
func (r *DocumentRepository) Suggest(ctx context.Context, prefix string) ([]string, error) {
	var suggestions []string
	err := r.db.WithContext(ctx).
		Model(&models.Code{}).
		Distinct("code").
		Where("code LIKE ?", prefix+"%").
		Order("code ASC").
		Limit(10).
		Pluck("code", &suggestions).Error
	if err != nil {
		return nil, fmt.Errorf("%w: suggesting codes: %v", models.ErrDatabase, err)
	}
	return suggestions, nil
}

func insertCodes(tx *gorm.DB, docID uint, codes []string) error {
	for _, code := range codes {
		if err := tx.Create(&models.Code{DocumentID: docID, Code: code}).Error; err != nil {
			return err
		}
	}
	return nil
}
