package models

import (
	"time"
)

// Document represents one uploaded PDF plus its metadata. Each tenant has
// its own documents table; IDs are only unique within a tenant.
type Document struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"not null"`
	Date      string    `json:"date" gorm:"type:date;not null;index:idx_documents_date"`
	Path      string    `json:"path" gorm:"not null;index:idx_documents_path"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	Codes []Code `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// Code is a search token attached to a document. The same code value may
// appear on any number of documents; matching is case-insensitive.
type Code struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	DocumentID uint      `json:"documentId" gorm:"not null;index:idx_codes_document_id"`
	Code       string    `json:"code" gorm:"type:varchar(100);not null;index:idx_codes_code"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "documents"
}

// TableName returns the table name for the Code model
func (Code) TableName() string {
	return "codes"
}

// DocumentResult is the wire shape for a document: the row plus its full
// code list flattened to strings, as the portals consume it.
type DocumentResult struct {
	ID    uint     `json:"id"`
	Name  string   `json:"name"`
	Date  string   `json:"date"`
	Path  string   `json:"path"`
	Codes []string `json:"codes"`
}

// ToResult converts a Document with preloaded codes to its wire shape.
func (d *Document) ToResult() DocumentResult {
	codes := make([]string, 0, len(d.Codes))
	for _, c := range d.Codes {
		codes = append(codes, c.Code)
	}
	return DocumentResult{
		ID:    d.ID,
		Name:  d.Name,
		Date:  d.Date,
		Path:  d.Path,
		Codes: codes,
	}
}

// CreateDocumentRequest carries the fields of an upload operation.
type CreateDocumentRequest struct {
	Name     string
	Date     string
	Filename string
	Codes    []string
}

// UpdateDocumentRequest carries the fields of an edit operation. Name and
// date are always resent; the file is optional.
type UpdateDocumentRequest struct {
	ID       uint
	Name     string
	Date     string
	Filename string
	Codes    []string
}

// HighlightResult is what the highlight gateway relays back: the modified
// PDF and the raw JSON array of pages where codes were found.
type HighlightResult struct {
	PDF        []byte
	PagesFound string
	Filename   string
}

// Envelope is the uniform JSON response shape for non-binary actions.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Details string      `json:"details"`
}
