package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tesseract-hub/docsearch-service/internal/cache"
	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/storage"
	"github.com/tesseract-hub/docsearch-service/internal/tenants"
)

func newTestContext(t *testing.T) *tenants.Context {
	t.Helper()
	base := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(base, "tenant.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, tenants.Migrate(db))

	return &tenants.Context{
		ID:          "acme",
		Config:      &models.TenantConfig{ID: "acme"},
		DB:          db,
		StorageRoot: filepath.Join(base, "uploads", "acme"),
	}
}

func newTestService(c cache.Cache) *DocumentService {
	return NewDocumentService(storage.NewLocalStore(nil), nil, nil, &ServiceOptions{
		Cache:      c,
		SuggestTTL: time.Minute,
	})
}

func TestCreateStoresFileAndRow(t *testing.T) {
	svc := newTestService(nil)
	tc := newTestContext(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, tc, models.CreateDocumentRequest{
		Name:     "Informe Anual",
		Date:     "2024-03-01",
		Filename: "informe anual.pdf",
		Codes:    []string{"INV-2", "INV-1"},
	}, strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	require.NotZero(t, id)

	docs, err := svc.ListAll(ctx, tc)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Informe Anual", docs[0].Name)
	assert.Equal(t, []string{"INV-1", "INV-2"}, docs[0].Codes)

	// The file landed under the tenant storage root with the stored name.
	_, err = os.Stat(filepath.Join(tc.StorageRoot, docs[0].Path))
	assert.NoError(t, err)
}

func TestCreate_RequiresNameAndDate(t *testing.T) {
	svc := newTestService(nil)
	tc := newTestContext(t)

	_, err := svc.Create(context.Background(), tc, models.CreateDocumentRequest{
		Name: "  ",
		Date: "2024-01-01",
	}, nil)
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = svc.Create(context.Background(), tc, models.CreateDocumentRequest{
		Name: "doc",
		Date: "",
	}, nil)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestUpdate_ReplacesFile(t *testing.T) {
	svc := newTestService(nil)
	tc := newTestContext(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, tc, models.CreateDocumentRequest{
		Name:     "doc",
		Date:     "2024-01-01",
		Filename: "v1.pdf",
		Codes:    []string{"A"},
	}, strings.NewReader("version-1"))
	require.NoError(t, err)

	docs, err := svc.ListAll(ctx, tc)
	require.NoError(t, err)
	oldPath := docs[0].Path

	err = svc.Update(ctx, tc, models.UpdateDocumentRequest{
		ID:       id,
		Name:     "doc v2",
		Date:     "2024-02-02",
		Filename: "v2.pdf",
		Codes:    []string{"B"},
	}, strings.NewReader("version-2"))
	require.NoError(t, err)

	docs, err = svc.ListAll(ctx, tc)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc v2", docs[0].Name)
	assert.Equal(t, []string{"B"}, docs[0].Codes)
	assert.NotEqual(t, oldPath, docs[0].Path)

	// The replaced file is gone.
	_, statErr := os.Stat(filepath.Join(tc.StorageRoot, oldPath))
	assert.True(t, os.IsNotExist(statErr))
}

// brokenReader fails mid-copy, the way a truncated upload does.
type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestUpdate_FailedReplacementKeepsOldFile(t *testing.T) {
	svc := newTestService(nil)
	tc := newTestContext(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, tc, models.CreateDocumentRequest{
		Name:     "doc",
		Date:     "2024-01-01",
		Filename: "v1.pdf",
		Codes:    []string{"A"},
	}, strings.NewReader("version-1"))
	require.NoError(t, err)

	docs, err := svc.ListAll(ctx, tc)
	require.NoError(t, err)
	oldPath := docs[0].Path

	err = svc.Update(ctx, tc, models.UpdateDocumentRequest{
		ID:       id,
		Name:     "doc v2",
		Date:     "2024-02-02",
		Filename: "v2.pdf",
		Codes:    []string{"B"},
	}, brokenReader{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStorage))

	// The row still points at the old file and the old file is intact,
	// so the document stays downloadable.
	docs, err = svc.ListAll(ctx, tc)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, oldPath, docs[0].Path)

	data, err := os.ReadFile(filepath.Join(tc.StorageRoot, oldPath))
	require.NoError(t, err)
	assert.Equal(t, "version-1", string(data))
}

func TestUpdate_WithoutFileKeepsPath(t *testing.T) {
	svc := newTestService(nil)
	tc := newTestContext(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, tc, models.CreateDocumentRequest{
		Name:     "doc",
		Date:     "2024-01-01",
		Filename: "v1.pdf",
		Codes:    []string{"A"},
	}, strings.NewReader("version-1"))
	require.NoError(t, err)

	docs, _ := svc.ListAll(ctx, tc)
	oldPath := docs[0].Path

	err = svc.Update(ctx, tc, models.UpdateDocumentRequest{
		ID:    id,
		Name:  "renamed",
		Date:  "2024-01-01",
		Codes: []string{"A"},
	}, nil)
	require.NoError(t, err)

	docs, _ = svc.ListAll(ctx, tc)
	assert.Equal(t, oldPath, docs[0].Path)
}

func TestUpdate_UnknownID(t *testing.T) {
	svc := newTestService(nil)
	tc := newTestContext(t)

	err := svc.Update(context.Background(), tc, models.UpdateDocumentRequest{
		ID:   99,
		Name: "x",
		Date: "2024-01-01",
	}, nil)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestDelete_RemovesFileAndRow(t *testing.T) {
	svc := newTestService(nil)
	tc := newTestContext(t)
	ctx := context.Background()

	id, err := svc.Create(ctx, tc, models.CreateDocumentRequest{
		Name:     "doc",
		Date:     "2024-01-01",
		Filename: "doc.pdf",
		Codes:    []string{"A"},
	}, strings.NewReader("%PDF"))
	require.NoError(t, err)

	docs, _ := svc.ListAll(ctx, tc)
	path := docs[0].Path

	require.NoError(t, svc.Delete(ctx, tc, id))

	docs, err = svc.ListAll(ctx, tc)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, statErr := os.Stat(filepath.Join(tc.StorageRoot, path))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDelete_AbsentIsSuccess(t *testing.T) {
	svc := newTestService(nil)
	tc := newTestContext(t)
	assert.NoError(t, svc.Delete(context.Background(), tc, 12345))
}

func TestSuggest_UsesCache(t *testing.T) {
	memCache := cache.NewMemoryCache()
	svc := newTestService(memCache)
	tc := newTestContext(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, tc, models.CreateDocumentRequest{
		Name:  "doc",
		Date:  "2024-01-01",
		Codes: []string{"INV-001", "INV-002"},
	}, nil)
	require.NoError(t, err)

	suggestions, err := svc.Suggest(ctx, tc, "INV-")
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-001", "INV-002"}, suggestions)

	cached, err := memCache.Get(ctx, cache.SuggestCacheKey("acme", "INV-"))
	require.NoError(t, err)
	assert.NotEmpty(t, cached)
}

func TestSuggest_FreshAfterTTL(t *testing.T) {
	memCache := cache.NewMemoryCache()
	svc := NewDocumentService(storage.NewLocalStore(nil), nil, nil, &ServiceOptions{
		Cache:      memCache,
		SuggestTTL: 10 * time.Millisecond,
	})
	tc := newTestContext(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, tc, models.CreateDocumentRequest{
		Name:  "doc",
		Date:  "2024-01-01",
		Codes: []string{"INV-001"},
	}, nil)
	require.NoError(t, err)

	suggestions, err := svc.Suggest(ctx, tc, "INV-")
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-001"}, suggestions)

	// New codes become visible once the cache entry lapses; there is no
	// eager invalidation on mutation.
	_, err = svc.Create(ctx, tc, models.CreateDocumentRequest{
		Name:  "doc2",
		Date:  "2024-01-02",
		Codes: []string{"INV-002"},
	}, nil)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	suggestions, err = svc.Suggest(ctx, tc, "INV-")
	require.NoError(t, err)
	assert.Equal(t, []string{"INV-001", "INV-002"}, suggestions)
}

func TestSearchByCode(t *testing.T) {
	svc := newTestService(nil)
	tc := newTestContext(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, tc, models.CreateDocumentRequest{
		Name:  "doc",
		Date:  "2024-01-01",
		Codes: []string{"ABC"},
	}, nil)
	require.NoError(t, err)

	docs, err := svc.SearchByCode(ctx, tc, "abc")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc", docs[0].Name)
}
