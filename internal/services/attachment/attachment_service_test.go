package attachment

import (
	"bytes"
	"context"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/apperr"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/logger"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/models"
	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/testutil"
)

// fileHeaders builds multipart headers the way fiber hands them to handlers.
func fileHeaders(t *testing.T, files map[string][]byte) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["files"]
}

func newService(t *testing.T) (*Service, string) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir)
	require.NoError(t, err)
	return NewService(testutil.NewDB(t), storage, 1, "http://localhost:8080", logger.Discard()), dir
}

func TestUpload(t *testing.T) {
	svc, dir := newService(t)
	ctx := context.Background()
	buyer := testutil.CreateUser(t, svc.DB, models.RoleBuyer, "Bea")
	p := testutil.CreateProject(t, svc.DB, buyer)

	got, err := svc.Upload(ctx, buyer, p.ID, fileHeaders(t, map[string][]byte{
		"Brief.PDF": []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"),
	}))
	require.NoError(t, err)
	require.Len(t, got.Files, 1)

	f := got.Files[0]
	assert.Equal(t, "Brief.PDF", f.Name)
	assert.Equal(t, ".pdf", filepath.Ext(f.StoredName))
	assert.Equal(t, "application/pdf", f.MimeType)
	assert.Equal(t, "http://localhost:8080/uploads/"+f.StoredName, f.URL)

	_, err = os.Stat(filepath.Join(dir, f.StoredName))
	assert.NoError(t, err)

	require.NoError(t, svc.Remove(f.StoredName))
	_, err = os.Stat(filepath.Join(dir, f.StoredName))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, svc.Remove(f.StoredName))
}

func TestUploadAccess(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	buyer := testutil.CreateUser(t, svc.DB, models.RoleBuyer, "Bea")
	seller := testutil.CreateUser(t, svc.DB, models.RoleSeller, "Sam")
	outsider := testutil.CreateUser(t, svc.DB, models.RoleSeller, "Sid")
	p := testutil.CreateProject(t, svc.DB, buyer)
	require.NoError(t, svc.DB.Model(p).Updates(map[string]any{"status": models.ProjectInProgress, "seller_id": seller.ID}).Error)

	one := func() []*multipart.FileHeader {
		return fileHeaders(t, map[string][]byte{"notes.txt": []byte("hello")})
	}

	_, err := svc.Upload(ctx, seller, p.ID, one())
	assert.NoError(t, err)

	_, err = svc.Upload(ctx, outsider, p.ID, one())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Upload(ctx, buyer, uuid.New(), one())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Upload(ctx, buyer, p.ID, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUploadSizeLimit(t *testing.T) {
	svc, dir := newService(t)
	buyer := testutil.CreateUser(t, svc.DB, models.RoleBuyer, "Bea")
	p := testutil.CreateProject(t, svc.DB, buyer)

	big := bytes.Repeat([]byte("a"), (1<<20)+1)
	_, err := svc.Upload(context.Background(), buyer, p.ID, fileHeaders(t, map[string][]byte{"big.bin": big}))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var n int64
	svc.DB.Model(&models.File{}).Count(&n)
	assert.Zero(t, n)
}
