package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"appdist_backend/database"
	"appdist_backend/internal/apkmeta"
	"appdist_backend/internal/models"
	"appdist_backend/internal/repositories"
	"appdist_backend/internal/services/dto"
	"appdist_backend/internal/storage"
	"appdist_backend/pkg/apperrors"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func newLocalStorage(t *testing.T) *storage.LocalStorage {
	t.Helper()
	s, err := storage.NewLocalStorage(storage.Config{BasePath: filepath.Join(t.TempDir(), "uploads")})
	require.NoError(t, err)
	return s
}

// fileHeader builds a real multipart.FileHeader the way gin would hand it
// to the handler.
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File["file"][0]
}

func newIngestion(t *testing.T, maxBytes int64) (IngestionService, *storage.LocalStorage, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	store := newLocalStorage(t)
	svc := NewIngestionService(repositories.NewReleaseRepository(), store, apkmeta.NewExtractor(), maxBytes)
	return svc, store, db
}

var hexSHA256 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("APK Happy Path", func(t *testing.T) {
		svc, store, db := newIngestion(t, 1<<20)

		content := bytes.Repeat([]byte("x"), 500*1024)
		resp, err := svc.Upload(ctx, db, &dto.UploadRequest{
			File:         fileHeader(t, "app-v1.apk", content),
			ReleaseNotes: "first build",
			ClientIP:     "203.0.113.7",
		})
		require.NoError(t, err)

		release := resp.Release
		assert.Equal(t, "Uploaded", resp.Message)
		assert.Equal(t, models.ArtifactTypeAPK, release.ArtifactType)
		assert.EqualValues(t, len(content), release.FileSize)
		assert.Regexp(t, hexSHA256, release.SHA256)
		assert.EqualValues(t, 0, release.Downloads)
		assert.Equal(t, "first build", release.ReleaseNotes)
		assert.Equal(t, "203.0.113.7", release.UploadedByIP)
		assert.Equal(t, "/files/"+release.FileName, resp.DownloadURL)

		// The content is not a real apk, so extraction degrades to the
		// sentinel without failing the upload.
		assert.Equal(t, "unknown", release.AppID)
		assert.Equal(t, "0.0.0", release.VersionName)

		// The recorded digest describes exactly the stored bytes.
		stored, err := os.ReadFile(store.Path(release.FileName))
		require.NoError(t, err)
		sum := sha256.Sum256(stored)
		assert.Equal(t, hex.EncodeToString(sum[:]), release.SHA256)

		// And the record is durable.
		var count int64
		require.NoError(t, db.Model(&models.Release{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("AAB Uses Sentinel Metadata", func(t *testing.T) {
		svc, _, db := newIngestion(t, 1<<20)

		resp, err := svc.Upload(ctx, db, &dto.UploadRequest{
			File: fileHeader(t, "bundle.aab", []byte("bundle bytes")),
		})
		require.NoError(t, err)
		assert.Equal(t, models.ArtifactTypeAAB, resp.Release.ArtifactType)
		assert.Equal(t, "unknown", resp.Release.AppID)
		assert.Equal(t, "unknown", resp.Release.AppName)
		assert.EqualValues(t, 0, resp.Release.VersionCode)
	})

	t.Run("Oversized Upload Leaves No Record", func(t *testing.T) {
		svc, store, db := newIngestion(t, 100)

		_, err := svc.Upload(ctx, db, &dto.UploadRequest{
			File: fileHeader(t, "big.apk", bytes.Repeat([]byte("x"), 1024)),
		})
		require.Error(t, err)

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusRequestEntityTooLarge, appErr.HTTPCode)

		var count int64
		require.NoError(t, db.Model(&models.Release{}).Count(&count).Error)
		assert.EqualValues(t, 0, count)

		entries, err := os.ReadDir(store.BasePath())
		require.NoError(t, err)
		assert.Empty(t, entries, "partial blob must be removed")
	})

	t.Run("Invalid Extension", func(t *testing.T) {
		svc, _, db := newIngestion(t, 1<<20)

		_, err := svc.Upload(ctx, db, &dto.UploadRequest{
			File: fileHeader(t, "installer.exe", []byte("nope")),
		})
		require.Error(t, err)

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, appErr.HTTPCode)
		assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
	})

	t.Run("Missing File", func(t *testing.T) {
		svc, _, db := newIngestion(t, 1<<20)

		_, err := svc.Upload(ctx, db, &dto.UploadRequest{})
		require.Error(t, err)

		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, appErr.HTTPCode)
	})
}

// spyStorage records calls so tests can prove the storage layer was never
// touched.
type spyStorage struct {
	deleteCalls []string
}

func (s *spyStorage) Store(ctx context.Context, originalName string, r io.Reader, sizeLimit int64) (string, int64, error) {
	panic("not used")
}

func (s *spyStorage) Open(ctx context.Context, storedKey string) (io.ReadCloser, error) {
	panic("not used")
}

func (s *spyStorage) Delete(ctx context.Context, storedKey string) error {
	s.deleteCalls = append(s.deleteCalls, storedKey)
	return nil
}

func (s *spyStorage) URL(storedKey string) string {
	return "/files/" + storedKey
}

func seedViaUpload(t *testing.T, db *gorm.DB, store *storage.LocalStorage, name string) *models.Release {
	t.Helper()
	svc := NewIngestionService(repositories.NewReleaseRepository(), store, apkmeta.NewEmptyExtractor(), 1<<20)
	resp, err := svc.Upload(context.Background(), db, &dto.UploadRequest{
		File: fileHeader(t, name, []byte("payload of "+name)),
	})
	require.NoError(t, err)
	return resp.Release
}

func TestList(t *testing.T) {
	db := newTestDB(t)
	store := newLocalStorage(t)
	svc := NewRetrievalService(repositories.NewReleaseRepository(), store)

	for i := 0; i < 3; i++ {
		seedViaUpload(t, db, store, "app.apk")
	}

	t.Run("Defaults And Clamping", func(t *testing.T) {
		resp, err := svc.List(db, dto.ListQuery{Page: 0, Size: 0})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, 20, resp.Size)
		assert.EqualValues(t, 3, resp.Total)
		assert.Len(t, resp.Items, 3)

		resp, err = svc.List(db, dto.ListQuery{Page: -5, Size: 5000})
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, 100, resp.Size)
	})

	t.Run("Pages Beyond The End Are Empty Not Errors", func(t *testing.T) {
		resp, err := svc.List(db, dto.ListQuery{Page: 9, Size: 10})
		require.NoError(t, err)
		assert.Empty(t, resp.Items)
		assert.EqualValues(t, 3, resp.Total)
	})
}

func TestGet(t *testing.T) {
	db := newTestDB(t)
	store := newLocalStorage(t)
	svc := NewRetrievalService(repositories.NewReleaseRepository(), store)

	release := seedViaUpload(t, db, store, "app.apk")

	found, err := svc.Get(db, release.ID)
	require.NoError(t, err)
	assert.Equal(t, release.FileName, found.FileName)

	_, err = svc.Get(db, "00000000-0000-0000-0000-000000000000")
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.HTTPCode)
}

func TestDownload(t *testing.T) {
	ctx := context.Background()

	t.Run("Accounts And Returns URL", func(t *testing.T) {
		db := newTestDB(t)
		store := newLocalStorage(t)
		repo := repositories.NewReleaseRepository()
		svc := NewRetrievalService(repo, store)

		release := seedViaUpload(t, db, store, "app.apk")

		resp, err := svc.Download(ctx, db, release.ID, "203.0.113.9", "okhttp/4.12")
		require.NoError(t, err)
		assert.Equal(t, "/files/"+release.FileName, resp.URL)

		found, err := repo.FindReleaseByID(db, release.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, found.Downloads)

		logs, err := repo.FindDownloadLogs(db, release.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, release.ID, logs[0].ReleaseID)
		assert.Equal(t, "203.0.113.9", logs[0].IP)
		assert.Equal(t, "okhttp/4.12", logs[0].UserAgent)
	})

	t.Run("Each Download Adds One Log Row", func(t *testing.T) {
		db := newTestDB(t)
		store := newLocalStorage(t)
		repo := repositories.NewReleaseRepository()
		svc := NewRetrievalService(repo, store)

		release := seedViaUpload(t, db, store, "app.apk")

		const n = 5
		for i := 0; i < n; i++ {
			_, err := svc.Download(ctx, db, release.ID, "203.0.113.9", "curl")
			require.NoError(t, err)
		}

		found, err := repo.FindReleaseByID(db, release.ID)
		require.NoError(t, err)
		assert.EqualValues(t, n, found.Downloads)

		logs, err := repo.FindDownloadLogs(db, release.ID)
		require.NoError(t, err)
		assert.Len(t, logs, n)
	})

	t.Run("Missing Release", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewRetrievalService(repositories.NewReleaseRepository(), newLocalStorage(t))

		_, err := svc.Download(ctx, db, "00000000-0000-0000-0000-000000000000", "", "")
		require.Error(t, err)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, appErr.HTTPCode)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("Removes Record Then Blob", func(t *testing.T) {
		db := newTestDB(t)
		store := newLocalStorage(t)
		repo := repositories.NewReleaseRepository()
		svc := NewRetrievalService(repo, store)

		release := seedViaUpload(t, db, store, "app.apk")
		require.FileExists(t, store.Path(release.FileName))

		require.NoError(t, svc.Delete(ctx, db, release.ID))

		_, err := repo.FindReleaseByID(db, release.ID)
		assert.ErrorIs(t, err, repositories.ErrReleaseNotFound)
		assert.NoFileExists(t, store.Path(release.FileName))
	})

	t.Run("Missing Release Makes No Storage Call", func(t *testing.T) {
		db := newTestDB(t)
		spy := &spyStorage{}
		svc := NewRetrievalService(repositories.NewReleaseRepository(), spy)

		err := svc.Delete(ctx, db, "00000000-0000-0000-0000-000000000000")
		require.Error(t, err)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, appErr.HTTPCode)
		assert.Empty(t, spy.deleteCalls, "storage must not be touched for a missing record")
	})
}
