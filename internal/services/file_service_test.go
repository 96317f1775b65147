package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetodo_backend/internal/models"
	"timetodo_backend/internal/services/dto"
	"timetodo_backend/pkg/apperrors"
)

// formFile собирает FileHeader так же, как его получает gin из multipart-запроса
func formFile(t *testing.T, filename, contentType string, data []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["file"][0]
}

func TestUpload_StoresBlobAndWritesLedger(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	data := []byte("%PDF-1.4 quarterly report")

	resp, err := env.files.Upload(context.Background(), nil, &dto.UploadFileRequest{
		UserID: "u1",
		File:   formFile(t, "Report.PDF", "", data),
	})

	require.NoError(t, err)
	assert.Equal(t, models.FileTypeDocument, resp.FileType)
	assert.Equal(t, "application/pdf", resp.MimeType)
	assert.Equal(t, "Report.PDF", resp.OriginalFilename)
	assert.True(t, strings.HasSuffix(resp.Filename, ".pdf"))
	assert.Equal(t, int64(len(data)), resp.FileSize)

	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), resp.Checksum)

	live := env.db.liveFiles("u1")
	require.Len(t, live, 1)
	assert.Equal(t, resp.ID, live[0].ID)
	assert.True(t, strings.HasPrefix(live[0].FilePath, "u1/2025/03/"))
	assert.Equal(t, "/files/"+live[0].FilePath, resp.URL)
	assert.Equal(t, data, env.store.blobs[live[0].FilePath])

	row := env.db.usage["u1|2025-03-12"]
	require.NotNil(t, row)
	assert.Equal(t, int64(len(data)), row.StorageUsed)
	assert.Equal(t, int64(1), row.FilesCount)
}

func TestList_SignedURLsForPrivateStorage(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	env.files.signedTTL = 15 * time.Minute

	_, err := env.files.Upload(context.Background(), nil, &dto.UploadFileRequest{
		UserID: "u1",
		File:   formFile(t, "a.png", "image/png", []byte("png")),
	})
	require.NoError(t, err)

	list, err := env.files.List(context.Background(), nil, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, strings.HasPrefix(list[0].URL, "/signed/u1/"))
	assert.True(t, strings.HasSuffix(list[0].URL, "?expires=900"))
}

func TestUpload_DeniedByLimitsCarriesReason(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")

	_, err := env.files.Upload(context.Background(), nil, &dto.UploadFileRequest{
		UserID: "u1",
		File:   formFile(t, "clip.mp4", "video/mp4", []byte("not really a video")),
	})

	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeLimitExceeded, appErr.Code)
	assert.Equal(t, 403, appErr.HTTPCode)
	assert.Equal(t, map[string]string{"reason": string(apperrors.ReasonTypeNotAllowed)}, appErr.Details)

	assert.Empty(t, env.db.files)
	assert.Empty(t, env.store.blobs)
	assert.Empty(t, env.db.usage)
}

func TestUpload_StorageFailureReleasesReservation(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	env.store.saveErr = errBoom

	_, err := env.files.Upload(context.Background(), nil, &dto.UploadFileRequest{
		UserID: "u1",
		File:   formFile(t, "photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'}),
	})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternalError))
	require.Len(t, env.db.files, 1)
	assert.True(t, env.db.files[0].IsDeleted)
	assert.Empty(t, env.db.liveFiles("u1"))
	assert.Empty(t, env.db.usage)
}

func TestUpload_LedgerFailureKeepsUpload(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	env.db.incrementErr = errBoom

	resp, err := env.files.Upload(context.Background(), nil, &dto.UploadFileRequest{
		UserID: "u1",
		File:   formFile(t, "notes.txt", "text/plain", []byte("hello")),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)
	assert.Len(t, env.db.liveFiles("u1"), 1)
	assert.Empty(t, env.db.usage)
}

func TestUpload_RequiresFile(t *testing.T) {
	env := newTestEnv()

	_, err := env.files.Upload(context.Background(), nil, &dto.UploadFileRequest{UserID: "u1"})

	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestDelete_OwnerOnly(t *testing.T) {
	env := newTestEnv()
	env.db.addUser("u1")
	ctx := context.Background()

	resp, err := env.files.Upload(ctx, nil, &dto.UploadFileRequest{
		UserID: "u1",
		File:   formFile(t, "archive.zip", "application/zip", []byte("PK")),
	})
	require.NoError(t, err)

	err = env.files.Delete(ctx, nil, "intruder", resp.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.Len(t, env.db.liveFiles("u1"), 1)

	require.NoError(t, env.files.Delete(ctx, nil, "u1", resp.ID))
	assert.Empty(t, env.db.liveFiles("u1"))
	assert.Len(t, env.store.deleted, 1)

	err = env.files.Delete(ctx, nil, "u1", resp.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	list, err := env.files.List(ctx, nil, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGetFileTypeFromMIME(t *testing.T) {
	cases := map[string]models.FileType{
		"image/jpeg":                models.FileTypeImage,
		"video/mp4":                 models.FileTypeVideo,
		"audio/mpeg":                models.FileTypeAudio,
		"application/pdf":           models.FileTypeDocument,
		"text/plain; charset=utf-8": models.FileTypeDocument,
		"application/zip":           models.FileTypeArchive,
		"application/octet-stream":  models.FileTypeOther,
	}
	for mime, want := range cases {
		assert.Equal(t, want, getFileTypeFromMIME(mime), mime)
	}
}
