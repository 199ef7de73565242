package api

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techfranca/francaverso/server/common/auth"
	"github.com/techfranca/francaverso/server/portal/domain"
	"github.com/techfranca/francaverso/server/portal/service"
)

type stubProfileStore struct{}

func (stubProfileStore) GetByID(_ context.Context, id string) (domain.User, error) {
	return domain.User{ID: id}, nil
}

func (stubProfileStore) List(context.Context) ([]domain.User, error) { return nil, nil }

func (stubProfileStore) UpdateProfile(_ context.Context, id string, _, _, _ *string) (domain.User, error) {
	return domain.User{ID: id}, nil
}

func (stubProfileStore) UpdatePhotoURL(context.Context, string, *string) error { return nil }

func (stubProfileStore) UpdateBannerURL(context.Context, string, *string) error { return nil }

type stubObjects struct{}

func (stubObjects) PutObject(_ context.Context, bucket, key string, _ io.Reader, size int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, nil
}

func (stubObjects) RemoveObject(context.Context, string, string, minio.RemoveObjectOptions) error {
	return nil
}

func newProfileTestRouter(t *testing.T) (*gin.Engine, *auth.SessionService) {
	gin.SetMode(gin.TestMode)

	sessions := auth.NewSessionService("test-secret")
	profile := service.NewProfileService(stubProfileStore{}, stubObjects{}, "media", "storage.local:9000", false)
	downloads := service.NewDownloadService(&stubJobStore{jobs: make(map[string]domain.DownloadJob)}, stubRunner{}, stubQueue{}, t.TempDir())

	handler := NewHandler(Deps{Sessions: sessions, Profile: profile, Downloads: downloads})
	engine := gin.New()
	handler.RegisterRoutes(engine)
	return engine, sessions
}

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func postPhoto(t *testing.T, engine *gin.Engine, sessions *auth.SessionService, contentType string, payload []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="upload"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/profile/photo", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(sessionCookie(t, sessions, "user-1"))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestUploadPhotoAcceptsPNG(t *testing.T) {
	engine, sessions := newProfileTestRouter(t)

	rec := postPhoto(t, engine, sessions, "image/png", pngBytes(t))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storage.local:9000/media/avatars/user-1/")
}

func TestUploadPhotoRejectsUnsupportedTypes(t *testing.T) {
	engine, sessions := newProfileTestRouter(t)

	for _, contentType := range []string{"image/gif", "image/svg+xml", "text/plain", ""} {
		rec := postPhoto(t, engine, sessions, contentType, pngBytes(t))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "content type %q", contentType)
		assert.Contains(t, rec.Body.String(), "jpeg, png or webp")
	}
}
