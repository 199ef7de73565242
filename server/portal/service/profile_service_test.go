package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techfranca/francaverso/server/portal/domain"
)

type fakeProfileStore struct {
	user domain.User
}

func (s *fakeProfileStore) GetByID(_ context.Context, id string) (domain.User, error) {
	if id != s.user.ID {
		return domain.User{}, domain.ErrNotFound
	}
	return s.user, nil
}

func (s *fakeProfileStore) List(_ context.Context) ([]domain.User, error) {
	return []domain.User{s.user}, nil
}

func (s *fakeProfileStore) UpdateProfile(_ context.Context, _ string, bio, email, phone *string) (domain.User, error) {
	s.user.Bio = bio
	if email != nil {
		s.user.Email = *email
	}
	s.user.Phone = phone
	return s.user, nil
}

func (s *fakeProfileStore) UpdatePhotoURL(_ context.Context, _ string, url *string) error {
	s.user.ProfilePhotoURL = url
	return nil
}

func (s *fakeProfileStore) UpdateBannerURL(_ context.Context, _ string, url *string) error {
	s.user.BannerURL = url
	return nil
}

type fakeObjects struct {
	stored  map[string][]byte
	removed []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{stored: make(map[string][]byte)}
}

func (f *fakeObjects) PutObject(_ context.Context, _, objectName string, reader io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.stored[objectName] = data
	return minio.UploadInfo{Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeObjects) RemoveObject(_ context.Context, _, objectName string, _ minio.RemoveObjectOptions) error {
	delete(f.stored, objectName)
	f.removed = append(f.removed, objectName)
	return nil
}

func testPNG(t *testing.T, w, h int) *bytes.Buffer {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return &buf
}

func newProfileService(store *fakeProfileStore, objects *fakeObjects) *ProfileService {
	return NewProfileService(store, objects, "media", "storage.local:9000", false)
}

func TestUploadPhotoStoresAndLinksImage(t *testing.T) {
	store := &fakeProfileStore{user: domain.User{ID: "user-1", Name: "Ana"}}
	objects := newFakeObjects()
	svc := newProfileService(store, objects)

	url, err := svc.UploadPhoto(context.Background(), "user-1", testPNG(t, 800, 800))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(url, "http://storage.local:9000/media/avatars/user-1/"), "got %s", url)
	assert.True(t, strings.HasSuffix(url, ".jpg"))
	require.NotNil(t, store.user.ProfilePhotoURL)
	assert.Equal(t, url, *store.user.ProfilePhotoURL)
	assert.Len(t, objects.stored, 1)
}

func TestUploadPhotoReplacesPreviousObject(t *testing.T) {
	store := &fakeProfileStore{user: domain.User{ID: "user-1"}}
	objects := newFakeObjects()
	svc := newProfileService(store, objects)

	_, err := svc.UploadPhoto(context.Background(), "user-1", testPNG(t, 100, 100))
	require.NoError(t, err)

	_, err = svc.UploadPhoto(context.Background(), "user-1", testPNG(t, 100, 100))
	require.NoError(t, err)

	assert.Len(t, objects.stored, 1, "old avatar must be removed")
	assert.Len(t, objects.removed, 1)
}

func TestUploadPhotoKeepsExternalPhotoAlone(t *testing.T) {
	external := "https://lh3.example.com/photo.jpg"
	store := &fakeProfileStore{user: domain.User{ID: "user-1", ProfilePhotoURL: &external}}
	objects := newFakeObjects()
	svc := newProfileService(store, objects)

	_, err := svc.UploadPhoto(context.Background(), "user-1", testPNG(t, 100, 100))
	require.NoError(t, err)

	// The federated provider's photo is not ours to delete.
	assert.Empty(t, objects.removed)
}

func TestUploadPhotoRejectsNonImage(t *testing.T) {
	store := &fakeProfileStore{user: domain.User{ID: "user-1"}}
	svc := newProfileService(store, newFakeObjects())

	_, err := svc.UploadPhoto(context.Background(), "user-1", strings.NewReader("not an image"))
	assert.Error(t, err)
}

func TestRemovePhotoClearsAndDeletes(t *testing.T) {
	store := &fakeProfileStore{user: domain.User{ID: "user-1"}}
	objects := newFakeObjects()
	svc := newProfileService(store, objects)

	_, err := svc.UploadPhoto(context.Background(), "user-1", testPNG(t, 100, 100))
	require.NoError(t, err)

	require.NoError(t, svc.RemovePhoto(context.Background(), "user-1"))
	assert.Nil(t, store.user.ProfilePhotoURL)
	assert.Empty(t, objects.stored)
}

func TestUploadBannerUsesBannerColumn(t *testing.T) {
	store := &fakeProfileStore{user: domain.User{ID: "user-1"}}
	objects := newFakeObjects()
	svc := newProfileService(store, objects)

	url, err := svc.UploadBanner(context.Background(), "user-1", testPNG(t, 2400, 900))
	require.NoError(t, err)

	assert.Contains(t, url, "/banners/user-1/")
	require.NotNil(t, store.user.BannerURL)
	assert.Nil(t, store.user.ProfilePhotoURL)
}

func TestObjectKeyFromURL(t *testing.T) {
	svc := newProfileService(&fakeProfileStore{}, newFakeObjects())

	key, ok := svc.objectKeyFromURL("http://storage.local:9000/media/avatars/user-1/1.jpg")
	require.True(t, ok)
	assert.Equal(t, "avatars/user-1/1.jpg", key)

	_, ok = svc.objectKeyFromURL("https://lh3.example.com/photo.jpg")
	assert.False(t, ok)
}
