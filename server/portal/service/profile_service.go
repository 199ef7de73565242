package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/techfranca/francaverso/server/common/infra/object"
	"github.com/techfranca/francaverso/server/common/log"
	"github.com/techfranca/francaverso/server/portal/domain"
)

const (
	avatarMaxSize = 512
	bannerMaxW    = 1600
	bannerMaxH    = 600
)

// ProfileStore is the slice of the user repository the profile flows need.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id string, bio, email, phone *string) (domain.User, error)
	UpdatePhotoURL(ctx context.Context, id string, url *string) error
	UpdateBannerURL(ctx context.Context, id string, url *string) error
}

// objectStorage is the subset of the MinIO client the profile media flows
// use; tests substitute an in-memory fake.
type objectStorage interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ProfileService manages the team directory, profile edits and the avatar and
// banner images stored in object storage.
type ProfileService struct {
	users    ProfileStore
	objects  objectStorage
	bucket   string
	endpoint string
	useSSL   bool
}

func NewProfileService(users ProfileStore, objects objectStorage, bucket, endpoint string, useSSL bool) *ProfileService {
	return &ProfileService{users: users, objects: objects, bucket: bucket, endpoint: endpoint, useSSL: useSSL}
}

// Members lists every user for the team directory.
func (s *ProfileService) Members(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *ProfileService) Get(ctx context.Context, userID string) (domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, bio, email, phone *string) (domain.User, error) {
	return s.users.UpdateProfile(ctx, userID, bio, email, phone)
}

// UploadPhoto resizes the avatar to fit 512x512 and swaps it into object
// storage, removing the previous file.
func (s *ProfileService) UploadPhoto(ctx context.Context, userID string, r io.Reader) (string, error) {
	return s.uploadMedia(ctx, userID, r, "avatars", avatarMaxSize, avatarMaxSize,
		func(user domain.User) *string { return user.ProfilePhotoURL },
		s.users.UpdatePhotoURL)
}

// UploadBanner resizes the banner to fit 1600x600 and swaps it into object
// storage, removing the previous file.
func (s *ProfileService) UploadBanner(ctx context.Context, userID string, r io.Reader) (string, error) {
	return s.uploadMedia(ctx, userID, r, "banners", bannerMaxW, bannerMaxH,
		func(user domain.User) *string { return user.BannerURL },
		s.users.UpdateBannerURL)
}

func (s *ProfileService) uploadMedia(
	ctx context.Context,
	userID string,
	r io.Reader,
	prefix string,
	maxW, maxH int,
	currentURL func(domain.User) *string,
	persist func(ctx context.Context, id string, url *string) error,
) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	resized := fitWithin(img, maxW, maxH)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s/%s/%s.jpg", prefix, userID, uuid.NewString())
	if _, err := s.objects.PutObject(ctx, s.bucket, key, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	}); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	url := object.PublicURL(s.endpoint, s.bucket, key, s.useSSL)
	if err := persist(ctx, userID, &url); err != nil {
		// Roll back the orphaned upload; the user row still points at the old
		// image.
		_ = s.objects.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
		return "", err
	}

	s.removeStored(ctx, currentURL(user))
	return url, nil
}

// RemovePhoto clears the avatar and deletes the stored file.
func (s *ProfileService) RemovePhoto(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePhotoURL(ctx, userID, nil); err != nil {
		return err
	}
	s.removeStored(ctx, user.ProfilePhotoURL)
	return nil
}

// RemoveBanner clears the banner and deletes the stored file.
func (s *ProfileService) RemoveBanner(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.users.UpdateBannerURL(ctx, userID, nil); err != nil {
		return err
	}
	s.removeStored(ctx, user.BannerURL)
	return nil
}

func (s *ProfileService) removeStored(ctx context.Context, url *string) {
	if url == nil {
		return
	}
	key, ok := s.objectKeyFromURL(*url)
	if !ok {
		return
	}
	if err := s.objects.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		log.Warnf("remove stored object %s: %v", key, err)
	}
}

// objectKeyFromURL recovers the object key from a public URL this service
// produced. External URLs (federated provider photos) are left alone.
func (s *ProfileService) objectKeyFromURL(url string) (string, bool) {
	marker := "/" + s.bucket + "/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return "", false
	}
	key := url[idx+len(marker):]
	if key == "" {
		return "", false
	}
	return key, true
}

// fitWithin shrinks an image to fit the bounds, never upscaling.
func fitWithin(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxW && bounds.Dy() <= maxH {
		return img
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
}
