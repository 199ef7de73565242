package api

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/techfranca/francaverso/server/common/transport/httpresp"
)

// maxImageUpload bounds avatar and banner uploads to 5 MB.
const maxImageUpload = 5 << 20

// allowedImageTypes are the upload formats the image pipeline accepts.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

func (h *Handler) listMembers(c *gin.Context) {
	members, err := h.deps.Profile.Members(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *Handler) getProfile(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	user, err := h.deps.Profile.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type updateProfileRequest struct {
	Bio   *string `json:"bio"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("invalid profile payload"))
		return
	}
	user, err := h.deps.Profile.UpdateProfile(c.Request.Context(), userID, req.Bio, req.Email, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) uploadPhoto(c *gin.Context) {
	h.uploadImage(c, h.deps.Profile.UploadPhoto)
}

func (h *Handler) uploadBanner(c *gin.Context) {
	h.uploadImage(c, h.deps.Profile.UploadBanner)
}

func (h *Handler) uploadImage(c *gin.Context, upload func(ctx context.Context, userID string, r io.Reader) (string, error)) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("image file is required"))
		return
	}
	defer file.Close()

	if header.Size > maxImageUpload {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("image exceeds 5MB limit"))
		return
	}
	contentType, _, _ := strings.Cut(header.Header.Get("Content-Type"), ";")
	if !allowedImageTypes[strings.TrimSpace(contentType)] {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("file must be a jpeg, png or webp image"))
		return
	}

	url, err := upload(c.Request.Context(), userID, io.LimitReader(file, maxImageUpload))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) removePhoto(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	if err := h.deps.Profile.RemovePhoto(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewSuccessResponse())
}

func (h *Handler) removeBanner(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	if err := h.deps.Profile.RemoveBanner(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewSuccessResponse())
}
