package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfranca/francaverso/server/common/transport/httpresp"
	"github.com/techfranca/francaverso/server/portal/service"
)

type submitDownloadRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

func (h *Handler) submitDownload(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req submitDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("urls are required"))
		return
	}

	job, err := h.deps.Downloads.Submit(c.Request.Context(), userID, req.URLs)
	switch {
	case errors.Is(err, service.ErrNoURLs):
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("urls are required"))
		return
	case errors.Is(err, service.ErrRunnerMissing):
		c.JSON(http.StatusServiceUnavailable, httpresp.NewErrorResponse("video downloader is not installed"))
		return
	case err != nil:
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, job)
}

func (h *Handler) downloadStatus(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}
	snapshot, err := h.deps.Downloads.Status(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *Handler) downloadLibrary(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	videos, err := h.deps.Downloads.Library(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

func (h *Handler) listDownloadFiles(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}
	files, err := h.deps.Downloads.ListFiles()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (h *Handler) deleteDownloadFile(c *gin.Context) {
	if _, ok := mustUserID(c); !ok {
		return
	}
	if err := h.deps.Downloads.RemoveFile(c.Param("filename")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewSuccessResponse())
}
