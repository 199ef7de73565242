package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfranca/francaverso/server/common/transport/httpresp"
)

func (h *Handler) listTools(c *gin.Context) {
	tools, err := h.deps.Tools.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

type createToolRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	URL         string `json:"url" binding:"required"`
	Category    string `json:"category" binding:"required"`
	IconName    string `json:"iconName"`
}

func (h *Handler) createTool(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req createToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("name, url and category are required"))
		return
	}
	tool, err := h.deps.Tools.Create(c.Request.Context(), userID, req.Name, req.Description, req.URL, req.Category, req.IconName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tool": tool})
}

func (h *Handler) deleteTool(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	if err := h.deps.Tools.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewSuccessResponse())
}
