package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfranca/francaverso/server/common/transport/httpresp"
)

func (h *Handler) listConversations(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	conversations, err := h.deps.Chat.ListConversations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

type startConversationRequest struct {
	Type           string   `json:"type" binding:"required"`
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participantIds" binding:"required"`
}

func (h *Handler) startConversation(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req startConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("type and participantIds are required"))
		return
	}
	conversation, err := h.deps.Chat.StartConversation(c.Request.Context(), userID, req.Type, req.Name, req.ParticipantIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conversation})
}

func (h *Handler) listMessages(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	messages, err := h.deps.Chat.ListMessages(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("content is required"))
		return
	}
	message, err := h.deps.Chat.SendMessage(c.Request.Context(), userID, c.Param("id"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": message})
}

func (h *Handler) listNotifications(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	notifications, err := h.deps.Chat.Notifications(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	if err := h.deps.Chat.MarkNotificationRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewSuccessResponse())
}
