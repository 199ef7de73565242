package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/techfranca/francaverso/server/common/auth"
	"github.com/techfranca/francaverso/server/common/transport/httpresp"
	"github.com/techfranca/francaverso/server/portal/domain"
	"github.com/techfranca/francaverso/server/portal/service"
)

type loginRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type syncRequest struct {
	UID      string `json:"uid" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("userId and password are required"))
		return
	}

	user, token, ttl, err := h.deps.Auth.Login(c.Request.Context(), req.UserID, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidPassword):
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse("invalid password"))
		return
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse("unknown user"))
		return
	case err != nil:
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, token, ttl)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) syncUser(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("uid and email are required"))
		return
	}

	var photoURL *string
	if req.PhotoURL != "" {
		photoURL = &req.PhotoURL
	}

	user, token, ttl, err := h.deps.Auth.SyncFederated(c.Request.Context(), req.UID, req.Email, req.Name, photoURL)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, token, ttl)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) me(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	user, err := h.deps.Auth.Me(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", h.deps.CookieSecure, true)
	c.JSON(http.StatusOK, httpresp.NewSuccessResponse())
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, token, int(ttl.Seconds()), "/", "", h.deps.CookieSecure, true)
}
