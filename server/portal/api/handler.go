package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfranca/francaverso/server/common/auth"
	"github.com/techfranca/francaverso/server/common/log"
	"github.com/techfranca/francaverso/server/common/middleware"
	"github.com/techfranca/francaverso/server/common/transport/httpresp"
	"github.com/techfranca/francaverso/server/portal/domain"
	"github.com/techfranca/francaverso/server/portal/service"
)

// Deps collects everything the HTTP layer needs.
type Deps struct {
	Sessions  *auth.SessionService
	Auth      *service.AuthService
	Clients   *service.ClientService
	Chat      *service.ChatService
	Profile   *service.ProfileService
	Tools     *service.ToolService
	Downloads *service.DownloadService
	Drive     *service.DriveService
	Hub       *service.Hub

	// CookieSecure marks the session cookie Secure; on behind TLS.
	CookieSecure bool
}

type Handler struct {
	deps Deps
}

func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static("/downloads", h.deps.Downloads.DownloadsDir())

	sessionRequired := middleware.SessionRequired(h.deps.Sessions, auth.SessionCookie)

	r.GET("/ws", sessionRequired, h.websocket)

	api := r.Group("/api")
	api.POST("/auth/login", h.login)
	api.POST("/auth/sync", h.syncUser)
	api.GET("/tools", h.listTools)

	secured := api.Group("", sessionRequired)
	{
		secured.GET("/auth/me", h.me)
		secured.POST("/auth/logout", h.logout)

		secured.GET("/clients", h.listClients)
		secured.POST("/clients", h.createClient)
		secured.PUT("/clients/:id", h.updateClient)
		secured.DELETE("/clients/:id", h.deleteClient)
		secured.GET("/clients/:id/credentials", h.listCredentials)
		secured.PUT("/clients/:id/credentials", h.saveCredentials)
		secured.DELETE("/credentials/:id", h.deleteCredential)

		secured.POST("/drive/client-folders", h.provisionDrive)
		secured.GET("/drive/client-folders", h.driveStatus)

		secured.GET("/members", h.listMembers)

		secured.GET("/conversations", h.listConversations)
		secured.POST("/conversations", h.startConversation)
		secured.GET("/conversations/:id/messages", h.listMessages)
		secured.POST("/conversations/:id/messages", h.sendMessage)

		secured.GET("/notifications", h.listNotifications)
		secured.PUT("/notifications/:id/read", h.markNotificationRead)

		secured.GET("/profile", h.getProfile)
		secured.PUT("/profile", h.updateProfile)
		secured.POST("/profile/photo", h.uploadPhoto)
		secured.DELETE("/profile/photo", h.removePhoto)
		secured.POST("/profile/banner", h.uploadBanner)
		secured.DELETE("/profile/banner", h.removeBanner)

		secured.POST("/tools", h.createTool)
		secured.DELETE("/tools/:id", h.deleteTool)

		secured.POST("/download", h.submitDownload)
		secured.GET("/job/:jobId", h.downloadStatus)
		secured.GET("/videos", h.downloadLibrary)
		secured.GET("/downloads", h.listDownloadFiles)
		secured.DELETE("/downloads/:filename", h.deleteDownloadFile)
	}
}

func (h *Handler) websocket(c *gin.Context) {
	userID, err := middleware.SessionUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrNotAuthenticated))
		return
	}
	h.deps.Hub.HandleWS(c, userID)
}

// respondError maps domain sentinels to status codes; everything else is a
// logged 500 with a generic body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, httpresp.NewErrorResponse(httpresp.ErrNotFound))
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, httpresp.NewErrorResponse(httpresp.ErrForbidden))
	default:
		log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, httpresp.NewErrorResponse("internal error"))
	}
}

func mustUserID(c *gin.Context) (string, bool) {
	userID, err := middleware.SessionUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrNotAuthenticated))
		return "", false
	}
	return userID, true
}
