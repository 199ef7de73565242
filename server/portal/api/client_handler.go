package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techfranca/francaverso/server/common/transport/httpresp"
	"github.com/techfranca/francaverso/server/portal/service"
)

func (h *Handler) listClients(c *gin.Context) {
	clients, err := h.deps.Clients.List(c.Request.Context(),
		c.Query("status"), c.Query("segmento"), c.Query("search"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

func (h *Handler) createClient(c *gin.Context) {
	var input service.ClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("invalid client payload"))
		return
	}
	client, err := h.deps.Clients.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"client": client})
}

func (h *Handler) updateClient(c *gin.Context) {
	var input service.ClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("invalid client payload"))
		return
	}
	client, err := h.deps.Clients.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"client": client})
}

func (h *Handler) deleteClient(c *gin.Context) {
	if err := h.deps.Clients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewSuccessResponse())
}

func (h *Handler) listCredentials(c *gin.Context) {
	creds, err := h.deps.Clients.ListCredentials(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": creds})
}

type saveCredentialsRequest struct {
	Credentials []service.CredentialInput `json:"credentials"`
}

func (h *Handler) saveCredentials(c *gin.Context) {
	var req saveCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("invalid credentials payload"))
		return
	}
	creds, err := h.deps.Clients.SaveCredentials(c.Request.Context(), c.Param("id"), req.Credentials)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": creds})
}

func (h *Handler) deleteCredential(c *gin.Context) {
	if err := h.deps.Clients.DeleteCredential(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpresp.NewSuccessResponse())
}

type provisionDriveRequest struct {
	ClientID    string   `json:"clientId"`
	NomeCliente string   `json:"nome_cliente" binding:"required"`
	Segmento    string   `json:"segmento"`
	Servicos    []string `json:"servicos" binding:"required"`
}

func (h *Handler) provisionDrive(c *gin.Context) {
	var req provisionDriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse("nome_cliente and servicos are required"))
		return
	}
	result, err := h.deps.Drive.ProvisionClientFolders(c.Request.Context(),
		req.ClientID, req.NomeCliente, req.Segmento, req.Servicos)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) driveStatus(c *gin.Context) {
	name, err := h.deps.Drive.TestConnection(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "rootFolder": name})
}
