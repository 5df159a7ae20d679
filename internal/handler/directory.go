package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/casework-service/internal/service"
)

// DirectoryHandler serves the agent profile, the dashboard and the client
// roster.
type DirectoryHandler struct {
	directory *service.DirectoryService
	dashboard *service.DashboardService
}

func NewDirectoryHandler(directory *service.DirectoryService, dashboard *service.DashboardService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, dashboard: dashboard}
}

func (h *DirectoryHandler) Me(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Agent)
}

func (h *DirectoryHandler) UpdateMe(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req service.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	agent, err := h.directory.UpdateAgentProfile(c.Request.Context(), sess, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (h *DirectoryHandler) Dashboard(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	tasks, err := h.dashboard.PendingTasks(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// Clients lists the agent's clients; q filters by name.
func (h *DirectoryHandler) Clients(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	clients, err := h.directory.Clients(c.Request.Context(), sess, c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients, "total": len(clients)})
}

func (h *DirectoryHandler) Client(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	client, err := h.directory.Client(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *DirectoryHandler) ClientHistory(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	history, err := h.directory.ClientHistory(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
