package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/service"
)

type ApplicationHandler struct {
	svc *service.ApplicationService
}

func NewApplicationHandler(svc *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{svc: svc}
}

// Queue lists the agent's applications. status takes a comma-separated list.
func (h *ApplicationHandler) Queue(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var statuses []model.ApplicationStatus
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			statuses = append(statuses, model.ApplicationStatus(s))
		}
	}
	items, err := h.svc.Queue(c.Request.Context(), sess, statuses...)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": items, "total": len(items)})
}

func (h *ApplicationHandler) Get(c *gin.Context) {
	app, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type commentRequest struct {
	Comment string `json:"comment"`
}

type transitionRequest struct {
	Status  string         `json:"status" binding:"required"`
	Comment string         `json:"comment"`
	Fields  map[string]any `json:"fields"`
}

func (h *ApplicationHandler) Transition(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	app, err := h.svc.Transition(c.Request.Context(), sess, c.Param("id"), model.ApplicationStatus(req.Status), req.Comment, req.Fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type approveRequest struct {
	Program string `json:"program" binding:"required"`
	Comment string `json:"comment"`
}

// Approve answers 200 with a warning when the form template could not be
// copied after the status change committed.
func (h *ApplicationHandler) Approve(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	app, err := h.svc.Approve(c.Request.Context(), sess, c.Param("id"), req.Program, req.Comment)
	if err != nil {
		if app != nil {
			respondPartial(c, app, err)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// CopyProgramForm retries the template copy of a partial approval.
func (h *ApplicationHandler) CopyProgramForm(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	app, err := h.svc.CopyProgramForm(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		if app != nil {
			respondPartial(c, app, err)
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) Reject(c *gin.Context) {
	h.withComment(c, h.svc.Reject)
}

func (h *ApplicationHandler) MarkHandled(c *gin.Context) {
	h.withComment(c, h.svc.MarkHandled)
}

func (h *ApplicationHandler) ConfirmDelivery(c *gin.Context) {
	h.withComment(c, h.svc.ConfirmDelivery)
}

type commentAction func(ctx context.Context, sess model.Session, id, comment string) (*model.Application, error)

func (h *ApplicationHandler) withComment(c *gin.Context, action commentAction) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req commentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	app, err := action(c.Request.Context(), sess, c.Param("id"), req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type requestDocsRequest struct {
	Kind    string `json:"kind" binding:"required"`
	Comment string `json:"comment"`
}

func (h *ApplicationHandler) RequestDocs(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req requestDocsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	app, err := h.svc.RequestDocs(c.Request.Context(), sess, c.Param("id"), req.Kind, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

type matchServicesRequest struct {
	Services []string `json:"services" binding:"required"`
}

func (h *ApplicationHandler) MatchServices(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req matchServicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	app, err := h.svc.MatchServices(c.Request.Context(), sess, c.Param("id"), req.Services)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) Suggest(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	app, err := h.svc.Suggest(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandler) ProgramServices(c *gin.Context) {
	services, err := h.svc.ProgramServices(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"program": c.Param("name"), "services": services})
}
