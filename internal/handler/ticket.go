package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/service"
	"github.com/psds-microservice/casework-service/internal/store"
	"go.uber.org/zap"
)

type TicketHandler struct {
	svc    *service.TicketService
	logger *zap.Logger
}

func NewTicketHandler(svc *service.TicketService, logger *zap.Logger) *TicketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketHandler{svc: svc, logger: logger}
}

type createTicketRequest struct {
	ClientID         string `json:"client_id" binding:"required"`
	IssueDescription string `json:"issue_description" binding:"required"`
}

func (h *TicketHandler) Create(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	t, err := h.svc.Create(c.Request.Context(), req.ClientID, req.IssueDescription)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// Get opens the ticket, seeding its thread from the issue description.
func (h *TicketHandler) Get(c *gin.Context) {
	t, err := h.svc.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TicketHandler) List(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	items, err := h.svc.ListOpen(c.Request.Context(), sess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tickets": items,
		"total":   len(items),
	})
}

type commentTicketRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *TicketHandler) Comment(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req commentTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	msg, err := h.svc.PostComment(c.Request.Context(), sess, c.Param("id"), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *TicketHandler) Close(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	t, err := h.svc.Close(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Stream pushes the ticket thread over a websocket.
func (h *TicketHandler) Stream(c *gin.Context) {
	id := c.Param("id")
	stream(c, h.logger, func(ctx context.Context, fn func([]model.ChatMessage)) (store.Cancel, error) {
		return h.svc.Subscribe(ctx, id, fn)
	})
}
