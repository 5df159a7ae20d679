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

type ChatHandler struct {
	svc    *service.ChatService
	logger *zap.Logger
}

func NewChatHandler(svc *service.ChatService, logger *zap.Logger) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{svc: svc, logger: logger}
}

func (h *ChatHandler) Open(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	msgs, err := h.svc.Open(c.Request.Context(), sess, c.Param("clientId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *ChatHandler) Messages(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	msgs, err := h.svc.Messages(c.Request.Context(), sess, c.Param("clientId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type sendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), sess, c.Param("clientId"), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), sess, c.Param("clientId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *ChatHandler) Stream(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	clientID := c.Param("clientId")
	stream(c, h.logger, func(ctx context.Context, fn func([]model.ChatMessage)) (store.Cancel, error) {
		return h.svc.Subscribe(ctx, sess, clientID, fn)
	})
}
