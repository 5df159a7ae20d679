package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/casework-service/internal/service"
)

const dateLayout = "2006-01-02"

type VisitHandler struct {
	svc *service.VisitService
}

func NewVisitHandler(svc *service.VisitService) *VisitHandler {
	return &VisitHandler{svc: svc}
}

type proposeVisitRequest struct {
	ClientID    string `json:"client_id" binding:"required"`
	Date        string `json:"date" binding:"required"`
	StartTime   string `json:"start_time" binding:"required"`
	EndTime     string `json:"end_time" binding:"required"`
	Topic       string `json:"topic" binding:"required"`
	InitiatedBy string `json:"initiated_by"`
}

func (h *VisitHandler) Propose(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req proposeVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	day, err := time.ParseInLocation(dateLayout, req.Date, h.svc.Location())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	v, err := h.svc.Propose(c.Request.Context(), sess, service.VisitProposal{
		ClientID:    req.ClientID,
		Date:        day,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Topic:       req.Topic,
		InitiatedBy: req.InitiatedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// List returns the agent's visits, or one day's visits when date is set.
func (h *VisitHandler) List(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	if raw := c.Query("date"); raw != "" {
		day, err := time.ParseInLocation(dateLayout, raw, h.svc.Location())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		visits, err := h.svc.ListForDay(c.Request.Context(), sess.AgentID(), day)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"visits": visits, "total": len(visits)})
		return
	}
	visits, err := h.svc.ListByAgent(c.Request.Context(), sess.AgentID())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visits": visits, "total": len(visits)})
}

func (h *VisitHandler) Confirm(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	v, err := h.svc.Confirm(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *VisitHandler) Reject(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	v, err := h.svc.Reject(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type completeVisitRequest struct {
	Result  string `json:"result"`
	Reasons string `json:"reasons"`
}

func (h *VisitHandler) Complete(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	var req completeVisitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}
	v, err := h.svc.Complete(c.Request.Context(), sess, c.Param("id"), req.Result, req.Reasons)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *VisitHandler) Delete(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), sess, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
