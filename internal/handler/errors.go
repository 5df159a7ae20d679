package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/casework-service/internal/auth"
	"github.com/psds-microservice/casework-service/internal/errs"
	"github.com/psds-microservice/casework-service/internal/model"
)

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrAlreadyExists),
		errors.Is(err, errs.ErrTicketClosed):
		return http.StatusConflict
	case errors.Is(err, errs.ErrExternalService):
		return http.StatusBadGateway
	case errors.Is(err, errs.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondPartial writes 200 with the committed record and the failed step.
func respondPartial(c *gin.Context, body any, err error) {
	var pw *errs.PartialWriteError
	if !errors.As(err, &pw) {
		respondError(c, err)
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusOK, gin.H{
		"data":    body,
		"warning": gin.H{"step": pw.Step, "error": pw.Err.Error()},
	})
}

// session returns the acting agent or writes 401.
func session(c *gin.Context) (model.Session, bool) {
	s, ok := auth.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return model.Session{}, false
	}
	return s, true
}
