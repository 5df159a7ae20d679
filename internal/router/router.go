package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/casework-service/api"
	"github.com/psds-microservice/casework-service/internal/handler"
	"github.com/psds-microservice/helpy/paths"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Handlers groups the API handlers mounted under /api/v1.
type Handlers struct {
	Applications *handler.ApplicationHandler
	Chats        *handler.ChatHandler
	Tickets      *handler.TicketHandler
	Visits       *handler.VisitHandler
	Directory    *handler.DirectoryHandler
}

// New builds the HTTP handler. authn runs in front of every /api/v1 route.
func New(h Handlers, authn gin.HandlerFunc, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLog(logger))
	r.GET(paths.PathHealth, gin.WrapF(handler.Health))
	r.GET(paths.PathReady, gin.WrapF(handler.Ready))
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})

	v1 := r.Group("/api/v1", authn)
	{
		v1.GET("/me", h.Directory.Me)
		v1.PATCH("/me", h.Directory.UpdateMe)
		v1.GET("/dashboard", h.Directory.Dashboard)
		v1.GET("/clients", h.Directory.Clients)
		v1.GET("/clients/:id", h.Directory.Client)
		v1.GET("/clients/:id/history", h.Directory.ClientHistory)

		v1.GET("/applications", h.Applications.Queue)
		v1.GET("/applications/:id", h.Applications.Get)
		v1.POST("/applications/:id/transition", h.Applications.Transition)
		v1.POST("/applications/:id/approve", h.Applications.Approve)
		v1.POST("/applications/:id/form", h.Applications.CopyProgramForm)
		v1.POST("/applications/:id/reject", h.Applications.Reject)
		v1.POST("/applications/:id/handled", h.Applications.MarkHandled)
		v1.POST("/applications/:id/request-docs", h.Applications.RequestDocs)
		v1.POST("/applications/:id/services", h.Applications.MatchServices)
		v1.POST("/applications/:id/delivery", h.Applications.ConfirmDelivery)
		v1.POST("/applications/:id/suggest", h.Applications.Suggest)
		v1.GET("/programs/:name/services", h.Applications.ProgramServices)

		v1.POST("/chats/:clientId", h.Chats.Open)
		v1.GET("/chats/:clientId/messages", h.Chats.Messages)
		v1.POST("/chats/:clientId/messages", h.Chats.Send)
		v1.POST("/chats/:clientId/read", h.Chats.MarkRead)
		v1.GET("/chats/:clientId/ws", h.Chats.Stream)

		v1.POST("/tickets", h.Tickets.Create)
		v1.GET("/tickets", h.Tickets.List)
		v1.GET("/tickets/:id", h.Tickets.Get)
		v1.POST("/tickets/:id/comments", h.Tickets.Comment)
		v1.POST("/tickets/:id/close", h.Tickets.Close)
		v1.GET("/tickets/:id/ws", h.Tickets.Stream)

		v1.POST("/visits", h.Visits.Propose)
		v1.GET("/visits", h.Visits.List)
		v1.POST("/visits/:id/confirm", h.Visits.Confirm)
		v1.POST("/visits/:id/reject", h.Visits.Reject)
		v1.POST("/visits/:id/complete", h.Visits.Complete)
		v1.DELETE("/visits/:id", h.Visits.Delete)
	}

	return r
}

// requestLog logs each request and any errors handlers attached to it.
func requestLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			logger.Warn("http: request failed", append(fields, zap.String("error", c.Errors.String()))...)
			return
		}
		logger.Debug("http: request", fields...)
	}
}
