package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/casework-service/internal/model"
	"github.com/psds-microservice/casework-service/internal/store"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

type subscribeFunc func(ctx context.Context, fn func([]model.ChatMessage)) (store.Cancel, error)

// stream subscribes before upgrading, so an unknown or foreign thread is
// answered with a plain HTTP error. Snapshots are coalesced to the newest
// while the socket is busy. The subscription ends when the peer goes away.
func stream(c *gin.Context, logger *zap.Logger, subscribe subscribeFunc) {
	ctx, stop := context.WithCancel(c.Request.Context())
	defer stop()

	updates := make(chan []model.ChatMessage, 1)
	cancel, err := subscribe(ctx, func(msgs []model.ChatMessage) {
		select {
		case <-updates:
		default:
		}
		updates <- msgs
	})
	if err != nil {
		respondError(c, err)
		return
	}
	defer cancel()

	websocket.Server{Handler: websocket.Handler(func(ws *websocket.Conn) {
		go func() {
			// Peers send nothing; a read error means the socket closed.
			var discard string
			for {
				if err := websocket.Message.Receive(ws, &discard); err != nil {
					stop()
					return
				}
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msgs := <-updates:
				if err := websocket.JSON.Send(ws, gin.H{"messages": msgs}); err != nil {
					logger.Debug("stream: send failed", zap.Error(err))
					return
				}
			}
		}
	})}.ServeHTTP(c.Writer, c.Request)
}
