package api

import (
	"context"
	"net/http"

	"xquest/internal/events"
	"xquest/internal/service"
	"xquest/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsRoutes struct {
	ctx context.Context
	us  service.UserServiceI
	hub *events.Hub
}

// NewWSRoutes mounts the quest event stream. Open connections are closed when
// ctx is done.
func NewWSRoutes(ctx context.Context, handler *gin.RouterGroup, us service.UserServiceI, hub *events.Hub) {
	r := &wsRoutes{ctx: ctx, us: us, hub: hub}

	handler.GET("/quests/ws/:id", r.handleWebSocket)
}

func (r *wsRoutes) handleWebSocket(c *gin.Context) {
	log := logger.Logger()

	user, err := r.us.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, "open quest stream", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	log.Debug("quest stream opened", zap.String("user_id", user.ID))
	r.hub.Serve(r.ctx, user.ID, conn)
	log.Debug("quest stream closed", zap.String("user_id", user.ID))
}
