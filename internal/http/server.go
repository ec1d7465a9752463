// README: API gateway; registers HTTP routes and delegates to the quote planner.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medquote/internal/http/handlers"
	"medquote/internal/http/middleware"
	"medquote/internal/logging"
	"medquote/internal/metrics"
)

type ServerDeps struct {
	Chat           handlers.ChatService
	Metrics        *metrics.Collector
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

type Server struct {
	chat           handlers.ChatService
	metrics        *metrics.Collector
	logger         *zap.Logger
	requestTimeout time.Duration
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		chat:           deps.Chat,
		metrics:        deps.Metrics,
		logger:         logging.OrNop(deps.Logger),
		requestTimeout: deps.RequestTimeout,
	}
}

func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(s.logger), middleware.Logging(s.logger, s.metrics))

	chatHandler := handlers.NewChatHandler(s.chat, s.logger, s.requestTimeout)
	r.POST("/api/chat", chatHandler.Chat)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	return r
}
