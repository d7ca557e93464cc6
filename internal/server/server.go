// Package server exposes the chat assistants over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/community-assistant/server/internal/assistant/model"
	"github.com/community-assistant/server/internal/assistant/router"
	logx "github.com/community-assistant/server/pkg/logger"
)

// ChatRouter answers questions for a chat profile.
type ChatRouter interface {
	Profiles() []router.Profile
	Lookup(name string) (router.Profile, error)
	Route(ctx context.Context, profile, question string) (*model.Reply, error)
}

type Config struct {
	Router         ChatRouter
	Sessions       model.SessionRepository
	Conversations  model.ConversationRepository
	Metrics        http.Handler
	RequestTimeout time.Duration
}

type Handler struct {
	router         ChatRouter
	sessions       model.SessionRepository
	conversations  model.ConversationRepository
	requestTimeout time.Duration
	now            func() time.Time
	newID          func() string
}

// New builds the gin engine with every route registered.
func New(cfg Config) *gin.Engine {
	h := &Handler{
		router:         cfg.Router,
		sessions:       cfg.Sessions,
		conversations:  cfg.Conversations,
		requestTimeout: cfg.RequestTimeout,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          newSessionID,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/ping", Ping)
	r.GET("/profiles", h.ListProfiles)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	s := r.Group("/sessions")
	s.POST("", h.CreateSession)
	s.GET("/:id", h.GetSession)
	s.DELETE("/:id", h.DeleteSession)
	s.GET("/:id/messages", h.ListMessages)
	s.POST("/:id/messages", h.PostMessage)
	return r
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		ev := logx.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = logx.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	}
}
