package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/community-assistant/server/internal/assistant/model"
	errx "github.com/community-assistant/server/internal/core/error"
	logx "github.com/community-assistant/server/pkg/logger"
)

type CreateSessionRequest struct {
	Profile string `json:"profile" binding:"required"`
}

type CreateSessionResponse struct {
	model.Session
	Greeting string `json:"greeting"`
}

type PostMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func newSessionID() string {
	return uuid.NewString()
}

// Greeting is the first message of every session.
func Greeting(profile string) string {
	return fmt.Sprintf("starting chat using the %s chat profile", profile)
}

func writeError(c *gin.Context, err error) {
	c.JSON(errx.StatusOf(err), gin.H{"error": errx.MessageOf(err)})
}

func (h *Handler) ListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": h.router.Profiles()})
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errx.BadRequest(err, "invalid request"))
		return
	}
	p, err := h.router.Lookup(req.Profile)
	if err != nil {
		writeError(c, err)
		return
	}

	s := model.Session{ID: h.newID(), Profile: p.Name, CreatedAt: h.now()}
	if err := h.sessions.Create(c.Request.Context(), s); err != nil {
		writeError(c, err)
		return
	}

	greeting := Greeting(p.Name)
	h.record(c.Request.Context(), s.ID, model.AssistantMessage(&model.Reply{Content: greeting}, s.CreatedAt))

	logx.Info().Str("session_id", s.ID).Str("profile", s.Profile).Msg("session started")
	c.JSON(http.StatusCreated, CreateSessionResponse{Session: s, Greeting: greeting})
}

func (h *Handler) GetSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	if err := h.conversations.ClearHistory(c.Request.Context(), id); err != nil {
		logx.Warn().Err(err).Str("session_id", id).Msg("failed to clear transcript")
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListMessages(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.sessions.Get(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	history, err := h.conversations.LoadHistory(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// PostMessage answers one question. Assistant failures still produce a 200
// reply whose content starts with "Error:".
func (h *Handler) PostMessage(c *gin.Context) {
	id := c.Param("id")
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		writeError(c, errx.BadRequest(err, "message content is required"))
		return
	}

	s, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := model.WithSessionID(c.Request.Context(), s.ID)
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	h.record(c.Request.Context(), s.ID, model.UserMessage(req.Content, h.now()))
	reply, err := h.router.Route(ctx, s.Profile, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	h.record(c.Request.Context(), s.ID, model.AssistantMessage(reply, h.now()))

	c.JSON(http.StatusOK, reply)
}

func (h *Handler) record(ctx context.Context, sessionID string, m *model.Message) {
	if err := h.conversations.AddMessage(ctx, sessionID, m); err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("failed to store transcript message")
	}
}
