package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

type MonitorHandler struct {
	sessionService *service.ExamSessionService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(
	sessionService *service.ExamSessionService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		sessionService: sessionService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// monitorSnapshot is sent on connect and on every refresh.
type monitorSnapshot struct {
	Type     string                    `json:"type"`
	Token    string                    `json:"token"`
	Stats    *service.MonitorStats     `json:"stats,omitempty"`
	Sessions []service.LiveSessionInfo `json:"sessions"`
}

// MonitorExamSSE godoc
// GET /api/v1/admin/exams/:token/monitor
// Streams session events for a token: a snapshot first, then every
// started/violation/aborted/finished event, with periodic refreshes.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	token, ok := examToken(c)
	if !ok {
		return
	}

	reqCtx := c.Request.Context()

	pubsub := h.monitorService.Subscribe(reqCtx, token)
	defer pubsub.Close()
	if _, err := pubsub.Receive(reqCtx); err != nil {
		h.log.Error().Err(err).Str("token", token).Msg("Monitor subscribe failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal)
		return
	}
	ch := pubsub.Channel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Status(http.StatusOK)

	h.sendSnapshot(c, reqCtx, token, "snapshot")

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Str("token", token).Msg("Admin attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("token", token).Msg("Admin disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Events are already JSON; forward them untouched.
			writeSSE(c, []byte(msg.Payload))

		case <-refreshTicker.C:
			h.sendSnapshot(c, reqCtx, token, "refresh")

		case <-keepAliveTicker.C:
			writeSSE(c, pingPayload)
		}
	}
}

// sendSnapshot writes the live sessions and stored counts. Stats are omitted
// when the database is slow or down.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, token, kind string) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	snap := monitorSnapshot{
		Type:     kind,
		Token:    token,
		Sessions: h.sessionService.LiveSessions(token),
	}
	if stats, err := h.monitorService.GetStats(ctx, token); err == nil {
		snap.Stats = stats
	} else {
		h.log.Warn().Err(err).Str("token", token).Msg("Failed to fetch monitor stats")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	writeSSE(c, data)
}

func writeSSE(c *gin.Context, payload []byte) {
	_, _ = c.Writer.Write([]byte("data: "))
	_, _ = c.Writer.Write(payload)
	_, _ = c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
