package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/exam"
	"github.com/stemsi/exstem-cbt/internal/middleware"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
	ws "github.com/stemsi/exstem-cbt/internal/websocket"
)

var errFullscreenDenied = errors.New("client did not enter fullscreen")

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams one exam session per connection.
type WSHandler struct {
	sessions *service.ExamSessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// wsClient is the browser end of a session: it observes the session and acts
// as its fullscreen lock.
type wsClient struct {
	conn   *ws.Conn
	locked atomic.Bool
	log    zerolog.Logger
}

func (cl *wsClient) Tick(remaining int) {
	_ = cl.conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, TimeLeftSeconds: remaining})
}

func (cl *wsClient) Violation(_ exam.SignalKind, reason string, policy config.ViolationPolicy) {
	_ = cl.conn.WriteTyped(ws.ViolationResponse{Event: ws.EventViolation, Reason: reason, Policy: string(policy)})
}

func (cl *wsClient) Finalized(result *model.QuizResult, outcome model.SubmitOutcome) {
	cl.graded(result, outcome)
}

// RequestLock succeeds when the client reported fullscreen in its start
// request.
func (cl *wsClient) RequestLock(context.Context) error {
	if !cl.locked.Load() {
		return errFullscreenDenied
	}
	return nil
}

// ReleaseLock asks the client to leave fullscreen.
func (cl *wsClient) ReleaseLock(context.Context) error {
	cl.locked.Store(false)
	return cl.conn.WriteTyped(ws.ExitFullscreenResponse{Event: ws.EventExitFullscreen})
}

func (cl *wsClient) graded(result *model.QuizResult, outcome model.SubmitOutcome) {
	_ = cl.conn.WriteTyped(ws.GradedResponse{
		Event:          ws.EventGraded,
		ResultID:       result.ID,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		Reason:         result.Reason,
		Submitted:      outcome.Success,
		Error:          outcome.Error,
	})
}

func (cl *wsClient) fail(code response.ErrCode) {
	_ = cl.conn.WriteError(string(code), response.GetMessage(code))
}

// SessionStream godoc
// WS /ws/v1/student/session?token=
// Drives the caller's exam session: start, answer edits, integrity signals
// and finish.
func (h *WSHandler) SessionStream(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsLog := h.log.With().Str("session_key", exam.DeriveSessionKey(id)).Logger()
	client := &wsClient{conn: ws.NewConn(raw), log: wsLog}
	defer client.conn.Close(websocket.CloseNormalClosure, "")

	ls, err := h.sessions.Open(ctx, id, client)
	if err != nil {
		wsLog.Warn().Err(err).Msg("Session open rejected")
		client.fail(sessionErrCode(err, nil))
		return
	}
	defer h.sessions.Close(context.Background(), ls)

	wsLog.Info().Msg("Student connected")

	for {
		action, data, err := client.conn.ReadRequest()
		if err != nil {
			if errors.Is(err, ws.ErrMalformed) {
				client.fail(response.ErrInvalidPayload)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch action {
		case ws.ActionStart:
			h.handleStart(ctx, client, ls, data)
		case ws.ActionAnswer:
			h.handleAnswer(client, ls, data)
		case ws.ActionDoubtful:
			h.handleDoubtful(client, ls, data)
		case ws.ActionSignal:
			h.handleSignal(client, ls, data)
		case ws.ActionFinish:
			h.handleFinish(ctx, client, ls)
		case ws.ActionPing:
			_ = client.conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(action)).Msg("Unknown action")
			client.fail(response.ErrUnknownAction)
		}
	}
}

func (h *WSHandler) handleStart(ctx context.Context, client *wsClient, ls *service.LiveSession, data []byte) {
	var req ws.StartRequest
	if err := ws.Decode(data, &req); err != nil {
		client.fail(response.ErrInvalidPayload)
		return
	}

	client.locked.Store(req.Locked)
	resumed, err := h.sessions.Start(ctx, ls, client, req.Resume)
	if err != nil {
		client.log.Info().Err(err).Msg("Start refused")
		client.fail(sessionErrCode(err, ls))
		return
	}

	// Written after Start returns; a resumed session already out of time
	// may have been graded in between, and the client handles that order.
	snap := ls.Snapshot()
	_ = client.conn.WriteTyped(ws.StartedResponse{
		Event:           ws.EventStarted,
		Resumed:         resumed,
		TimeLeftSeconds: ls.Remaining(),
		Answers:         snap.Answers,
		Doubtfuls:       snap.Doubtfuls,
	})
}

func (h *WSHandler) handleAnswer(client *wsClient, ls *service.LiveSession, data []byte) {
	var req ws.AnswerRequest
	if err := ws.Decode(data, &req); err != nil || req.QID == "" {
		client.fail(response.ErrInvalidPayload)
		return
	}
	if err := ls.SetAnswer(req.QID, req.Value); err != nil {
		client.fail(sessionErrCode(err, ls))
		return
	}
	_ = client.conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, QID: req.QID})
}

func (h *WSHandler) handleDoubtful(client *wsClient, ls *service.LiveSession, data []byte) {
	var req ws.DoubtfulRequest
	if err := ws.Decode(data, &req); err != nil || req.QID == "" {
		client.fail(response.ErrInvalidPayload)
		return
	}
	if err := ls.SetDoubtful(req.QID, req.Flagged); err != nil {
		client.fail(sessionErrCode(err, ls))
		return
	}
	_ = client.conn.WriteTyped(ws.SavedResponse{Event: ws.EventSaved, QID: req.QID})
}

func (h *WSHandler) handleSignal(client *wsClient, ls *service.LiveSession, data []byte) {
	var req ws.SignalRequest
	if err := ws.Decode(data, &req); err != nil || req.Kind == "" {
		client.fail(response.ErrInvalidPayload)
		return
	}
	verdict := ls.Signals.Publish(req.Signal)
	_ = client.conn.WriteTyped(ws.InterceptResponse{Event: ws.EventIntercept, Kind: req.Kind, Cancel: verdict.Cancel})
}

func (h *WSHandler) handleFinish(ctx context.Context, client *wsClient, ls *service.LiveSession) {
	result, outcome, err := h.sessions.Finish(ctx, ls, model.FinishReasonManual)
	if err != nil {
		client.fail(sessionErrCode(err, ls))
		return
	}
	client.graded(result, outcome)
}

// sessionErrCode maps session and package errors to response codes. ls may
// be nil before the session exists.
func sessionErrCode(err error, ls *service.LiveSession) response.ErrCode {
	switch {
	case errors.Is(err, service.ErrSessionInUse):
		return response.ErrSessionInUse
	case errors.Is(err, service.ErrExamNotFound):
		return response.ErrInvalidEntryToken
	case errors.Is(err, service.ErrExamNotPublished):
		return response.ErrExamNotPublished
	case errors.Is(err, service.ErrNoQuestions):
		return response.ErrNoQuestions
	case errors.Is(err, exam.ErrLockFailed):
		return response.ErrLockFailed
	case errors.Is(err, exam.ErrAlreadyStarted):
		return response.ErrSessionStarted
	case errors.Is(err, exam.ErrAlreadyFinalized):
		return response.ErrSessionFinalized
	case errors.Is(err, exam.ErrUnknownQuestion):
		return response.ErrUnknownQuestion
	case errors.Is(err, exam.ErrNotActive):
		if ls != nil && ls.State() == exam.StateNotStarted {
			return response.ErrSessionNotStarted
		}
		return response.ErrSessionFinalized
	default:
		return response.ErrInternal
	}
}
