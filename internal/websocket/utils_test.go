package websocket

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stemsi/exstem-cbt/internal/exam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer decodes one request per frame and answers with a pong, or with
// an error for malformed frames.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(raw)
		defer conn.Close(websocket.CloseNormalClosure, "")
		for {
			action, data, err := conn.ReadRequest()
			if err != nil {
				if errors.Is(err, ErrMalformed) {
					_ = conn.WriteError("INVALID_PAYLOAD", err.Error())
					continue
				}
				return
			}
			switch action {
			case ActionSignal:
				var req SignalRequest
				if assert.NoError(t, Decode(data, &req)) {
					_ = conn.WriteTyped(InterceptResponse{Event: EventIntercept, Kind: req.Kind, Cancel: exam.IsBlockedShortcut(req.Signal)})
				}
			default:
				_ = conn.WriteTyped(PongResponse{Event: EventPong})
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestConn_ReadRequestAndWrite(t *testing.T) {
	c := dial(t, echoServer(t))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`{"action":"signal","kind":"keydown","key":"F12"}`)))
	var intercept InterceptResponse
	require.NoError(t, c.ReadJSON(&intercept))
	assert.Equal(t, EventIntercept, intercept.Event)
	assert.Equal(t, exam.SignalKeyDown, intercept.Kind)
	assert.True(t, intercept.Cancel)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	var errResp ErrorResponse
	require.NoError(t, c.ReadJSON(&errResp))
	assert.Equal(t, EventError, errResp.Event)
	assert.Equal(t, "INVALID_PAYLOAD", errResp.Code)

	require.NoError(t, c.WriteJSON(RequestEnvelope{Action: ActionPing}))
	var pong PongResponse
	require.NoError(t, c.ReadJSON(&pong))
	assert.Equal(t, EventPong, pong.Event)
}

func TestConn_ConcurrentWrites(t *testing.T) {
	up := websocket.Upgrader{}
	const writers, perWriter = 8, 25

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(raw)
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < perWriter; j++ {
					_ = conn.WriteTyped(TickResponse{Event: EventTick, TimeLeftSeconds: i*perWriter + j})
				}
			}(i)
		}
		wg.Wait()
		_ = conn.Close(websocket.CloseNormalClosure, "done")
	}))
	t.Cleanup(srv.Close)

	c := dial(t, srv)
	seen := 0
	for {
		var tick TickResponse
		if err := c.ReadJSON(&tick); err != nil {
			break
		}
		assert.Equal(t, EventTick, tick.Event)
		seen++
	}
	assert.Equal(t, writers*perWriter, seen)
}
