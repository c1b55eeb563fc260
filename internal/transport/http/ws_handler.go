package http

import (
	"net/http"

	"animal-quiz-service/internal/app"
	"animal-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// LeaderboardWSHandler streams the first leaderboard page to websocket clients,
// once on connect and again after every leaderboard event.
type LeaderboardWSHandler struct {
	feed        *app.Feed
	leaderboard *app.LeaderboardService
	verifier    IdentityVerifier
	pageSize    int
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

func NewLeaderboardWSHandler(feed *app.Feed, leaderboard *app.LeaderboardService, verifier IdentityVerifier, logger *zap.Logger) *LeaderboardWSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardWSHandler{
		feed:        feed,
		leaderboard: leaderboard,
		verifier:    verifier,
		pageSize:    app.DefaultPageLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS authenticates via ?token= (browsers cannot set headers on upgrade)
// and then pushes leaderboard snapshots until the client disconnects.
func (h *LeaderboardWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	id, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		writeError(w, domain.ErrUnauthenticated)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Subscribe before the first snapshot so no event is missed in between.
	events, cancel := h.feed.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 4)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write failed", zap.String("user_id", id.UserID), zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		h.push(r, send, closeSignals)
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return
				}
				if !h.push(r, send, closeSignals) {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// Clients do not send anything meaningful; reading detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// push queues the current first page. It returns false once the connection is closing.
func (h *LeaderboardWSHandler) push(r *http.Request, send chan<- outboundMessage[any], closeSignals <-chan struct{}) bool {
	var msg outboundMessage[any]
	page, err := h.leaderboard.Global(r.Context(), 0, h.pageSize)
	if err != nil {
		h.logger.Warn("leaderboard snapshot failed", zap.Error(err))
		msg = outboundMessage[any]{Type: "error", Payload: errorPayload{Code: domain.ErrorCode(err), Message: "leaderboard unavailable"}}
	} else {
		msg = outboundMessage[any]{Type: "leaderboard", Payload: page}
	}
	select {
	case send <- msg:
		return true
	case <-closeSignals:
		return false
	}
}
