package httpserver

import (
	"net/http"
	"strings"
	"time"

	"lv-paperledger/internal/auth"
	"lv-paperledger/internal/marketdata"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const wsWriteTimeout = 5 * time.Second

// EventReady is sent once the connection is subscribed to the bus.
const EventReady = "ready"

// WSHandler streams the caller's committed transactions and every quote.
type WSHandler struct {
	bus      *marketdata.Bus
	authSvc  *auth.Service
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *marketdata.Bus, authSvc *auth.Service, origin string, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		bus:     bus,
		authSvc: authSvc,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	if reqOrigin == "" {
		return true
	}
	return strings.EqualFold(reqOrigin, origin)
}

// visible reports whether evt may be sent to accountID.
func visible(evt marketdata.Event, accountID string) bool {
	if evt.AccountID == "" {
		return true
	}
	return evt.AccountID == accountID
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on the upgrade request, so the token may
	// ride in the query string.
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	accountID, err := h.authSvc.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)
	h.log.Debug().Str("account_id", accountID).Msg("ws connected")
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(marketdata.Event{Type: EventReady, AccountID: accountID}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if !visible(evt, accountID) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
