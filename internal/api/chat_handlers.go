package api

import (
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/example/automarket/internal/api/middleware"
	"github.com/example/automarket/internal/chat"
)

// ChatHandlers handles the websocket endpoint and message history
type ChatHandlers struct {
	relay    *chat.Relay
	upgrader websocket.Upgrader
}

// NewChatHandlers creates a new ChatHandlers instance
func NewChatHandlers(relay *chat.Relay) *ChatHandlers {
	return &ChatHandlers{
		relay: relay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth happens via the JWT cookie, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// writeTimeout bounds each websocket write. A client that stops reading
// fills its TCP buffer; the deadline turns that into a failed send so the
// relay can prune the session instead of blocking on it.
const writeTimeout = 10 * time.Second

// wsSession adapts one websocket connection to the relay's Session
// interface. gorilla connections allow one concurrent writer, hence the
// mutex.
type wsSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *wsSession) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(v)
}

// ServeWS upgrades the connection and pumps inbound messages through the
// relay until the client disconnects. Relay errors are echoed back inline;
// the connection stays open.
func (h *ChatHandlers) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		respondJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Chat] Upgrade failed for %s: %v", userID, err)
		return
	}

	session := &wsSession{conn: conn}
	h.relay.Register(userID, session)
	log.Printf("[Chat] User %s connected (%d sessions)", userID, h.relay.Connections(userID))

	defer func() {
		h.relay.Unregister(userID, session)
		conn.Close()
		log.Printf("[Chat] User %s disconnected", userID)
	}()

	for {
		var in chat.Inbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Chat] Read error for %s: %v", userID, err)
			}
			return
		}

		out, err := h.relay.Send(r.Context(), userID, in)
		if err != nil {
			if sendErr := session.Send(map[string]string{"error": err.Error()}); sendErr != nil {
				return
			}
			continue
		}
		// Echo the persisted message back to the sender's own session.
		if err := session.Send(out); err != nil {
			return
		}
	}
}

// GetMessageHistory returns a consultation's messages, oldest first
func (h *ChatHandlers) GetMessageHistory(w http.ResponseWriter, r *http.Request) {
	out, err := h.relay.History(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, chat.ErrForbidden) {
			respondJSONError(w, err.Error(), http.StatusForbidden)
			return
		}
		respondJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []*chat.Outbound{}
	}
	respondJSON(w, http.StatusOK, out)
}
