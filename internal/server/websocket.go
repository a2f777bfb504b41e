package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

type wsEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type wsInbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type castVotePayload struct {
	TargetPlayerID *string `json:"target_player_id"`
}

type guessPayload struct {
	Guess string `json:"guess"`
}

type wsClient struct {
	connID   string
	playerID string
	// Serializes writes to the connection; gorilla conns do not
	// support concurrent writers.
	writeMu sync.Mutex
}

type wsHub struct {
	mu       sync.Mutex
	sessions map[string]map[*websocket.Conn]*wsClient
}

func newWSHub() *wsHub {
	return &wsHub{
		sessions: make(map[string]map[*websocket.Conn]*wsClient),
	}
}

func (h *wsHub) Add(code string, conn *websocket.Conn, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.sessions[code]
	if group == nil {
		group = make(map[*websocket.Conn]*wsClient)
		h.sessions[code] = group
	}
	group[conn] = client
}

func (h *wsHub) Remove(code string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.sessions[code]
	if group == nil {
		return
	}
	delete(group, conn)
	_ = conn.Close()
	if len(group) == 0 {
		delete(h.sessions, code)
	}
}

func (h *wsHub) CloseSession(code string) {
	h.mu.Lock()
	group := h.sessions[code]
	delete(h.sessions, code)
	h.mu.Unlock()
	for conn := range group {
		_ = conn.Close()
	}
}

func (h *wsHub) ClosePlayer(code, playerID string) {
	h.mu.Lock()
	group := h.sessions[code]
	conns := make([]*websocket.Conn, 0, 1)
	for conn, client := range group {
		if client.playerID == playerID {
			delete(group, conn)
			conns = append(conns, conn)
		}
	}
	if len(group) == 0 {
		delete(h.sessions, code)
	}
	h.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (h *wsHub) write(conn *websocket.Conn, client *wsClient, data []byte) error {
	client.writeMu.Lock()
	defer client.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *wsHub) Send(code string, conn *websocket.Conn, event string, payload any) {
	h.mu.Lock()
	client := h.sessions[code][conn]
	h.mu.Unlock()
	if client == nil {
		return
	}
	data, err := json.Marshal(wsEnvelope{Event: event, Data: payload})
	if err != nil {
		return
	}
	_ = h.write(conn, client, data)
}

func (h *wsHub) Broadcast(code, event string, payload any) {
	h.mu.Lock()
	group := h.sessions[code]
	targets := make(map[*websocket.Conn]*wsClient, len(group))
	for conn, client := range group {
		targets[conn] = client
	}
	h.mu.Unlock()

	data, err := json.Marshal(wsEnvelope{Event: event, Data: payload})
	if err != nil {
		return
	}
	for conn, client := range targets {
		if err := h.write(conn, client, data); err != nil {
			h.Remove(code, conn)
		}
	}
}

func (h *wsHub) ToPlayer(code, playerID, event string, payload any) {
	h.mu.Lock()
	group := h.sessions[code]
	targets := make(map[*websocket.Conn]*wsClient)
	for conn, client := range group {
		if client.playerID == playerID {
			targets[conn] = client
		}
	}
	h.mu.Unlock()

	data, err := json.Marshal(wsEnvelope{Event: event, Data: payload})
	if err != nil {
		return
	}
	for conn, client := range targets {
		if err := h.write(conn, client, data); err != nil {
			h.Remove(code, conn)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	code, ok := parseWebsocketPath(r.URL.Path)
	if !ok || !s.store.HasCode(code) {
		http.NotFound(w, r)
		return
	}
	token := r.URL.Query().Get("token")
	playerID, ok := s.store.PlayerIDForToken(code, token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	connID := newConnID()
	log.Printf("ws connected session=%s player=%s remote=%s", code, playerID, r.RemoteAddr)
	s.ws.Add(code, conn, &wsClient{connID: connID, playerID: playerID})
	s.PlayerConnected(code, playerID, connID)
	s.sendAttachState(conn, code, playerID)
	go s.readWS(code, playerID, connID, conn)
}

// sendAttachState replays the sanitized snapshot to a fresh connection
// and, mid-game, the player's private role so a reloaded tab can catch
// up.
func (s *Server) sendAttachState(conn *websocket.Conn, code, playerID string) {
	unlock := s.lockSession(code)
	defer unlock()

	session, ok := s.store.GetSession(code)
	if !ok {
		return
	}
	s.ws.Send(code, conn, eventSessionState, snapshot(session))

	switch session.Phase {
	case phaseRoundPlay, phaseVoting, phaseWhiteGuess:
	default:
		return
	}
	player, ok := findPlayer(session, playerID)
	if !ok {
		return
	}
	role := privateRolePayload{Role: roleWord, Word: session.SecretWord}
	if player.IsWhite {
		role = privateRolePayload{Role: roleWhite}
	}
	s.ws.Send(code, conn, eventDealtPrivate, role)
}

func (s *Server) readWS(code, playerID, connID string, conn *websocket.Conn) {
	defer func() {
		s.ws.Remove(code, conn)
		s.PlayerDisconnected(connID)
		log.Printf("ws disconnected session=%s player=%s", code, playerID)
	}()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg wsInbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		s.dispatchInbound(conn, code, playerID, msg)
	}
}

func (s *Server) dispatchInbound(conn *websocket.Conn, code, playerID string, msg wsInbound) {
	switch msg.Event {
	case "turn/confirm_spoken":
		s.ConfirmSpoken(code, playerID)
	case "vote/cast":
		var payload castVotePayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		s.CastVote(code, playerID, payload.TargetPlayerID)
	case "white/guess":
		var payload guessPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		guess, err := validateGuessText(payload.Guess)
		if err != nil {
			s.ws.Send(code, conn, eventError, errorPayload{Message: err.Error()})
			return
		}
		s.SubmitWhiteGuess(code, playerID, guess)
	case "host/skip_player":
		if err := s.SkipCurrentTurn(code, playerID); err != nil {
			s.ws.Send(code, conn, eventError, errorPayload{Message: err.Error()})
		}
	}
}
