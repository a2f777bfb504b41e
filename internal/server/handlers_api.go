package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/skip2/go-qrcode"
)

type settingsRequest struct {
	VoteSeconds   *int  `json:"vote_seconds"`
	GuessSeconds  *int  `json:"guess_seconds"`
	MaxRounds     *int  `json:"max_rounds"`
	AllowLateJoin *bool `json:"allow_late_join"`
}

type createSessionRequest struct {
	Name     string           `json:"name"`
	Category string           `json:"category"`
	Settings *settingsRequest `json:"settings"`
}

type joinSessionRequest struct {
	Name string `json:"name"`
}

type seatingRequest struct {
	PlayerIDs []string `json:"player_ids"`
}

type kickPlayerRequest struct {
	PlayerID string `json:"player_id"`
}

func (s *Server) handleSessionSubroutes(w http.ResponseWriter, r *http.Request) {
	code, action, ok := parseSessionPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if action == "" {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, code)
		case http.MethodDelete:
			s.handleDeleteSession(w, r, code)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		switch action {
		case "qr":
			s.handleSessionQR(w, r, code)
		default:
			http.NotFound(w, r)
		}
	case http.MethodPost:
		switch action {
		case "join":
			s.handleJoinSession(w, r, code)
		case "start":
			s.handleStartGame(w, r, code)
		case "seating":
			s.handleSeating(w, r, code)
		case "kick":
			s.handleKick(w, r, code)
		default:
			http.NotFound(w, r)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	name, err := validateName(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	category, err := validateCategory(req.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	settings := Settings{
		VoteSeconds:  s.cfg.VoteDurationSeconds,
		GuessSeconds: s.cfg.GuessDurationSeconds,
		MaxRounds:    s.cfg.MaxRounds,
	}
	if req.Settings != nil {
		if req.Settings.VoteSeconds != nil {
			settings.VoteSeconds = *req.Settings.VoteSeconds
		}
		if req.Settings.GuessSeconds != nil {
			settings.GuessSeconds = *req.Settings.GuessSeconds
		}
		if req.Settings.MaxRounds != nil {
			settings.MaxRounds = *req.Settings.MaxRounds
		}
		if req.Settings.AllowLateJoin != nil {
			settings.AllowLateJoin = *req.Settings.AllowLateJoin
		}
	}
	if err := validateSettings(settings); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	code := newSessionCode(s.store.HasCode)
	playerID := newPlayerID()
	token := newPlayerToken()
	emoji := assignEmoji(nil)

	session := &Session{
		Code:         code,
		HostPlayerID: playerID,
		CreatedAt:    timeNowUTC(),
		Phase:        phaseLobby,
		Players: []Player{{
			ID:    playerID,
			Name:  name,
			Emoji: emoji,
		}},
		Category: category,
		Settings: settings,
	}
	s.store.CreateSession(session)
	s.store.AddToken(code, token, playerID)

	log.Printf("session created session=%s host=%s", code, playerID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"code":         code,
		"player_id":    playerID,
		"player_token": token,
		"emoji":        emoji,
	})
}

func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request, code string) {
	var req joinSessionRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	name, err := validateName(req.Name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	playerID := newPlayerID()
	token := newPlayerToken()
	emoji := ""
	unlock := s.lockSession(code)
	defer unlock()
	session, err := s.store.UpdateSession(code, func(session *Session) error {
		if session.Phase == phaseEnded {
			return errAlreadyStarted
		}
		if session.Phase != phaseLobby && !session.Settings.AllowLateJoin {
			return errAlreadyStarted
		}
		emoji = assignEmoji(usedEmojis(session.Players))
		session.Players = append(session.Players, Player{
			ID:    playerID,
			Name:  name,
			Emoji: emoji,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, errSessionNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.store.AddToken(code, token, playerID)

	log.Printf("player joined session=%s player=%s name=%s", code, playerID, name)
	writeJSON(w, http.StatusOK, map[string]any{
		"player_id":    playerID,
		"player_token": token,
		"emoji":        emoji,
	})
	s.dispatch.Broadcast(code, eventPlayersUpdate, playersPayload(session))
	s.dispatch.Broadcast(code, eventSessionState, snapshot(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, code string) {
	unlock := s.lockSession(code)
	defer unlock()
	session, ok := s.store.GetSession(code)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, snapshot(session))
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request, code string) {
	playerID, ok := s.authPlayer(r, code)
	if !ok {
		writeError(w, http.StatusForbidden, "invalid token")
		return
	}
	if err := s.StartGame(code, playerID); err != nil {
		switch {
		case errors.Is(err, errSessionNotFound):
			http.NotFound(w, r)
		case errors.Is(err, errOnlyHost):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			writeError(w, http.StatusConflict, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSeating(w http.ResponseWriter, r *http.Request, code string) {
	playerID, ok := s.authPlayer(r, code)
	if !ok {
		writeError(w, http.StatusForbidden, "invalid token")
		return
	}
	var req seatingRequest
	if err := readJSON(r.Body, &req); err != nil || len(req.PlayerIDs) == 0 {
		writeError(w, http.StatusBadRequest, "player_ids are required")
		return
	}
	unlock := s.lockSession(code)
	defer unlock()
	session, err := s.store.UpdateSession(code, func(session *Session) error {
		if playerID != session.HostPlayerID {
			return errOnlyHost
		}
		if session.Phase != phaseLobby {
			return errAlreadyStarted
		}
		if len(req.PlayerIDs) != len(session.Players) {
			return errors.New("invalid player arrangement")
		}
		byID := make(map[string]Player, len(session.Players))
		for _, player := range session.Players {
			byID[player.ID] = player
		}
		reordered := make([]Player, 0, len(req.PlayerIDs))
		for _, id := range req.PlayerIDs {
			player, ok := byID[id]
			if !ok {
				return errors.New("invalid player arrangement")
			}
			delete(byID, id)
			reordered = append(reordered, player)
		}
		session.Players = reordered
		return nil
	})
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	log.Printf("seating updated session=%s", code)
	writeJSON(w, http.StatusOK, snapshot(session))
	s.dispatch.Broadcast(code, eventSessionState, snapshot(session))
}

func (s *Server) handleKick(w http.ResponseWriter, r *http.Request, code string) {
	playerID, ok := s.authPlayer(r, code)
	if !ok {
		writeError(w, http.StatusForbidden, "invalid token")
		return
	}
	var req kickPlayerRequest
	if err := readJSON(r.Body, &req); err != nil || req.PlayerID == "" {
		writeError(w, http.StatusBadRequest, "player_id is required")
		return
	}
	unlock := s.lockSession(code)
	defer unlock()
	session, err := s.store.UpdateSession(code, func(session *Session) error {
		if playerID != session.HostPlayerID {
			return errOnlyHost
		}
		if session.Phase != phaseLobby {
			return errAlreadyStarted
		}
		if req.PlayerID == session.HostPlayerID {
			return errors.New("cannot remove the host")
		}
		index := seatIndex(session.Players, req.PlayerID)
		if index < 0 {
			return errors.New("player not found")
		}
		session.Players = append(session.Players[:index], session.Players[index+1:]...)
		return nil
	})
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	s.store.RemovePlayerTokens(code, req.PlayerID)
	s.ws.ClosePlayer(code, req.PlayerID)
	log.Printf("player removed session=%s target=%s", code, req.PlayerID)
	writeJSON(w, http.StatusOK, snapshot(session))
	s.dispatch.Broadcast(code, eventPlayersUpdate, playersPayload(session))
	s.dispatch.Broadcast(code, eventSessionState, snapshot(session))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request, code string) {
	playerID, ok := s.authPlayer(r, code)
	if !ok {
		writeError(w, http.StatusForbidden, "invalid token")
		return
	}
	session, exists := s.store.GetSession(code)
	if !exists {
		http.NotFound(w, r)
		return
	}
	if playerID != session.HostPlayerID {
		writeError(w, http.StatusForbidden, errOnlyHost.Error())
		return
	}
	unlock := s.lockSession(code)
	s.store.DeleteSession(code)
	unlock()
	s.dropSessionLock(code)
	s.ws.CloseSession(code)
	log.Printf("session deleted session=%s", code)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSessionQR(w http.ResponseWriter, r *http.Request, code string) {
	if !s.store.HasCode(code) {
		http.NotFound(w, r)
		return
	}
	joinURL := s.cfg.PublicBaseURL + "/join/" + code
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render qr code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) authPlayer(r *http.Request, code string) (string, bool) {
	token := bearerToken(r)
	if token == "" {
		return "", false
	}
	return s.store.PlayerIDForToken(code, token)
}

func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errSessionNotFound):
		http.NotFound(w, r)
	case errors.Is(err, errOnlyHost):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusConflict, err.Error())
	}
}
