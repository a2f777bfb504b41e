package server

import (
	"net/http"
	"sync"

	"undercover/internal/config"
)

// dispatcher fans outbound events out to a session's connections.
// Broadcast addresses every connection in the session; ToPlayer
// addresses every connection of one player (a player may have several).
type dispatcher interface {
	Broadcast(code, event string, payload any)
	ToPlayer(code, playerID, event string, payload any)
}

type Server struct {
	store    *Store
	ws       *wsHub
	dispatch dispatcher
	cfg      config.Config

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(cfg config.Config) *Server {
	hub := newWSHub()
	return &Server{
		store:    NewStore(),
		ws:       hub,
		dispatch: hub,
		cfg:      cfg,
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("POST /api/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("DELETE /api/sessions/", s.handleSessionSubroutes)
	mux.HandleFunc("GET /ws/sessions/", s.handleWebsocket)
	return mux
}

// lockSession serializes all inbound work for one session: player
// actions and timer callbacks mutate state and dispatch their events
// under this lock, so effects never interleave and broadcasts go out in
// mutation order. Independent sessions proceed in parallel.
func (s *Server) lockSession(code string) func() {
	s.locksMu.Lock()
	lock, ok := s.locks[code]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[code] = lock
	}
	s.locksMu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (s *Server) dropSessionLock(code string) {
	s.locksMu.Lock()
	delete(s.locks, code)
	s.locksMu.Unlock()
}
