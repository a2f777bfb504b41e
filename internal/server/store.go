package server

import (
	"errors"
	"sync"
	"time"
)

var errSessionNotFound = errors.New("session not found")

type sessionTimers struct {
	vote       *time.Timer
	whiteGuess *time.Timer
	grace      map[string]*time.Timer
}

type sessionEntry struct {
	state  *Session
	tokens map[string]string
	conns  map[string]map[string]struct{}
	timers sessionTimers
}

// Store is the authoritative registry of active sessions. It owns the
// session state, the token and connection topology, and every timer a
// session has armed. All operations appear atomic to callers.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*sessionEntry),
	}
}

func (s *Store) CreateSession(state *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.Code] = &sessionEntry{
		state:  state,
		tokens: make(map[string]string),
		conns:  make(map[string]map[string]struct{}),
		timers: sessionTimers{
			grace: make(map[string]*time.Timer),
		},
	}
}

func (s *Store) GetSession(code string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return nil, false
	}
	return entry.state, true
}

func (s *Store) UpdateSession(code string, update func(session *Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return nil, errSessionNotFound
	}
	if err := update(entry.state); err != nil {
		return nil, err
	}
	return entry.state, nil
}

// DeleteSession removes the session and stops every timer it owns, so no
// callback can fire for a session that no longer exists.
func (s *Store) DeleteSession(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return
	}
	if entry.timers.vote != nil {
		entry.timers.vote.Stop()
	}
	if entry.timers.whiteGuess != nil {
		entry.timers.whiteGuess.Stop()
	}
	for _, timer := range entry.timers.grace {
		timer.Stop()
	}
	delete(s.sessions, code)
}

func (s *Store) ActiveCodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := make([]string, 0, len(s.sessions))
	for code := range s.sessions {
		codes = append(codes, code)
	}
	return codes
}

func (s *Store) HasCode(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[code]
	return ok
}

func (s *Store) AddToken(code, token, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[code]; ok {
		entry.tokens[token] = playerID
	}
}

func (s *Store) PlayerIDForToken(code, token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return "", false
	}
	playerID, ok := entry.tokens[token]
	return playerID, ok
}

// RemovePlayerTokens revokes every token issued to the player, used
// when the host removes someone from the lobby.
func (s *Store) RemovePlayerTokens(code, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return
	}
	for token, owner := range entry.tokens {
		if owner == playerID {
			delete(entry.tokens, token)
		}
	}
	delete(entry.conns, playerID)
}

func (s *Store) AddConn(code, playerID, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return
	}
	set := entry.conns[playerID]
	if set == nil {
		set = make(map[string]struct{})
		entry.conns[playerID] = set
	}
	set[connID] = struct{}{}
}

// RemoveConn drops the connection from whichever player owns it and
// reports the owner and whether the player still has live connections.
func (s *Store) RemoveConn(code, connID string) (playerID string, stillConnected, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return "", false, false
	}
	for id, set := range entry.conns {
		if _, ok := set[connID]; !ok {
			continue
		}
		delete(set, connID)
		if len(set) == 0 {
			delete(entry.conns, id)
			return id, false, true
		}
		return id, true, true
	}
	return "", false, false
}

func (s *Store) IsConnected(code, playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return false
	}
	return len(entry.conns[playerID]) > 0
}

func (s *Store) SetVoteTimer(code string, timer *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		timer.Stop()
		return
	}
	if entry.timers.vote != nil {
		entry.timers.vote.Stop()
	}
	entry.timers.vote = timer
}

func (s *Store) StopVoteTimer(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return
	}
	if entry.timers.vote != nil {
		entry.timers.vote.Stop()
		entry.timers.vote = nil
	}
}

func (s *Store) SetGuessTimer(code string, timer *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		timer.Stop()
		return
	}
	if entry.timers.whiteGuess != nil {
		entry.timers.whiteGuess.Stop()
	}
	entry.timers.whiteGuess = timer
}

func (s *Store) StopGuessTimer(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return
	}
	if entry.timers.whiteGuess != nil {
		entry.timers.whiteGuess.Stop()
		entry.timers.whiteGuess = nil
	}
}

func (s *Store) SetGraceTimer(code, playerID string, timer *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		timer.Stop()
		return
	}
	if existing, ok := entry.timers.grace[playerID]; ok {
		existing.Stop()
	}
	entry.timers.grace[playerID] = timer
}

func (s *Store) StopGraceTimer(code, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[code]
	if !ok {
		return
	}
	if timer, ok := entry.timers.grace[playerID]; ok {
		timer.Stop()
		delete(entry.timers.grace, playerID)
	}
}

func findPlayer(session *Session, playerID string) (*Player, bool) {
	for i := range session.Players {
		if session.Players[i].ID == playerID {
			return &session.Players[i], true
		}
	}
	return nil, false
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
