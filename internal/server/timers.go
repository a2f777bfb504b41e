package server

import (
	"log"
	"time"
)

func (s *Server) armVoteTimer(code string, duration time.Duration, seq uint64) {
	s.store.SetVoteTimer(code, time.AfterFunc(duration, func() {
		s.voteDeadline(code, seq)
	}))
}

func (s *Server) armGuessTimer(code string, duration time.Duration, seq uint64) {
	s.store.SetGuessTimer(code, time.AfterFunc(duration, func() {
		s.guessDeadline(code, seq)
	}))
}

func (s *Server) armGraceTimer(code, playerID string) {
	duration := time.Duration(s.cfg.DisconnectGraceSeconds) * time.Second
	s.store.SetGraceTimer(code, playerID, time.AfterFunc(duration, func() {
		s.graceExpired(code, playerID)
	}))
}

// voteDeadline is the vote timer callback. The session may have been
// deleted, resolved early, or moved on to a later voting phase since
// the timer was armed; the generation check makes all of those no-ops.
func (s *Server) voteDeadline(code string, seq uint64) {
	unlock := s.lockSession(code)
	defer unlock()

	session, ok := s.store.GetSession(code)
	if !ok || session.Phase != phaseVoting || session.Vote == nil || session.Vote.Seq != seq {
		return
	}
	log.Printf("vote deadline reached session=%s", code)
	s.resolveVotesLocked(code)
}

func (s *Server) guessDeadline(code string, seq uint64) {
	unlock := s.lockSession(code)
	defer unlock()

	session, ok := s.store.GetSession(code)
	if !ok || session.Phase != phaseWhiteGuess || session.WhiteGuess == nil || session.WhiteGuess.Seq != seq {
		return
	}
	log.Printf("guess deadline reached session=%s", code)
	s.resolveWhiteGuessLocked(code)
}

// graceExpired auto-confirms for a speaker who stayed disconnected for
// the whole grace period.
func (s *Server) graceExpired(code, playerID string) {
	s.store.StopGraceTimer(code, playerID)

	unlock := s.lockSession(code)
	defer unlock()

	if s.store.IsConnected(code, playerID) {
		return
	}
	session, ok := s.store.GetSession(code)
	if !ok || session.Phase != phaseRoundPlay || session.Round == nil {
		return
	}
	if session.Players[session.Round.CurrentTurnIndex].ID != playerID {
		return
	}
	log.Printf("turn auto-advanced session=%s player=%s reason=disconnect_grace", code, playerID)
	s.confirmSpokenLocked(code, playerID)
}
