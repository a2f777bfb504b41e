package server

import (
	"errors"
	"log"
	"math/rand"
	"time"
)

var (
	errOnlyHost         = errors.New("only the host may do that")
	errAlreadyStarted   = errors.New("game has already started")
	errNotEnoughPlayers = errors.New("need at least 4 players to start")

	// errStaleAction aborts an update for an out-of-date or invalid
	// player action. Such actions are expected under network jitter and
	// are silently dropped.
	errStaleAction = errors.New("stale action")
)

func (s *Server) broadcastState(session *Session) {
	s.dispatch.Broadcast(session.Code, eventSessionState, snapshot(session))
}

// StartGame deals the secret word and the white role and opens round 1.
// Host-only; requires the lobby phase and at least four players.
func (s *Server) StartGame(code, playerID string) error {
	unlock := s.lockSession(code)
	defer unlock()

	session, ok := s.store.GetSession(code)
	if !ok {
		return errSessionNotFound
	}
	if playerID != session.HostPlayerID {
		return errOnlyHost
	}
	if session.Phase != phaseLobby {
		return errAlreadyStarted
	}
	if len(session.Players) < minPlayers {
		return errNotEnoughPlayers
	}

	session, err := s.store.UpdateSession(code, func(session *Session) error {
		session.Phase = phaseDealing
		return nil
	})
	if err != nil {
		return err
	}
	s.broadcastState(session)

	session, err = s.store.UpdateSession(code, func(session *Session) error {
		session.SecretWord = selectSecretWord(session.Category)
		whiteIndex := rand.Intn(len(session.Players))
		session.WhitePlayerID = session.Players[whiteIndex].ID
		for i := range session.Players {
			session.Players[i].IsWhite = i == whiteIndex
		}
		starters := make([]int, 0, len(session.Players)-1)
		for i := range session.Players {
			if !session.Players[i].IsWhite {
				starters = append(starters, i)
			}
		}
		startIndex := starters[rand.Intn(len(starters))]
		session.Round = &Round{
			Number:           1,
			StartingPlayerID: session.Players[startIndex].ID,
			CurrentTurnIndex: startIndex,
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, player := range session.Players {
		role := privateRolePayload{Role: roleWord, Word: session.SecretWord}
		if player.IsWhite {
			role = privateRolePayload{Role: roleWhite}
		}
		s.dispatch.ToPlayer(code, player.ID, eventDealtPrivate, role)
	}

	session, err = s.store.UpdateSession(code, func(session *Session) error {
		session.Phase = phaseRoundPlay
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("game started session=%s players=%d", code, len(session.Players))
	s.broadcastState(session)
	s.dispatch.Broadcast(code, eventTurnStarted, turnStartedPayload{
		PlayerID:    session.Round.StartingPlayerID,
		RoundNumber: 1,
		TurnNumber:  1,
	})
	return nil
}

// ConfirmSpoken records that the current speaker finished their turn.
// Confirmations from anyone else are ignored.
func (s *Server) ConfirmSpoken(code, playerID string) {
	unlock := s.lockSession(code)
	defer unlock()
	s.confirmSpokenLocked(code, playerID)
}

func (s *Server) confirmSpokenLocked(code, playerID string) {
	session, ok := s.store.GetSession(code)
	if !ok || session.Phase != phaseRoundPlay || session.Round == nil {
		return
	}
	if session.Players[session.Round.CurrentTurnIndex].ID != playerID {
		return
	}

	roundDone := false
	session, err := s.store.UpdateSession(code, func(session *Session) error {
		session.Round.TurnsCompleted++
		if session.Round.TurnsCompleted >= activePlayerCount(session.Players) {
			roundDone = true
			return nil
		}
		session.Round.CurrentTurnIndex = nextActiveSeat(session.Players, session.Round.CurrentTurnIndex)
		return nil
	})
	if err != nil {
		return
	}
	s.dispatch.Broadcast(code, eventTurnEnded, turnEndedPayload{PlayerID: playerID})
	if roundDone {
		s.startVotingLocked(code)
		return
	}
	s.broadcastState(session)
	s.dispatch.Broadcast(code, eventTurnStarted, turnStartedPayload{
		PlayerID:    session.Players[session.Round.CurrentTurnIndex].ID,
		RoundNumber: session.Round.Number,
		TurnNumber:  session.Round.TurnsCompleted + 1,
	})
}

func (s *Server) startVotingLocked(code string) {
	var deadline time.Time
	var seq uint64
	session, err := s.store.UpdateSession(code, func(session *Session) error {
		session.Phase = phaseVoting
		session.VoteSeq++
		seq = session.VoteSeq
		deadline = timeNowUTC().Add(time.Duration(session.Settings.VoteSeconds) * time.Second)
		session.Vote = &Vote{
			Deadline: deadline,
			Seq:      seq,
			Ballots:  make(map[string]*string),
		}
		return nil
	})
	if err != nil {
		return
	}
	s.broadcastState(session)
	s.dispatch.Broadcast(code, eventVotingStarted, votingStartedPayload{VotingEndsAt: deadline})
	s.armVoteTimer(code, time.Until(deadline), seq)
}

// CastVote records a ballot for a non-eliminated voter. A nil target is
// an abstention; self-votes and votes for unknown or eliminated targets
// are dropped without being entered. Casting again overwrites. When the
// last active player has a ballot the armed deadline timer is disarmed
// and the vote resolves immediately.
func (s *Server) CastVote(code, voterID string, targetID *string) {
	unlock := s.lockSession(code)
	defer unlock()

	allVoted := false
	session, err := s.store.UpdateSession(code, func(session *Session) error {
		if session.Phase != phaseVoting || session.Vote == nil {
			return errStaleAction
		}
		voter, ok := findPlayer(session, voterID)
		if !ok || voter.IsEliminated {
			return errStaleAction
		}
		if targetID != nil {
			if *targetID == voterID {
				return errStaleAction
			}
			target, ok := findPlayer(session, *targetID)
			if !ok || target.IsEliminated {
				return errStaleAction
			}
		}
		session.Vote.Ballots[voterID] = targetID
		allVoted = allActiveVoted(session.Players, session.Vote.Ballots)
		return nil
	})
	if err != nil {
		return
	}
	s.broadcastState(session)
	if allVoted {
		s.store.StopVoteTimer(code)
		s.resolveVotesLocked(code)
	}
}

func (s *Server) resolveVotesLocked(code string) {
	session, ok := s.store.GetSession(code)
	if !ok || session.Vote == nil {
		return
	}
	accused, isTie := tallyVotes(session.Vote.Ballots)

	session, err := s.store.UpdateSession(code, func(session *Session) error {
		session.Phase = phaseResolution
		return nil
	})
	if err != nil {
		return
	}
	s.dispatch.Broadcast(code, eventVotingEnded, votingEndedPayload{
		AccusedPlayerID: accused,
		IsTie:           isTie,
	})

	switch {
	case accused != "" && accused == session.WhitePlayerID:
		s.startWhiteGuessLocked(code)
	case accused != "":
		s.eliminatePlayerLocked(code, accused)
	default:
		s.startNextRoundLocked(code)
	}
}

func (s *Server) startWhiteGuessLocked(code string) {
	var deadline time.Time
	var seq uint64
	session, err := s.store.UpdateSession(code, func(session *Session) error {
		session.Phase = phaseWhiteGuess
		session.GuessSeq++
		seq = session.GuessSeq
		deadline = timeNowUTC().Add(time.Duration(session.Settings.GuessSeconds) * time.Second)
		session.WhiteGuess = &WhiteGuess{Deadline: deadline, Seq: seq}
		return nil
	})
	if err != nil {
		return
	}
	s.broadcastState(session)
	s.dispatch.ToPlayer(code, session.WhitePlayerID, eventGuessStarted, guessPhasePayload{GuessEndsAt: deadline})
	s.dispatch.Broadcast(code, eventGuessPending, guessPhasePayload{GuessEndsAt: deadline})
	s.armGuessTimer(code, time.Until(deadline), seq)
}

// SubmitWhiteGuess accepts the white player's guess, disarms the guess
// deadline and resolves immediately.
func (s *Server) SubmitWhiteGuess(code, playerID, guess string) {
	unlock := s.lockSession(code)
	defer unlock()

	_, err := s.store.UpdateSession(code, func(session *Session) error {
		if session.Phase != phaseWhiteGuess || session.WhiteGuess == nil {
			return errStaleAction
		}
		if playerID != session.WhitePlayerID {
			return errStaleAction
		}
		session.WhiteGuess.Guess = &guess
		return nil
	})
	if err != nil {
		return
	}
	s.store.StopGuessTimer(code)
	s.resolveWhiteGuessLocked(code)
}

func (s *Server) resolveWhiteGuessLocked(code string) {
	session, ok := s.store.GetSession(code)
	if !ok || session.WhiteGuess == nil {
		return
	}
	correct := session.WhiteGuess.Guess != nil &&
		isCorrectGuess(*session.WhiteGuess.Guess, session.SecretWord)
	s.dispatch.Broadcast(code, eventGuessResult, guessResultPayload{IsCorrect: correct})
	winner := winnerOthers
	if correct {
		winner = winnerWhite
	}
	s.endGameLocked(code, winner, session.WhiteGuess.Guess)
}

func (s *Server) eliminatePlayerLocked(code, playerID string) {
	var name string
	wasWhite := false
	_, err := s.store.UpdateSession(code, func(session *Session) error {
		player, ok := findPlayer(session, playerID)
		if !ok {
			return errStaleAction
		}
		player.IsEliminated = true
		name = player.Name
		wasWhite = player.ID == session.WhitePlayerID
		return nil
	})
	if err != nil {
		return
	}
	log.Printf("player eliminated session=%s player=%s", code, playerID)
	s.dispatch.Broadcast(code, eventEliminated, eliminatedPayload{
		PlayerID:   playerID,
		WasWhite:   wasWhite,
		PlayerName: name,
	})
	if wasWhite {
		s.endGameLocked(code, winnerOthers, nil)
		return
	}
	s.startNextRoundLocked(code)
}

func (s *Server) startNextRoundLocked(code string) {
	session, ok := s.store.GetSession(code)
	if !ok || session.Round == nil {
		return
	}
	if session.Settings.MaxRounds > 0 && session.Round.Number >= session.Settings.MaxRounds {
		s.endGameLocked(code, winnerOthers, nil)
		return
	}
	if _, index := nextRoundStarter(session.Players, session.Round.StartingPlayerID); index < 0 {
		// Every word-holder is eliminated; only the white is left standing.
		s.endGameLocked(code, winnerWhite, nil)
		return
	}

	var starterID string
	var number int
	session, err := s.store.UpdateSession(code, func(session *Session) error {
		starter, index := nextRoundStarter(session.Players, session.Round.StartingPlayerID)
		if index < 0 {
			return errStaleAction
		}
		number = session.Round.Number + 1
		starterID = starter
		session.Round = &Round{
			Number:           number,
			StartingPlayerID: starter,
			CurrentTurnIndex: index,
		}
		session.Phase = phaseRoundPlay
		session.Vote = nil
		session.WhiteGuess = nil
		return nil
	})
	if err != nil {
		return
	}
	s.dispatch.Broadcast(code, eventRoundAdvanced, roundAdvancedPayload{
		RoundNumber:      number,
		StartingPlayerID: starterID,
	})
	s.broadcastState(session)
	s.dispatch.Broadcast(code, eventTurnStarted, turnStartedPayload{
		PlayerID:    starterID,
		RoundNumber: number,
		TurnNumber:  1,
	})
}

func (s *Server) endGameLocked(code, winner string, whiteGuess *string) {
	guessText := ""
	if whiteGuess != nil {
		guessText = *whiteGuess
	}
	session, err := s.store.UpdateSession(code, func(session *Session) error {
		session.Phase = phaseEnded
		session.Result = &GameResult{
			WhitePlayerID: session.WhitePlayerID,
			SecretWord:    session.SecretWord,
			Winner:        winner,
			WhiteGuess:    guessText,
		}
		return nil
	})
	if err != nil {
		return
	}
	s.store.StopVoteTimer(code)
	s.store.StopGuessTimer(code)
	log.Printf("game ended session=%s winner=%s", code, winner)
	s.dispatch.Broadcast(code, eventGameEnded, gameEndedPayload{
		WhitePlayerID: session.Result.WhitePlayerID,
		SecretWord:    session.Result.SecretWord,
		Winner:        session.Result.Winner,
		WhiteGuess:    session.Result.WhiteGuess,
	})
	s.broadcastState(session)
}

// SkipCurrentTurn lets the host confirm on behalf of the current
// speaker, for stalled rounds.
func (s *Server) SkipCurrentTurn(code, playerID string) error {
	unlock := s.lockSession(code)
	defer unlock()

	session, ok := s.store.GetSession(code)
	if !ok {
		return errSessionNotFound
	}
	if playerID != session.HostPlayerID {
		return errOnlyHost
	}
	if session.Phase != phaseRoundPlay || session.Round == nil {
		return nil
	}
	s.confirmSpokenLocked(code, session.Players[session.Round.CurrentTurnIndex].ID)
	return nil
}

// PlayerConnected registers a live connection. Reconnecting cancels any
// pending disconnect-grace timer with no other side effect.
func (s *Server) PlayerConnected(code, playerID, connID string) {
	unlock := s.lockSession(code)
	defer unlock()

	s.store.AddConn(code, playerID, connID)
	s.store.StopGraceTimer(code, playerID)
	session, err := s.store.UpdateSession(code, func(session *Session) error {
		player, ok := findPlayer(session, playerID)
		if !ok {
			return errStaleAction
		}
		player.IsConnected = true
		return nil
	})
	if err != nil {
		return
	}
	s.dispatch.Broadcast(code, eventPlayersUpdate, playersPayload(session))
}

// PlayerDisconnected resolves the dropped connection to its owning
// session and player by scanning all active sessions; the transport
// only knows the connection id.
func (s *Server) PlayerDisconnected(connID string) {
	for _, code := range s.store.ActiveCodes() {
		playerID, stillConnected, found := s.store.RemoveConn(code, connID)
		if !found {
			continue
		}
		if !stillConnected {
			s.playerOffline(code, playerID)
		}
		return
	}
}

func (s *Server) playerOffline(code, playerID string) {
	unlock := s.lockSession(code)
	defer unlock()

	session, err := s.store.UpdateSession(code, func(session *Session) error {
		player, ok := findPlayer(session, playerID)
		if !ok {
			return errStaleAction
		}
		player.IsConnected = false
		return nil
	})
	if err != nil {
		return
	}
	s.dispatch.Broadcast(code, eventPlayersUpdate, playersPayload(session))
	if session.Phase == phaseRoundPlay && session.Round != nil &&
		session.Players[session.Round.CurrentTurnIndex].ID == playerID {
		log.Printf("grace timer armed session=%s player=%s", code, playerID)
		s.armGraceTimer(code, playerID)
	}
}
