package server

import "time"

const (
	eventSessionState  = "session/state"
	eventPlayersUpdate = "session/players_update"
	eventDealtPrivate  = "game/dealt_private"
	eventTurnStarted   = "turn/started"
	eventTurnEnded     = "turn/ended"
	eventVotingStarted = "voting/started"
	eventVotingEnded   = "voting/ended"
	eventEliminated    = "player/eliminated"
	eventGuessStarted  = "white/guess_started"
	eventGuessPending  = "white/guess_pending"
	eventGuessResult   = "white/guess_result"
	eventRoundAdvanced = "round/advanced"
	eventGameEnded     = "game/ended"
	eventError         = "error"
)

type privateRolePayload struct {
	Role string `json:"role"`
	Word string `json:"word,omitempty"`
}

type turnStartedPayload struct {
	PlayerID    string `json:"player_id"`
	RoundNumber int    `json:"round_number"`
	TurnNumber  int    `json:"turn_number"`
}

type turnEndedPayload struct {
	PlayerID string `json:"player_id"`
}

type votingStartedPayload struct {
	VotingEndsAt time.Time `json:"voting_ends_at"`
}

type votingEndedPayload struct {
	AccusedPlayerID string `json:"accused_player_id,omitempty"`
	IsTie           bool   `json:"is_tie"`
}

type eliminatedPayload struct {
	PlayerID   string `json:"player_id"`
	WasWhite   bool   `json:"was_white"`
	PlayerName string `json:"player_name"`
}

type guessPhasePayload struct {
	GuessEndsAt time.Time `json:"guess_ends_at"`
}

type guessResultPayload struct {
	IsCorrect bool `json:"is_correct"`
}

type roundAdvancedPayload struct {
	RoundNumber      int    `json:"round_number"`
	StartingPlayerID string `json:"starting_player_id"`
}

type gameEndedPayload struct {
	WhitePlayerID string `json:"white_player_id"`
	SecretWord    string `json:"secret_word"`
	Winner        string `json:"winner"`
	WhiteGuess    string `json:"white_guess,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}
