package server

import "time"

const (
	phaseLobby      = "lobby"
	phaseDealing    = "dealing"
	phaseRoundPlay  = "round_play"
	phaseVoting     = "voting"
	phaseResolution = "resolution"
	phaseWhiteGuess = "white_guess"
	phaseEnded      = "ended"
)

const (
	winnerWhite  = "white"
	winnerOthers = "others"
)

const (
	roleWhite = "white"
	roleWord  = "word"
)

const minPlayers = 4

type Session struct {
	Code          string
	HostPlayerID  string
	CreatedAt     time.Time
	Phase         string
	Players       []Player
	Category      string
	SecretWord    string
	WhitePlayerID string
	Round         *Round
	Vote          *Vote
	WhiteGuess    *WhiteGuess
	Settings      Settings
	Result        *GameResult
	// Monotonic deadline generations; a timer armed for an older
	// generation must not resolve the current phase.
	VoteSeq  uint64
	GuessSeq uint64
}

type Player struct {
	ID           string
	Name         string
	Emoji        string
	IsWhite      bool
	IsConnected  bool
	IsEliminated bool
}

type Round struct {
	Number           int
	StartingPlayerID string
	CurrentTurnIndex int
	TurnsCompleted   int
}

// Vote holds the ballots for one voting phase. A nil target is an
// abstention. Ballots is keyed by voter id; casting again overwrites.
type Vote struct {
	Deadline time.Time
	Seq      uint64
	Ballots  map[string]*string
}

type WhiteGuess struct {
	Deadline time.Time
	Seq      uint64
	Guess    *string
}

type Settings struct {
	VoteSeconds   int
	GuessSeconds  int
	MaxRounds     int
	AllowLateJoin bool
}

type GameResult struct {
	WhitePlayerID string
	SecretWord    string
	Winner        string
	WhiteGuess    string
}
