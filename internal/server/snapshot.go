package server

// snapshot renders the canonical sanitized session state. The secret
// word is always nulled; it surfaces only inside the end-of-game result.
func snapshot(session *Session) map[string]any {
	players := make([]map[string]any, 0, len(session.Players))
	for _, player := range session.Players {
		players = append(players, playerPayload(player))
	}

	var round map[string]any
	if session.Round != nil {
		round = map[string]any{
			"round_number":       session.Round.Number,
			"starting_player_id": session.Round.StartingPlayerID,
			"current_turn_index": session.Round.CurrentTurnIndex,
			"turns_completed":    session.Round.TurnsCompleted,
		}
	}

	var vote map[string]any
	if session.Vote != nil {
		ballots := make(map[string]any, len(session.Vote.Ballots))
		for voterID, target := range session.Vote.Ballots {
			if target == nil {
				ballots[voterID] = nil
			} else {
				ballots[voterID] = *target
			}
		}
		vote = map[string]any{
			"voting_ends_at": session.Vote.Deadline,
			"votes":          ballots,
		}
	}

	var whiteGuess map[string]any
	if session.WhiteGuess != nil {
		whiteGuess = map[string]any{
			"guess_ends_at": session.WhiteGuess.Deadline,
			"submitted":     session.WhiteGuess.Guess != nil,
		}
	}

	state := map[string]any{
		"code":           session.Code,
		"host_player_id": session.HostPlayerID,
		"created_at":     session.CreatedAt,
		"phase":          session.Phase,
		"players":        players,
		"category":       session.Category,
		"secret_word":    nil,
		"round":          round,
		"vote":           vote,
		"white_guess":    whiteGuess,
		"settings": map[string]any{
			"vote_seconds":    session.Settings.VoteSeconds,
			"guess_seconds":   session.Settings.GuessSeconds,
			"max_rounds":      session.Settings.MaxRounds,
			"allow_late_join": session.Settings.AllowLateJoin,
		},
	}
	if session.Phase == phaseEnded && session.Result != nil {
		state["result"] = map[string]any{
			"white_player_id": session.Result.WhitePlayerID,
			"secret_word":     session.Result.SecretWord,
			"winner":          session.Result.Winner,
			"white_guess":     session.Result.WhiteGuess,
		}
	}
	return state
}

func playerPayload(player Player) map[string]any {
	return map[string]any{
		"id":            player.ID,
		"name":          player.Name,
		"emoji":         player.Emoji,
		"is_connected":  player.IsConnected,
		"is_eliminated": player.IsEliminated,
	}
}

func playersPayload(session *Session) []map[string]any {
	players := make([]map[string]any, 0, len(session.Players))
	for _, player := range session.Players {
		players = append(players, playerPayload(player))
	}
	return players
}
