package server

func activePlayerCount(players []Player) int {
	count := 0
	for _, player := range players {
		if !player.IsEliminated {
			count++
		}
	}
	return count
}

// nextActiveSeat scans forward circularly from the seat after `from`,
// skipping eliminated seats. At least one active seat must remain.
func nextActiveSeat(players []Player, from int) int {
	next := (from + 1) % len(players)
	for players[next].IsEliminated {
		next = (next + 1) % len(players)
	}
	return next
}

func seatIndex(players []Player, playerID string) int {
	for i := range players {
		if players[i].ID == playerID {
			return i
		}
	}
	return -1
}

// nextRoundStarter keeps the prior round's starting player if they are
// still active; otherwise the first active non-white seat takes over.
func nextRoundStarter(players []Player, priorStarterID string) (string, int) {
	if index := seatIndex(players, priorStarterID); index >= 0 && !players[index].IsEliminated {
		return priorStarterID, index
	}
	for i := range players {
		if !players[i].IsEliminated && !players[i].IsWhite {
			return players[i].ID, i
		}
	}
	return "", -1
}

func allActiveVoted(players []Player, ballots map[string]*string) bool {
	for _, player := range players {
		if player.IsEliminated {
			continue
		}
		if _, ok := ballots[player.ID]; !ok {
			return false
		}
	}
	return true
}
