package server

// tallyVotes resolves a set of ballots to an accused player id. Nil
// targets are abstentions and never count toward anyone. An empty count
// or a shared maximum is a no-decision; the accused id is empty then.
func tallyVotes(ballots map[string]*string) (accused string, isTie bool) {
	counts := make(map[string]int)
	for _, target := range ballots {
		if target == nil {
			continue
		}
		counts[*target]++
	}
	if len(counts) == 0 {
		return "", true
	}

	topID := ""
	topCount := 0
	secondCount := 0
	for id, count := range counts {
		switch {
		case count > topCount:
			secondCount = topCount
			topID = id
			topCount = count
		case count > secondCount:
			secondCount = count
		}
	}
	if topCount == secondCount {
		return "", true
	}
	return topID, false
}
