package server

import "math/rand"

var emojiPool = []string{
	"🦊", "🐙", "🦁", "🐯", "🐸", "🐼", "🐨", "🐵", "🦝", "🦔",
	"🐺", "🐱", "🐶", "🐰", "🐹", "🐻", "🐮", "🐷", "🦄", "🦓",
	"🦒", "🐘", "🦏", "🐧", "🦅", "🦆", "🦉", "🦜", "🐳", "🐬",
	"🦈", "🐠", "🦀", "🦑", "🦋", "🐝", "🐞", "🐢", "🦎", "🐉",
}

// assignEmoji prefers an unused emoji and only repeats once the pool is
// exhausted.
func assignEmoji(used map[string]struct{}) string {
	for _, emoji := range emojiPool {
		if _, taken := used[emoji]; !taken {
			return emoji
		}
	}
	return emojiPool[rand.Intn(len(emojiPool))]
}

func usedEmojis(players []Player) map[string]struct{} {
	used := make(map[string]struct{}, len(players))
	for _, player := range players {
		used[player.Emoji] = struct{}{}
	}
	return used
}
