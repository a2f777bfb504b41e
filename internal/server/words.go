package server

import (
	"math/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	categoryDefault = "default"
	categorySoft    = "soft"
	categoryHard    = "hard"
)

var wordLists = map[string][]string{
	categoryDefault: {
		"Bibliothek", "Flughafen", "Krankenhaus", "Leuchtturm", "Zirkus",
		"Vulkan", "Pyramide", "Achterbahn", "Aquarium", "Bahnhof",
		"Schwimmbad", "Wolkenkratzer", "Bauernhof", "Raumstation", "Kino",
		"Museum", "Strand", "Dschungel", "Schloss", "Gletscher",
		"Hafen", "Wochenmarkt", "Theater", "Observatorium",
	},
	categorySoft: {
		"Pizza", "Regenbogen", "Fahrrad", "Schneemann", "Luftballon",
		"Eiscreme", "Picknick", "Lagerfeuer", "Drachen", "Sandburg",
		"Kuscheltier", "Geburtstag", "Karussell", "Seifenblase", "Pfannkuchen",
		"Hängematte", "Schaukel", "Murmeltier", "Zuckerwatte", "Gartenzwerg",
	},
	categoryHard: {
		"Porträt", "Fata Morgana", "Déjà-vu", "Silhouette", "Metronom",
		"Patina", "Sommelier", "Kaleidoskop", "Avantgarde", "Bumerang",
		"Chamäleon", "Labyrinth", "Renaissance", "Pantomime", "Zeitzone",
		"Quarantäne", "Horizont", "Jalousie", "Mosaik", "Résumé",
	},
}

func selectSecretWord(category string) string {
	words, ok := wordLists[category]
	if !ok {
		words = wordLists[categoryDefault]
	}
	return words[rand.Intn(len(words))]
}

func validCategory(category string) bool {
	_, ok := wordLists[category]
	return ok
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeGuess folds case, strips diacritics and punctuation, and
// collapses whitespace so "  Pörträt!! " and "portrat" compare equal.
func normalizeGuess(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	stripped, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		stripped = lowered
	}
	var b strings.Builder
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isCorrectGuess(guess, secretWord string) bool {
	return normalizeGuess(guess) == normalizeGuess(secretWord)
}
