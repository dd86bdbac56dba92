package watcher

import "regexp"

// Standing names the nine fixed disposition levels with their scores.
type Standing struct {
	Key    string
	Score  int
	phrase *regexp.Regexp
}

// MaxStandingScore is the best possible consider outcome; the tail
// recomputation pass stops early once it sees one.
const MaxStandingScore = 1450

// DefaultStanding is reported when a consider line carries none of the
// nine phrases.
const DefaultStanding = "Indifferent"

// standingTable maps each consider phrase to its level, most favorable
// first. The scores are the client's fixed nine-step scale.
var standingTable = []Standing{
	{Key: "Ally", Score: 1450, phrase: regexp.MustCompile(`(?i)regards you as an ally`)},
	{Key: "Warmly", Score: 875, phrase: regexp.MustCompile(`(?i)looks upon you warmly`)},
	{Key: "Kindly", Score: 575, phrase: regexp.MustCompile(`(?i)kindly considers you`)},
	{Key: "Amiable", Score: 250, phrase: regexp.MustCompile(`(?i)judges you amiably`)},
	{Key: "Indifferent", Score: 0, phrase: regexp.MustCompile(`(?i)regards you indifferently`)},
	{Key: "Apprehensive", Score: -250, phrase: regexp.MustCompile(`(?i)looks your way apprehensively`)},
	{Key: "Dubious", Score: -575, phrase: regexp.MustCompile(`(?i)glowers at you dubiously`)},
	{Key: "Threatening", Score: -875, phrase: regexp.MustCompile(`(?i)glares at you threateningly`)},
	{Key: "Scowls", Score: -1450, phrase: regexp.MustCompile(`(?i)scowls at you`)},
}

// MatchStanding finds the standing phrase present in a consider line,
// defaulting to Indifferent with score 0 when no phrase matches.
func MatchStanding(line string) (string, int) {
	for _, s := range standingTable {
		if s.phrase.MatchString(line) {
			return s.Key, s.Score
		}
	}
	return DefaultStanding, 0
}

// hostileStanding reports the levels a fresh combat engagement is known
// to bias a consider toward.
func hostileStanding(key string) bool {
	return key == "Threatening" || key == "Dubious" || key == "Apprehensive"
}
