package watcher

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EventKind identifies the typed event a log line classifies into.
type EventKind int

const (
	EventNone EventKind = iota
	EventZoneChange
	EventInvisOn
	EventInvisOff
	EventMeleeHit
	EventMeleeMiss
	EventAutoAttack
	EventMobHitsYou
	EventMobTriesHitYou
	EventNonMelee
	EventThorns
	EventSpellYourHits
	EventSpellYouHit
	EventDotTick
	EventConsider
)

// Event is the typed result of classifying one log line. Target carries
// the entity name for combat and consider events; Zone is set only for
// zone changes. Index is the line's position within the scanned batch.
type Event struct {
	Kind   EventKind
	At     time.Time
	Zone   string
	Target string
	Line   string
	Index  int
}

type classifyRule struct {
	kind EventKind
	re   *regexp.Regexp
}

// classifyRules is evaluated strictly in order; the first structural
// match wins. The ordering establishes a fixed precedence between
// patterns that could otherwise be broadened into overlapping.
var classifyRules = []classifyRule{
	{EventZoneChange, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+You have entered (?P<zone>.+?)\.`)},
	{EventInvisOn, regexp.MustCompile(`(?i)(You vanish\.|You gather shadows about you\.)`)},
	{EventInvisOff, regexp.MustCompile(`(?i)(You appear\.|Your shadows fade\.)`)},
	{EventMeleeHit, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+You\s+(?:slash|pierce|bash|crush|kick|hit|smash|backstab|strike)\s+(?P<mob>.+?)\s+for\s+\d+\s+points of damage\.`)},
	{EventMeleeMiss, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+You\s+try to\s+(?:slash|pierce|punch|bash|crush|kick|hit|smash|backstab|strike)\s+(?P<mob>.+?),\s+but\s+miss!$`)},
	{EventAutoAttack, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+Auto attack on\.`)},
	{EventMobHitsYou, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+(?P<mob>.+?)\s+(?:hits|kicks|bashes)\s+YOU\b`)},
	{EventMobTriesHitYou, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+(?P<mob>.+?)\s+tries to\s+(?:hit|bash)\s+YOU\b`)},
	{EventNonMelee, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+(?P<mob>.+?)\s+was hit by non-melee\b`)},
	{EventThorns, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+(?P<mob>.+?)\s+was pierced by thorns\b`)},
	{EventSpellYourHits, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+Your\s+.+?\s+hits\s+(?P<mob>.+?)\s+for\s+\d+\s+points? of (?:\w+\s+)?damage\.`)},
	{EventSpellYouHit, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+You\s+(?:blast|smite|burn|shock|freeze|immolate|incinerate|strike|hit)\s+(?P<mob>.+?)\s+for\s+\d+\s+points? of (?:\w+\s+)?damage\.`)},
	{EventDotTick, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+(?P<mob>.+?)\s+has taken\s+\d+\s+damage from your\s+.+?\.`)},
	{EventConsider, regexp.MustCompile(`(?i)^\[(?P<ts>[^\]]+)\]\s+(?P<mob>.+?)\s+(?:regards you as an ally|looks upon you warmly|kindly considers you|judges you amiably|regards you indifferently|looks your way apprehensively|glowers at you dubiously|glares at you threateningly|scowls at you)`)},
}

// reLineTS extracts the bracketed timestamp for rules whose marker can
// appear anywhere in the line (invisibility on/off).
var reLineTS = regexp.MustCompile(`^\[([^\]]+)\]`)

// Secondary markers used by the short line-window heuristic. Broader than
// the classifier's self-only invisibility rules: third-party fades and
// sneak messages also make a nearby consider suspect.
var (
	reAnyInvisOn  = regexp.MustCompile(`(?i)(You vanish\.|Someone fades away\.|You gather shadows about you\.|Someone steps into the shadows and disappears\.)`)
	reAnyInvisOff = regexp.MustCompile(`(?i)(You appear\.|Your shadows fade\.)`)
	reSneak       = regexp.MustCompile(`(?i)(You are as quiet as a cat stalking it's prey|You are as quiet as a herd of stampeding elephants)`)
	reAnyAttack   = regexp.MustCompile(`(?i)^.*\]\s+You\s+(?:slash|pierce|bash|crush|kick|hit|smash|backstab|strike)\b`)
	reReappearing = regexp.MustCompile(`(?i)You feel yourself starting to appear\.`)
)

// Classify runs a line through the ordered rule table and returns the
// first matching typed event. Lines that match no rule return ok=false;
// the classifier is a filter, not a validator.
func Classify(line string) (Event, bool) {
	for _, rule := range classifyRules {
		m := rule.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ev := Event{Kind: rule.kind, Line: line}
		ts := ""
		for i, name := range rule.re.SubexpNames() {
			switch name {
			case "ts":
				ts = m[i]
			case "zone":
				ev.Zone = m[i]
			case "mob":
				ev.Target = m[i]
			}
		}
		if ts == "" {
			if lm := reLineTS.FindStringSubmatch(line); lm != nil {
				ts = lm[1]
			}
		}
		ev.At, _ = ParseLogTime(ts)
		return ev, true
	}
	return Event{}, false
}

var monthsByName = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// ParseLogTime parses the client's native "Sat Mar 23 20:03:36 2024"
// form. A malformed timestamp yields the current time with ok=false so
// one bad line never aborts a scan.
func ParseLogTime(s string) (time.Time, bool) {
	f := strings.Fields(strings.TrimSpace(s))
	if len(f) != 5 {
		return time.Now(), false
	}
	mon, ok := monthsByName[f[1]]
	if !ok {
		return time.Now(), false
	}
	day, err := strconv.Atoi(f[2])
	if err != nil {
		return time.Now(), false
	}
	hms := strings.Split(f[3], ":")
	if len(hms) != 3 {
		return time.Now(), false
	}
	hh, err1 := strconv.Atoi(hms[0])
	mm, err2 := strconv.Atoi(hms[1])
	ss, err3 := strconv.Atoi(hms[2])
	year, err4 := strconv.Atoi(f[4])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return time.Now(), false
	}
	return time.Date(year, mon, day, hh, mm, ss, 0, time.Local), true
}

// hasConcealmentMarker reports whether a raw line carries any
// invisibility or sneak marker, for the consider lookbehind window.
func hasConcealmentMarker(line string) bool {
	return reAnyInvisOn.MatchString(line) || reAnyInvisOff.MatchString(line) || reSneak.MatchString(line)
}

// hasAttackMarker reports whether a raw line looks like a player attack,
// for the consider lookbehind window.
func hasAttackMarker(line string) bool {
	return reAnyAttack.MatchString(line)
}

// splitLines normalizes CRLF and drops empty lines, preserving order.
func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
