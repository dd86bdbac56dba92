package watcher

import "time"

// localTimeLayout is how detection times render in the local column of
// exports and records.
const localTimeLayout = "2006-01-02 15:04:05"

func formatLocal(t time.Time) string {
	return t.Local().Format(localTimeLayout)
}

// ZoneFact is the latest known zone for one source file (and, projected,
// for one character). Overwritten on every zone-change event or
// successful backscan; no history is kept.
type ZoneFact struct {
	Character     string
	Zone          string
	SourcePath    string
	DetectedUTC   time.Time
	DetectedLocal string
}

// StandingRecord is the durable per-character standing output. Display
// is the standing key plus an optional deduplicated rationale tag.
type StandingRecord struct {
	Character     string
	Standing      string
	Display       string
	Score         int
	Entity        string
	DetectedUTC   time.Time
	DetectedLocal string
}

// CharContext is the per-character transient context the streaming
// tracker maintains while consuming events in file order. It is a
// heuristic aid only, rebuildable by replaying logs.
type CharContext struct {
	InvisOnAt    time.Time
	InvisOffAt   time.Time
	LastCombatAt time.Time
	Attacks      map[string]time.Time
	BeforeInvis  *StandingRecord
	BeforeCombat *StandingRecord
}

// State holds every mutable arena the scan cycle works on. It is built
// explicitly and injected into the runner and tracker rather than kept
// in package globals, so unit tests can run without filesystem state.
type State struct {
	Offsets        map[string]int64
	ZonesBySource  map[string]ZoneFact
	ZonesByChar    map[string]ZoneFact
	Standings      map[string]StandingRecord
	StableByTarget map[string]map[string]StandingRecord
	Contexts       map[string]*CharContext
	BackscanNextAt map[string]time.Time
	Inventory      map[string]Inventory
}

func NewState() *State {
	return &State{
		Offsets:        make(map[string]int64),
		ZonesBySource:  make(map[string]ZoneFact),
		ZonesByChar:    make(map[string]ZoneFact),
		Standings:      make(map[string]StandingRecord),
		StableByTarget: make(map[string]map[string]StandingRecord),
		Contexts:       make(map[string]*CharContext),
		BackscanNextAt: make(map[string]time.Time),
		Inventory:      make(map[string]Inventory),
	}
}

// Context returns the character's transient context, creating it on
// first use.
func (s *State) Context(char string) *CharContext {
	ctx, ok := s.Contexts[char]
	if !ok {
		ctx = &CharContext{Attacks: make(map[string]time.Time)}
		s.Contexts[char] = ctx
	}
	if ctx.Attacks == nil {
		ctx.Attacks = make(map[string]time.Time)
	}
	return ctx
}

// stableFor returns the character's per-target last-stable cache,
// creating it on first use.
func (s *State) stableFor(char string) map[string]StandingRecord {
	m, ok := s.StableByTarget[char]
	if !ok {
		m = make(map[string]StandingRecord)
		s.StableByTarget[char] = m
	}
	return m
}

// Characters returns every character any arena knows about.
func (s *State) Characters() []string {
	seen := make(map[string]struct{})
	for c := range s.ZonesByChar {
		seen[c] = struct{}{}
	}
	for _, zf := range s.ZonesBySource {
		if zf.Character != "" {
			seen[zf.Character] = struct{}{}
		}
	}
	for c := range s.Standings {
		seen[c] = struct{}{}
	}
	for c := range s.Contexts {
		seen[c] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	return out
}

// ApplyZoneFact records a zone fact for a source and projects it onto
// the character when it is at least as new as the current projection.
func (s *State) ApplyZoneFact(zf ZoneFact) {
	s.ZonesBySource[zf.SourcePath] = zf
	cur, ok := s.ZonesByChar[zf.Character]
	if !ok || !zf.DetectedUTC.Before(cur.DetectedUTC) {
		s.ZonesByChar[zf.Character] = zf
	}
}
