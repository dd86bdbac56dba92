package watcher

import (
	"strings"

	"go.uber.org/zap"
)

// Tracker consumes classified events for one source in file order and
// maintains the per-character standing and transient context. Order
// matters: the invisibility and combat bias checks compare each
// consider against what came before it in the same file.
type Tracker struct {
	Entities *EntitySet
	Settings Settings
	State    *State

	log *zap.SugaredLogger
}

func NewTracker(entities *EntitySet, settings Settings, st *State, log *zap.SugaredLogger) *Tracker {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Tracker{Entities: entities, Settings: settings, State: st, log: log}
}

// Apply feeds one source's events, with the raw line batch for the
// consider lookbehind window, through the state machine. It returns
// true when at least one zone-change event was seen.
func (tr *Tracker) Apply(char, sourcePath string, events []Event, lines []string) bool {
	ctx := tr.State.Context(char)
	sawZone := false

	for _, ev := range events {
		switch ev.Kind {
		case EventZoneChange:
			tr.State.ApplyZoneFact(ZoneFact{
				Character:     char,
				Zone:          ev.Zone,
				SourcePath:    sourcePath,
				DetectedUTC:   ev.At.UTC(),
				DetectedLocal: formatLocal(ev.At),
			})
			sawZone = true

		case EventInvisOn:
			if rec, ok := tr.State.Standings[char]; ok {
				snap := rec
				ctx.BeforeInvis = &snap
			}
			ctx.InvisOnAt = ev.At

		case EventInvisOff:
			// The pre-invis snapshot is kept until the next invis so a
			// late consider can still reference it.
			ctx.InvisOffAt = ev.At

		case EventMeleeHit, EventMeleeMiss:
			if rec, ok := tr.State.Standings[char]; ok {
				snap := rec
				ctx.BeforeCombat = &snap
			}
			ctx.LastCombatAt = ev.At
			ctx.Attacks[NormalizeName(ev.Target)] = ev.At

		case EventAutoAttack:
			if rec, ok := tr.State.Standings[char]; ok {
				snap := rec
				ctx.BeforeCombat = &snap
			}
			ctx.LastCombatAt = ev.At

		case EventMobHitsYou, EventMobTriesHitYou, EventNonMelee,
			EventThorns, EventSpellYourHits, EventSpellYouHit, EventDotTick:
			if rec, ok := tr.State.Standings[char]; ok {
				snap := rec
				ctx.BeforeCombat = &snap
			}
			ctx.LastCombatAt = ev.At
			ctx.Attacks[NormalizeName(ev.Target)] = ev.At

		case EventConsider:
			tr.applyConsider(char, ctx, ev, lines)
		}
	}
	return sawZone
}

func (tr *Tracker) applyConsider(char string, ctx *CharContext, ev Event, lines []string) {
	norm := NormalizeName(ev.Target)
	if !tr.Entities.Match(norm) {
		return
	}

	standing, score := MatchStanding(ev.Line)

	invisActive := !ctx.InvisOnAt.IsZero() &&
		(ctx.InvisOffAt.IsZero() || ctx.InvisOnAt.After(ctx.InvisOffAt)) &&
		ev.At.Sub(ctx.InvisOnAt) <= tr.Settings.InvisMax()

	attackedRecently := false
	if at, ok := ctx.Attacks[norm]; ok && !at.IsZero() {
		attackedRecently = ev.At.Sub(at) <= tr.Settings.CombatRecent()
	}

	// Secondary signal: a small raw-line window ending at the consider
	// line itself. ORed with the time-based checks.
	window := lookbehindWindow(lines, ev.Index, tr.Settings.Lookbehind())
	windowInvis, windowAttack := false, false
	for _, l := range window {
		if hasConcealmentMarker(l) {
			windowInvis = true
		}
		if hasAttackMarker(l) {
			windowAttack = true
		}
	}
	unstableInvis := invisActive || windowInvis
	unstableCombat := attackedRecently || windowAttack

	// Known-biased readings are overridden outright: Indifferent while
	// invisible, or a hostile reading right after attacking the target.
	preferFallbackForInvis := invisActive && standing == DefaultStanding
	preferFallbackForCombat := attackedRecently && hostileStanding(standing)

	lastMob, haveLastMob := tr.State.stableFor(char)[norm]
	lastChar, haveLastChar := tr.State.Standings[char]

	switch {
	case preferFallbackForCombat || unstableCombat:
		tag := biasTag("combat", ctx.BeforeCombat)
		switch {
		case haveLastMob:
			tr.State.Standings[char] = StandingRecord{
				Character:     char,
				Standing:      lastMob.Standing,
				Display:       appendNote(lastMob.Standing, tag),
				Score:         lastMob.Score,
				Entity:        ev.Target,
				DetectedUTC:   ev.At.UTC(),
				DetectedLocal: formatLocal(ev.At),
			}
			tr.log.Debugw("combat-biased consider, target fallback", "char", char, "target", ev.Target)
		case haveLastChar:
			rec := lastChar
			rec.Display = appendNote(displayOr(rec), tag)
			if rec.Entity == "" {
				rec.Entity = ev.Target
			}
			rec.DetectedUTC = ev.At.UTC()
			rec.DetectedLocal = formatLocal(ev.At)
			tr.State.Standings[char] = rec
			tr.log.Debugw("combat-biased consider, character fallback", "char", char, "target", ev.Target)
		default:
			tag = biasTag("combat?", ctx.BeforeCombat)
			tr.State.Standings[char] = StandingRecord{
				Character:     char,
				Standing:      standing,
				Display:       appendNote(standing, tag),
				Score:         score,
				Entity:        ev.Target,
				DetectedUTC:   ev.At.UTC(),
				DetectedLocal: formatLocal(ev.At),
			}
			tr.log.Debugw("combat-biased consider, accepted as baseline", "char", char, "target", ev.Target)
		}

	case preferFallbackForInvis || unstableInvis:
		tag := biasTag("invis", ctx.BeforeInvis)
		switch {
		case haveLastMob:
			tr.State.Standings[char] = StandingRecord{
				Character:     char,
				Standing:      lastMob.Standing,
				Display:       appendNote(lastMob.Standing, tag),
				Score:         lastMob.Score,
				Entity:        ev.Target,
				DetectedUTC:   ev.At.UTC(),
				DetectedLocal: formatLocal(ev.At),
			}
			tr.log.Debugw("invis-biased consider, target fallback", "char", char, "target", ev.Target)
		case haveLastChar:
			rec := lastChar
			rec.Display = appendNote(displayOr(rec), tag)
			if rec.Entity == "" {
				rec.Entity = ev.Target
			}
			rec.DetectedUTC = ev.At.UTC()
			rec.DetectedLocal = formatLocal(ev.At)
			tr.State.Standings[char] = rec
			tr.log.Debugw("invis-biased consider, character fallback", "char", char, "target", ev.Target)
		default:
			tag = biasTag("invis?", ctx.BeforeInvis)
			tr.State.Standings[char] = StandingRecord{
				Character:     char,
				Standing:      standing,
				Display:       appendNote(standing, tag),
				Score:         score,
				Entity:        ev.Target,
				DetectedUTC:   ev.At.UTC(),
				DetectedLocal: formatLocal(ev.At),
			}
			tr.log.Debugw("invis-biased consider, accepted as baseline", "char", char, "target", ev.Target)
		}

	default:
		rec := StandingRecord{
			Character:     char,
			Standing:      standing,
			Display:       standing,
			Score:         score,
			Entity:        ev.Target,
			DetectedUTC:   ev.At.UTC(),
			DetectedLocal: formatLocal(ev.At),
		}
		tr.State.Standings[char] = rec
		tr.State.stableFor(char)[norm] = rec
	}
}

// lookbehindWindow returns lines [idx-n, idx] clamped to the batch.
func lookbehindWindow(lines []string, idx, n int) []string {
	if idx < 0 || idx >= len(lines) {
		return nil
	}
	start := idx - n
	if start < 0 {
		start = 0
	}
	return lines[start : idx+1]
}

// biasTag renders a rationale tag, referencing the pre-event snapshot
// when one exists: "(invis; prev=Ally)" or just "(invis)".
func biasTag(kind string, prev *StandingRecord) string {
	if prev != nil && prev.Standing != "" {
		return " (" + kind + "; prev=" + prev.Standing + ")"
	}
	return " (" + kind + ")"
}

// appendNote appends a rationale tag unless the display already carries
// a tag of the same kind, so re-ingesting the same lines never stacks
// duplicates.
func appendNote(display, note string) string {
	kind := strings.TrimPrefix(strings.TrimSpace(note), "(")
	if i := strings.IndexAny(kind, "?;)"); i >= 0 {
		kind = kind[:i]
	}
	if strings.Contains(display, "("+kind) {
		return display
	}
	return display + note
}

func displayOr(rec StandingRecord) string {
	if rec.Display != "" {
		return rec.Display
	}
	return rec.Standing
}
