package watcher

// recomputeWindowBytes bounds the tail each recomputation pass reads.
const recomputeWindowBytes = 200 * 1024

// RecomputeStanding re-derives a candidate standing for one character by
// scanning a bounded tail of its source from the end toward the start,
// independent of the streaming tracker's running state.
//
// A single invisibility flag is maintained in reverse: an invisibility-
// off line means everything above it happened while invisible, an
// invisibility-on line clears the flag, and the transitional "starting
// to appear" message toggles nothing. Considers seen under the flag are
// skipped. The first surviving consider that matches the entity set
// becomes the candidate; a top-tier match ends the scan, since nothing
// earlier can beat it.
func RecomputeStanding(path, char string, entities *EntitySet) (*StandingRecord, error) {
	text, err := readWindow(path, recomputeWindowBytes)
	if err != nil {
		return nil, err
	}
	lines := splitLines(text)

	var best *StandingRecord
	invisible := false
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if reReappearing.MatchString(line) {
			continue
		}
		if reAnyInvisOff.MatchString(line) {
			invisible = true
			continue
		}
		if reAnyInvisOn.MatchString(line) {
			invisible = false
			continue
		}

		ev, ok := Classify(line)
		if !ok || ev.Kind != EventConsider {
			continue
		}
		if invisible {
			continue
		}
		if !entities.Match(NormalizeName(ev.Target)) {
			continue
		}

		standing, score := MatchStanding(line)
		cand := StandingRecord{
			Character:     char,
			Standing:      standing,
			Display:       standing,
			Score:         score,
			Entity:        ev.Target,
			DetectedUTC:   ev.At.UTC(),
			DetectedLocal: formatLocal(ev.At),
		}
		// Scanning backward, the first candidate found is the newest;
		// an earlier one only replaces it with a strictly better score.
		if best == nil || cand.Score > best.Score {
			best = &cand
		}
		if score == MaxStandingScore {
			break
		}
	}
	return best, nil
}

// Reconcile merges a recomputation candidate into the durable record.
// The candidate is adopted only when there is no existing record, its
// score is strictly higher, or the score ties and the candidate is at
// least as new. A character never downgrades to a lower score here: the
// tail pass can land on a transient unfavorable reading the streaming
// tracker already biased away from.
//
// The tail pass never reconstructs rationale tags, so a tie adoption of
// the same standing keeps the existing record's annotated display
// instead of flattening it back to the bare standing.
func Reconcile(existing, candidate *StandingRecord) *StandingRecord {
	if candidate == nil {
		return existing
	}
	if existing == nil {
		return candidate
	}
	if candidate.Score > existing.Score {
		return candidate
	}
	if candidate.Score == existing.Score && !candidate.DetectedUTC.Before(existing.DetectedUTC) {
		if candidate.Standing == existing.Standing && candidate.Display == candidate.Standing {
			candidate.Display = existing.Display
		}
		return candidate
	}
	return existing
}
