package watcher

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunnerConfig wires one scan cycle together.
type RunnerConfig struct {
	DBPath string
	// LogsDir holds the eqlog_*.txt sources.
	LogsDir string
	// BaseDir holds the *-Inventory.txt dumps; empty disables inventory.
	BaseDir string
	// SheetsDir receives the local CSV exports.
	SheetsDir string
	// LocalCSV disables the CSV export when explicitly false.
	LocalCSV *bool
	// WebhookURL enables remote snapshot pushes when set.
	WebhookURL    string
	WebhookSecret string
	PushTimeout   time.Duration

	Settings Settings
}

// Runner owns the durable state and executes scan cycles. One full
// cycle processes every source and every character sequentially; cycles
// never overlap.
type Runner struct {
	cfg    RunnerConfig
	db     *gorm.DB
	state  *State
	pusher Pusher
	log    *zap.SugaredLogger
}

type runStats struct {
	SourcesScanned int
	SourcesErrored int
	EventsApplied  int
	Backscans      int
	Inventories    int
}

var reInventoryFile = regexp.MustCompile(`(?i)-Inventory\.txt$`)

func NewRunner(cfg RunnerConfig, log *zap.SugaredLogger) (*Runner, error) {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, eris.New("DBPath is required")
	}
	if strings.TrimSpace(cfg.LogsDir) == "" {
		return nil, eris.New("LogsDir is required")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 15 * time.Second
	}

	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	st, err := LoadState(db)
	if err != nil {
		_ = closeDB(db)
		return nil, err
	}

	r := &Runner{cfg: cfg, db: db, state: st, log: log}
	if strings.TrimSpace(cfg.WebhookURL) != "" {
		r.pusher = NewWebhookClient(cfg.WebhookURL)
	}
	return r, nil
}

// SetPusher replaces the outbound client. Used by tests.
func (r *Runner) SetPusher(p Pusher) { r.pusher = p }

// State exposes the live arenas for inspection.
func (r *Runner) State() *State { return r.state }

func (r *Runner) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	err := closeDB(r.db)
	r.db = nil
	return err
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RunOnce executes one full scan cycle: tail every source, run the
// recomputation pass, scan inventories, persist state, export CSVs, and
// push a snapshot. A failure on one source or one output stage is
// logged and does not abort the rest of the cycle.
func (r *Runner) RunOnce() error {
	start := time.Now()
	stats := &runStats{}

	// One entity-set snapshot per pass.
	entities := BuildEntitySet(r.cfg.Settings.EntityOptions())

	sources, err := r.listSources()
	if err != nil {
		return err
	}
	for _, src := range sources {
		if err := r.scanSource(src, entities, stats); err != nil {
			stats.SourcesErrored++
			r.log.Warnw("source scan failed", "path", src, "err", err)
			continue
		}
		stats.SourcesScanned++
	}

	r.recomputeAll(entities)

	if strings.TrimSpace(r.cfg.BaseDir) != "" {
		r.scanInventory(stats)
	}

	if err := SaveState(r.db, r.state); err != nil {
		return err
	}

	if r.cfg.LocalCSV == nil || *r.cfg.LocalCSV {
		if dir := strings.TrimSpace(r.cfg.SheetsDir); dir != "" {
			if err := ExportCSV(dir, r.state, r.cfg.Settings.Favorites); err != nil {
				r.log.Warnw("csv export failed", "dir", dir, "err", err)
			}
		}
	}

	if r.pusher != nil {
		if err := r.pushSnapshot(); err != nil {
			r.log.Warnw("snapshot push failed", "err", err)
		}
	}

	r.log.Debugw("cycle done",
		"entities", entities.Len(),
		"sources", stats.SourcesScanned,
		"errored", stats.SourcesErrored,
		"events", stats.EventsApplied,
		"backscans", stats.Backscans,
		"inventories", stats.Inventories,
		"elapsed", time.Since(start))
	return nil
}

func (r *Runner) listSources() ([]string, error) {
	entries, err := os.ReadDir(r.cfg.LogsDir)
	if err != nil {
		return nil, eris.Wrapf(err, "read logs dir %s", r.cfg.LogsDir)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsLogFileName(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(r.cfg.LogsDir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

func (r *Runner) scanSource(path string, entities *EntitySet, stats *runStats) error {
	char := CharacterFromPath(path)
	offset, hadOffset := r.state.Offsets[path]

	text, newOffset, err := ReadTail(path, offset, firstSightWindowBytes)
	if err != nil {
		return err
	}
	r.state.Offsets[path] = newOffset

	lines := splitLines(text)
	events := make([]Event, 0, len(lines))
	for i, line := range lines {
		ev, ok := Classify(line)
		if !ok {
			continue
		}
		ev.Index = i
		events = append(events, ev)
	}
	stats.EventsApplied += len(events)

	tracker := NewTracker(entities, r.cfg.Settings, r.state, r.log)
	sawZone := tracker.Apply(char, path, events, lines)

	// No zone in the fresh tail: backscan on first sight, then per the
	// retry schedule until a zone fact exists for this source.
	haveZone := r.state.ZonesBySource[path].Zone != ""
	if !sawZone && (!hadOffset || !haveZone) {
		now := time.Now()
		next, scheduled := r.state.BackscanNextAt[path]
		if !hadOffset || !scheduled || !now.Before(next) {
			stats.Backscans++
			retry := r.cfg.Settings.BackscanRetry()
			if retry > 0 {
				r.state.BackscanNextAt[path] = now.Add(retry)
			} else {
				r.state.BackscanNextAt[path] = now.Add(24 * time.Hour)
			}
			ev, err := BackscanZone(path, r.cfg.Settings.BackscanBudget())
			if err != nil {
				r.log.Warnw("backscan failed", "path", path, "err", err)
			} else if ev != nil {
				r.state.ApplyZoneFact(ZoneFact{
					Character:     char,
					Zone:          ev.Zone,
					SourcePath:    path,
					DetectedUTC:   ev.At.UTC(),
					DetectedLocal: formatLocal(ev.At),
				})
				sawZone = true
				delete(r.state.BackscanNextAt, path)
				r.log.Debugw("backscan seeded zone", "char", char, "zone", ev.Zone)
			}
		}
	}

	// Keep a placeholder so the source still shows up in exports.
	if !sawZone {
		if _, ok := r.state.ZonesBySource[path]; !ok {
			r.state.ZonesBySource[path] = ZoneFact{Character: char, SourcePath: path}
		}
	}
	return nil
}

// recomputeAll runs the bounded tail recomputation pass for every known
// character and reconciles each candidate into the durable record.
func (r *Runner) recomputeAll(entities *EntitySet) {
	for _, char := range r.state.Characters() {
		src := r.representativeSource(char)
		if src == "" {
			continue
		}
		cand, err := RecomputeStanding(src, char, entities)
		if err != nil {
			r.log.Warnw("recompute failed", "char", char, "path", src, "err", err)
			continue
		}
		var existing *StandingRecord
		if rec, ok := r.state.Standings[char]; ok {
			existing = &rec
		}
		merged := Reconcile(existing, cand)
		if merged != nil && merged == cand {
			r.state.Standings[char] = *cand
			r.log.Debugw("recompute adopted candidate", "char", char, "standing", cand.Standing)
		}
	}
}

// representativeSource picks the source most recently associated with a
// character, falling back to any matching log file name.
func (r *Runner) representativeSource(char string) string {
	best := ""
	var bestAt time.Time
	for path, zf := range r.state.ZonesBySource {
		if zf.Character != char {
			continue
		}
		if best == "" || zf.DetectedUTC.After(bestAt) {
			best = path
			bestAt = zf.DetectedUTC
		}
	}
	if best != "" {
		return best
	}
	matches, err := filepath.Glob(filepath.Join(r.cfg.LogsDir, "eqlog_"+char+"_*.txt"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[0]
}

func (r *Runner) scanInventory(stats *runStats) {
	entries, err := os.ReadDir(r.cfg.BaseDir)
	if err != nil {
		r.log.Warnw("read inventory dir failed", "dir", r.cfg.BaseDir, "err", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !reInventoryFile.MatchString(e.Name()) {
			continue
		}
		char := strings.TrimSpace(reInventoryFile.ReplaceAllString(e.Name(), ""))
		full := filepath.Join(r.cfg.BaseDir, e.Name())
		inv, err := ParseInventoryFile(full)
		if err != nil {
			r.log.Warnw("inventory parse failed", "path", full, "err", err)
			continue
		}
		inv.Character = char
		r.state.Inventory[char] = *inv
		stats.Inventories++
	}
}

// pushSnapshot journals the current snapshot and attempts delivery.
// Older unsent journal entries are superseded by the newest snapshot
// rather than replayed, since every payload is a full upsert; sent rows
// older than a week are pruned.
func (r *Runner) pushSnapshot() error {
	payload, err := BuildSnapshotPayload(r.state, r.cfg.WebhookSecret)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	if err := r.db.Where("sent = ?", false).Delete(&PushRecord{}).Error; err != nil {
		return eris.Wrap(err, "supersede pending pushes")
	}
	rec := PushRecord{CreatedAt: now, PayloadJSON: string(payload)}
	if err := r.db.Create(&rec).Error; err != nil {
		return eris.Wrap(err, "journal push")
	}

	if err := r.pusher.Push(payload, r.cfg.PushTimeout); err != nil {
		_ = r.db.Model(&PushRecord{}).
			Where("id = ?", rec.ID).
			Updates(map[string]any{"send_error": err.Error()}).Error
		return err
	}
	sentAt := time.Now().UTC()
	if err := r.db.Model(&PushRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{"sent": true, "send_error": "", "sent_at": &sentAt}).Error; err != nil {
		return eris.Wrap(err, "mark push sent")
	}

	cutoff := now.Add(-7 * 24 * time.Hour)
	if err := r.db.Where("sent = ? AND created_at < ?", true, cutoff).Delete(&PushRecord{}).Error; err != nil {
		return eris.Wrap(err, "prune push journal")
	}
	return nil
}
