package watcher

import "time"

// SourceOffsetRow persists the last-read byte length per source so
// tailing resumes across restarts. Offsets only move forward unless the
// file shrank, in which case the source is treated as new.
type SourceOffsetRow struct {
	Path      string `gorm:"primaryKey;size:1024"`
	Offset    int64
	UpdatedAt time.Time `gorm:"index"`
}

// ZoneFactRow persists the latest zone per source file.
type ZoneFactRow struct {
	Path          string    `gorm:"primaryKey;size:1024"`
	Character     string    `gorm:"index;size:64"`
	Zone          string    `gorm:"size:128"`
	DetectedUTC   time.Time `gorm:"index"`
	DetectedLocal string    `gorm:"size:64"`
}

// StandingRow persists the durable per-character standing record.
type StandingRow struct {
	Character     string `gorm:"primaryKey;size:64"`
	Standing      string `gorm:"size:16"`
	Display       string `gorm:"size:160"`
	Score         int
	Entity        string `gorm:"size:128"`
	DetectedUTC   time.Time `gorm:"index"`
	DetectedLocal string    `gorm:"size:64"`
}

// TargetStandingRow persists the per-target last-stable cache used as
// the first fallback for unstable readings. Target is normalized.
type TargetStandingRow struct {
	Character     string `gorm:"primaryKey;size:64"`
	Target        string `gorm:"primaryKey;size:128"`
	Standing      string `gorm:"size:16"`
	Score         int
	Entity        string `gorm:"size:128"`
	DetectedUTC   time.Time
	DetectedLocal string `gorm:"size:64"`
}

// ContextRow is the best-effort persisted form of a character's
// transient context. Attack timestamps are stored as JSON keyed by
// normalized target name.
type ContextRow struct {
	Character        string `gorm:"primaryKey;size:64"`
	InvisOnAt        *time.Time
	InvisOffAt       *time.Time
	LastCombatAt     *time.Time
	AttacksJSON      string `gorm:"type:text"`
	BeforeInvisJSON  string `gorm:"type:text"`
	BeforeCombatJSON string `gorm:"type:text"`
}

// BackscanScheduleRow remembers when a source's next backscan attempt is
// due, so a failed first attempt does not retry every cycle.
type BackscanScheduleRow struct {
	Path   string    `gorm:"primaryKey;size:1024"`
	NextAt time.Time `gorm:"index"`
}

// PushRecord journals outbound snapshot deliveries. An unsent record is
// superseded when a newer snapshot is journaled; sent records are kept
// for a bounded window as an audit trail.
type PushRecord struct {
	ID          uint      `gorm:"primaryKey"`
	CreatedAt   time.Time `gorm:"index"`
	PayloadJSON string    `gorm:"type:text"`
	Sent        bool      `gorm:"index"`
	SendError   string    `gorm:"type:text"`
	SentAt      *time.Time
}
