package watcher

import (
	"encoding/json"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rotisserie/eris"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// OpenDB opens (or creates) the SQLite state database and migrates the
// schema.
func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, eris.Wrapf(err, "open db %s", path)
	}
	if err := db.AutoMigrate(
		&SourceOffsetRow{},
		&ZoneFactRow{},
		&StandingRow{},
		&TargetStandingRow{},
		&ContextRow{},
		&BackscanScheduleRow{},
		&PushRecord{},
	); err != nil {
		return nil, eris.Wrap(err, "migrate schema")
	}
	return db, nil
}

// LoadState rebuilds the in-memory arenas from the database. A missing
// or empty database yields a fresh state.
func LoadState(db *gorm.DB) (*State, error) {
	st := NewState()

	var offsets []SourceOffsetRow
	if err := db.Find(&offsets).Error; err != nil {
		return nil, eris.Wrap(err, "load offsets")
	}
	for _, row := range offsets {
		st.Offsets[row.Path] = row.Offset
	}

	var zones []ZoneFactRow
	if err := db.Find(&zones).Error; err != nil {
		return nil, eris.Wrap(err, "load zone facts")
	}
	for _, row := range zones {
		st.ApplyZoneFact(ZoneFact{
			Character:     row.Character,
			Zone:          row.Zone,
			SourcePath:    row.Path,
			DetectedUTC:   row.DetectedUTC,
			DetectedLocal: row.DetectedLocal,
		})
	}

	var standings []StandingRow
	if err := db.Find(&standings).Error; err != nil {
		return nil, eris.Wrap(err, "load standings")
	}
	for _, row := range standings {
		st.Standings[row.Character] = StandingRecord{
			Character:     row.Character,
			Standing:      row.Standing,
			Display:       row.Display,
			Score:         row.Score,
			Entity:        row.Entity,
			DetectedUTC:   row.DetectedUTC,
			DetectedLocal: row.DetectedLocal,
		}
	}

	var targets []TargetStandingRow
	if err := db.Find(&targets).Error; err != nil {
		return nil, eris.Wrap(err, "load target standings")
	}
	for _, row := range targets {
		st.stableFor(row.Character)[row.Target] = StandingRecord{
			Character:     row.Character,
			Standing:      row.Standing,
			Score:         row.Score,
			Entity:        row.Entity,
			DetectedUTC:   row.DetectedUTC,
			DetectedLocal: row.DetectedLocal,
			Display:       row.Standing,
		}
	}

	var contexts []ContextRow
	if err := db.Find(&contexts).Error; err != nil {
		return nil, eris.Wrap(err, "load contexts")
	}
	for _, row := range contexts {
		ctx := st.Context(row.Character)
		if row.InvisOnAt != nil {
			ctx.InvisOnAt = *row.InvisOnAt
		}
		if row.InvisOffAt != nil {
			ctx.InvisOffAt = *row.InvisOffAt
		}
		if row.LastCombatAt != nil {
			ctx.LastCombatAt = *row.LastCombatAt
		}
		if row.AttacksJSON != "" {
			_ = json.Unmarshal([]byte(row.AttacksJSON), &ctx.Attacks)
		}
		if row.BeforeInvisJSON != "" {
			_ = json.Unmarshal([]byte(row.BeforeInvisJSON), &ctx.BeforeInvis)
		}
		if row.BeforeCombatJSON != "" {
			_ = json.Unmarshal([]byte(row.BeforeCombatJSON), &ctx.BeforeCombat)
		}
	}

	var schedules []BackscanScheduleRow
	if err := db.Find(&schedules).Error; err != nil {
		return nil, eris.Wrap(err, "load backscan schedule")
	}
	for _, row := range schedules {
		st.BackscanNextAt[row.Path] = row.NextAt
	}

	return st, nil
}

// SaveState flushes the arenas back to the database in one transaction.
// Inventory is not persisted; it is cheap to rebuild from the files
// every cycle.
func SaveState(db *gorm.DB, st *State) error {
	now := time.Now().UTC()
	err := db.Transaction(func(tx *gorm.DB) error {
		for path, off := range st.Offsets {
			row := SourceOffsetRow{Path: path, Offset: off, UpdatedAt: now}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		for path, zf := range st.ZonesBySource {
			row := ZoneFactRow{
				Path:          path,
				Character:     zf.Character,
				Zone:          zf.Zone,
				DetectedUTC:   zf.DetectedUTC,
				DetectedLocal: zf.DetectedLocal,
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		for char, rec := range st.Standings {
			row := StandingRow{
				Character:     char,
				Standing:      rec.Standing,
				Display:       rec.Display,
				Score:         rec.Score,
				Entity:        rec.Entity,
				DetectedUTC:   rec.DetectedUTC,
				DetectedLocal: rec.DetectedLocal,
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		for char, byTarget := range st.StableByTarget {
			for target, rec := range byTarget {
				row := TargetStandingRow{
					Character:     char,
					Target:        target,
					Standing:      rec.Standing,
					Score:         rec.Score,
					Entity:        rec.Entity,
					DetectedUTC:   rec.DetectedUTC,
					DetectedLocal: rec.DetectedLocal,
				}
				if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
					return err
				}
			}
		}
		for char, ctx := range st.Contexts {
			row := ContextRow{Character: char}
			if !ctx.InvisOnAt.IsZero() {
				t := ctx.InvisOnAt
				row.InvisOnAt = &t
			}
			if !ctx.InvisOffAt.IsZero() {
				t := ctx.InvisOffAt
				row.InvisOffAt = &t
			}
			if !ctx.LastCombatAt.IsZero() {
				t := ctx.LastCombatAt
				row.LastCombatAt = &t
			}
			if len(ctx.Attacks) > 0 {
				b, _ := json.Marshal(ctx.Attacks)
				row.AttacksJSON = string(b)
			}
			if ctx.BeforeInvis != nil {
				b, _ := json.Marshal(ctx.BeforeInvis)
				row.BeforeInvisJSON = string(b)
			}
			if ctx.BeforeCombat != nil {
				b, _ := json.Marshal(ctx.BeforeCombat)
				row.BeforeCombatJSON = string(b)
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("1 = 1").Delete(&BackscanScheduleRow{}).Error; err != nil {
			return err
		}
		for path, at := range st.BackscanNextAt {
			row := BackscanScheduleRow{Path: path, NextAt: at}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return eris.Wrap(err, "save state")
	}
	return nil
}
