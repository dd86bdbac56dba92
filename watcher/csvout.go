package watcher

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ExportCSV renders the current state into the local spreadsheet files:
// a zone tracker, a faction standing sheet, an inventory summary, and
// one item-detail sheet per character. Favorites, when configured,
// restrict every sheet to the listed characters. Each file is written
// atomically.
func ExportCSV(dir string, st *State, favorites []string) error {
	fav := favoriteFilter(favorites)

	zoneRows := [][]string{}
	for _, path := range sortedKeys(st.ZonesBySource) {
		zf := st.ZonesBySource[path]
		if !fav(zf.Character) {
			continue
		}
		zoneRows = append(zoneRows, []string{
			zf.Character, zf.Zone, zf.DetectedUTC.Format(time.RFC3339), zf.DetectedLocal, zf.SourcePath,
		})
	}
	if err := writeCSV(
		filepath.Join(dir, "Zone Tracker.csv"),
		[]string{"Character", "Last Zone", "Zone Time (UTC)", "Zone Time (Local)", "Source Log File"},
		zoneRows,
	); err != nil {
		return err
	}

	standingRows := [][]string{}
	for _, char := range sortedKeys(st.Standings) {
		rec := st.Standings[char]
		if !fav(char) {
			continue
		}
		standingRows = append(standingRows, []string{
			char, rec.Standing, strconv.Itoa(rec.Score), rec.Entity,
			rec.DetectedUTC.Format(time.RFC3339), rec.DetectedLocal, displayNote(rec.Display),
		})
	}
	if err := writeCSV(
		filepath.Join(dir, "Faction Standing.csv"),
		[]string{"Character", "Standing", "Score", "Entity", "Consider Time (UTC)", "Consider Time (Local)", "Notes"},
		standingRows,
	); err != nil {
		return err
	}

	invRows := [][]string{}
	for _, char := range sortedKeys(st.Inventory) {
		inv := st.Inventory[char]
		if !fav(char) {
			continue
		}
		kit := SummarizeRaidKit(inv.Items)
		invRows = append(invRows, []string{
			char, inv.FilePath, inv.FileModified.UTC().Format(time.RFC3339),
			kit.VialVeliumVapors, strconv.Itoa(kit.VeliumVialCount),
			kit.LeatherfootSkullcap, kit.ShinyBrassIdol,
			strconv.Itoa(kit.RingOfShadowsCount), kit.ReaperOfTheDead,
			strconv.Itoa(kit.PearlCount), strconv.Itoa(kit.PeridotCount),
			kit.LarrikansMask,
			strconv.Itoa(kit.MBClassFive), strconv.Itoa(kit.MBClassFour),
			strconv.Itoa(kit.MBClassThree), strconv.Itoa(kit.MBClassTwo),
			strconv.Itoa(kit.MBClassOne),
		})
	}
	if err := writeCSV(
		filepath.Join(dir, "Inventory Summary.csv"),
		[]string{
			"Character", "Inventory File", "Modified (UTC)",
			"Vial of Velium Vapors", "Velium Vial Count",
			"Leatherfoot Raider Skullcap", "Shiny Brass Idol",
			"Ring of Shadows Count", "Reaper of the Dead",
			"Pearl Count", "Peridot Count", "Larrikan's Mask",
			"MB Class Five", "MB Class Four", "MB Class Three", "MB Class Two", "MB Class One",
		},
		invRows,
	); err != nil {
		return err
	}

	for _, char := range sortedKeys(st.Inventory) {
		inv := st.Inventory[char]
		if !fav(char) {
			continue
		}
		itemRows := make([][]string, 0, len(inv.Items))
		for _, it := range inv.Items {
			itemRows = append(itemRows, []string{
				it.Location, it.Name, it.ID, strconv.Itoa(it.Count), strconv.Itoa(it.Slots),
			})
		}
		name := fmt.Sprintf("Inventory Items - %s.csv", char)
		if err := writeCSV(
			filepath.Join(dir, name),
			[]string{"Location", "Name", "ID", "Count", "Slots"},
			itemRows,
		); err != nil {
			return err
		}
	}
	return nil
}

// displayNote compresses a display label into the Notes column: a tag
// with a question mark means the raw reading was kept but is uncertain,
// any other tag means a fallback value was applied.
func displayNote(display string) string {
	switch {
	case strings.Contains(display, "?"):
		return "uncertain"
	case strings.Contains(display, "("):
		return "fallback"
	default:
		return ""
	}
}

func favoriteFilter(favorites []string) func(string) bool {
	if len(favorites) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]struct{}, len(favorites))
	for _, f := range favorites {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			set[f] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(string) bool { return true }
	}
	return func(char string) bool {
		_, ok := set[strings.ToLower(strings.TrimSpace(char))]
		return ok
	}
}

func writeCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return eris.Wrapf(err, "write csv header %s", path)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "write csv row %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "flush csv %s", path)
	}
	return WriteFileAtomic(path, buf.Bytes(), 0o644)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
