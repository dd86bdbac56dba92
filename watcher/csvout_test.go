package watcher

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func exportFixtureState() *State {
	at := time.Date(2024, time.March, 23, 20, 4, 10, 0, time.UTC)
	st := NewState()
	st.ApplyZoneFact(ZoneFact{
		Character: "Zeke", Zone: "The Plane of Sky",
		SourcePath: "/logs/eqlog_Zeke_test.txt", DetectedUTC: at, DetectedLocal: formatLocal(at),
	})
	st.ApplyZoneFact(ZoneFact{
		Character: "Brell", Zone: "Skyshrine",
		SourcePath: "/logs/eqlog_Brell_test.txt", DetectedUTC: at, DetectedLocal: formatLocal(at),
	})
	st.Standings["Zeke"] = StandingRecord{
		Character: "Zeke", Standing: "Ally", Display: "Ally", Score: 1450,
		Entity: "Sontalak", DetectedUTC: at, DetectedLocal: formatLocal(at),
	}
	st.Standings["Brell"] = StandingRecord{
		Character: "Brell", Standing: "Indifferent", Display: "Indifferent (invis?)", Score: 0,
		Entity: "Sontalak", DetectedUTC: at, DetectedLocal: formatLocal(at),
	}
	st.Inventory["Zeke"] = Inventory{
		Character: "Zeke", FilePath: "/eq/Zeke-Inventory.txt", FileModified: at,
		Items: []InventoryItem{{Location: "Charm", Name: "Pearl", ID: "10027", Count: 2, Slots: 0}},
	}
	return st
}

func TestExportCSVWritesSheets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ExportCSV(dir, exportFixtureState(), nil))

	zones := readCSV(t, filepath.Join(dir, "Zone Tracker.csv"))
	require.Len(t, zones, 3)
	assert.Equal(t, "Character", zones[0][0])

	standings := readCSV(t, filepath.Join(dir, "Faction Standing.csv"))
	require.Len(t, standings, 3)
	// Sorted by character: Brell first.
	assert.Equal(t, "Brell", standings[1][0])
	assert.Equal(t, "uncertain", standings[1][6])
	assert.Equal(t, "Zeke", standings[2][0])
	assert.Equal(t, "1450", standings[2][2])
	assert.Equal(t, "", standings[2][6])

	summary := readCSV(t, filepath.Join(dir, "Inventory Summary.csv"))
	require.Len(t, summary, 2)
	assert.Equal(t, "Zeke", summary[1][0])

	items := readCSV(t, filepath.Join(dir, "Inventory Items - Zeke.csv"))
	require.Len(t, items, 2)
	assert.Equal(t, []string{"Charm", "Pearl", "10027", "2", "0"}, items[1])
}

func TestExportCSVFavoritesFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ExportCSV(dir, exportFixtureState(), []string{"zeke"}))

	standings := readCSV(t, filepath.Join(dir, "Faction Standing.csv"))
	require.Len(t, standings, 2)
	assert.Equal(t, "Zeke", standings[1][0])

	_, err := os.Stat(filepath.Join(dir, "Inventory Items - Brell.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestDisplayNote(t *testing.T) {
	assert.Equal(t, "", displayNote("Ally"))
	assert.Equal(t, "fallback", displayNote("Amiable (combat; prev=Amiable)"))
	assert.Equal(t, "uncertain", displayNote("Indifferent (invis?)"))
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "file.txt")
	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o644))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.Contains(entries[0].Name(), ".tmp-"))
}
