package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPusher struct {
	payloads [][]byte
	failN    int
}

func (m *mockPusher) Push(payload []byte, timeout time.Duration) error {
	m.payloads = append(m.payloads, payload)
	if m.failN > 0 {
		m.failN--
		return errors.New("mock push failure")
	}
	return nil
}

func newTestRunner(t *testing.T, logsDir string, settings Settings) (*Runner, string) {
	t.Helper()
	tmp := t.TempDir()
	sheets := filepath.Join(tmp, "sheets")
	r, err := NewRunner(RunnerConfig{
		DBPath:    filepath.Join(tmp, "state.db"),
		LogsDir:   logsDir,
		SheetsDir: sheets,
		Settings:  settings,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, sheets
}

func TestRunnerEndToEnd(t *testing.T) {
	logs := t.TempDir()
	logPath := filepath.Join(logs, "eqlog_Zeke_test.txt")
	content := "[Sat Mar 23 20:03:36 2024] You have entered The Plane of Sky.\n" +
		"[Sat Mar 23 20:04:10 2024] Sontalak regards you as an ally, and says nothing.\n"
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))
	// Non-source files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(logs, "notes.txt"), []byte("hi\n"), 0o644))

	r, sheets := newTestRunner(t, logs, Settings{})
	mock := &mockPusher{}
	r.SetPusher(mock)

	require.NoError(t, r.RunOnce())

	st := r.State()
	assert.Equal(t, int64(len(content)), st.Offsets[logPath])
	assert.Equal(t, "The Plane of Sky", st.ZonesByChar["Zeke"].Zone)
	rec := st.Standings["Zeke"]
	assert.Equal(t, "Ally", rec.Standing)
	assert.Equal(t, 1450, rec.Score)

	// Local sheets were exported and a snapshot was pushed.
	_, err := os.Stat(filepath.Join(sheets, "Faction Standing.csv"))
	assert.NoError(t, err)
	require.Len(t, mock.payloads, 1)
	assert.Contains(t, string(mock.payloads[0]), "The Plane of Sky")
}

func TestRunnerDoesNotReprocess(t *testing.T) {
	logs := t.TempDir()
	logPath := filepath.Join(logs, "eqlog_Zeke_test.txt")
	content := "[Sat Mar 23 20:00:00 2024] You have entered Skyshrine.\n"
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))

	r, _ := newTestRunner(t, logs, Settings{})
	require.NoError(t, r.RunOnce())
	first := r.State().ZonesByChar["Zeke"]

	// Second cycle with no appended bytes changes nothing.
	require.NoError(t, r.RunOnce())
	assert.Equal(t, int64(len(content)), r.State().Offsets[logPath])
	assert.Equal(t, first, r.State().ZonesByChar["Zeke"])

	// Appended lines are picked up incrementally.
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("[Sat Mar 23 21:00:00 2024] You have entered Western Wastes.\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, r.RunOnce())
	assert.Equal(t, "Western Wastes", r.State().ZonesByChar["Zeke"].Zone)
}

func TestRunnerBackscanSeedsZone(t *testing.T) {
	logs := t.TempDir()
	logPath := filepath.Join(logs, "eqlog_Zeke_test.txt")

	// The zone line sits outside the first-sight window, so only the
	// backscan can recover it.
	filler := make([]byte, 0, firstSightWindowBytes+4096)
	filler = append(filler, []byte("[Sat Mar 23 19:00:00 2024] You have entered Skyshrine.\n")...)
	for len(filler) < firstSightWindowBytes+4096 {
		filler = append(filler, []byte("[Sat Mar 23 19:30:00 2024] You say, 'filler chatter here'\n")...)
	}
	require.NoError(t, os.WriteFile(logPath, []byte(filler), 0o644))

	r, _ := newTestRunner(t, logs, Settings{})
	require.NoError(t, r.RunOnce())

	assert.Equal(t, "Skyshrine", r.State().ZonesByChar["Zeke"].Zone)
	// A successful backscan clears the retry schedule.
	_, scheduled := r.State().BackscanNextAt[logPath]
	assert.False(t, scheduled)
}

func TestRunnerKeepsInvisTagAcrossCycles(t *testing.T) {
	logs := t.TempDir()
	logPath := filepath.Join(logs, "eqlog_Zeke_test.txt")
	content := "[Sat Mar 23 20:00:00 2024] You have entered Skyshrine.\n" +
		"[Sat Mar 23 20:01:00 2024] You vanish.\n" +
		"[Sat Mar 23 20:02:00 2024] Sontalak regards you indifferently -- what would you like your tombstone to say?\n"
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))

	r, _ := newTestRunner(t, logs, Settings{})
	require.NoError(t, r.RunOnce())

	// The invisible consider is kept as an uncertain baseline; the
	// recomputation pass must not flatten the tag away.
	rec := r.State().Standings["Zeke"]
	assert.Equal(t, "Indifferent", rec.Standing)
	assert.Equal(t, "Indifferent (invis?)", rec.Display)

	// A second cycle over the same bytes neither drops nor stacks it.
	require.NoError(t, r.RunOnce())
	rec = r.State().Standings["Zeke"]
	assert.Equal(t, "Indifferent (invis?)", rec.Display)
	assert.Equal(t, 1, strings.Count(rec.Display, "(invis"))
}

func TestRunnerStatePersistsAcrossRestarts(t *testing.T) {
	logs := t.TempDir()
	logPath := filepath.Join(logs, "eqlog_Zeke_test.txt")
	content := "[Sat Mar 23 20:00:00 2024] You have entered Skyshrine.\n"
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))

	tmp := t.TempDir()
	dbPath := filepath.Join(tmp, "state.db")

	r1, err := NewRunner(RunnerConfig{DBPath: dbPath, LogsDir: logs}, nil)
	require.NoError(t, err)
	require.NoError(t, r1.RunOnce())
	require.NoError(t, r1.Close())

	r2, err := NewRunner(RunnerConfig{DBPath: dbPath, LogsDir: logs}, nil)
	require.NoError(t, err)
	defer r2.Close()
	assert.Equal(t, int64(len(content)), r2.State().Offsets[logPath])
	assert.Equal(t, "Skyshrine", r2.State().ZonesByChar["Zeke"].Zone)
}

func TestRunnerInventoryScan(t *testing.T) {
	logs := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(logs, "eqlog_Zeke_test.txt"),
		[]byte("[Sat Mar 23 20:00:00 2024] You have entered Skyshrine.\n"), 0o644))

	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "Zeke-Inventory.txt"), []byte(inventoryFixture), 0o644))

	tmp := t.TempDir()
	r, err := NewRunner(RunnerConfig{
		DBPath:  filepath.Join(tmp, "state.db"),
		LogsDir: logs,
		BaseDir: base,
	}, nil)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RunOnce())
	inv, ok := r.State().Inventory["Zeke"]
	require.True(t, ok)
	assert.Len(t, inv.Items, 5)
}

func TestRunnerPushJournal(t *testing.T) {
	logs := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(logs, "eqlog_Zeke_test.txt"),
		[]byte("[Sat Mar 23 20:00:00 2024] You have entered Skyshrine.\n"), 0o644))

	r, _ := newTestRunner(t, logs, Settings{})
	mock := &mockPusher{failN: 1}
	r.SetPusher(mock)

	// First cycle: the push fails and stays journaled as unsent.
	require.NoError(t, r.RunOnce())
	var unsent []PushRecord
	require.NoError(t, r.db.Where("sent = ?", false).Find(&unsent).Error)
	require.Len(t, unsent, 1)
	assert.NotEmpty(t, unsent[0].SendError)

	// Next cycle supersedes the stale snapshot and delivers the new one.
	require.NoError(t, r.RunOnce())
	require.NoError(t, r.db.Where("sent = ?", false).Find(&unsent).Error)
	assert.Empty(t, unsent)
	var sent []PushRecord
	require.NoError(t, r.db.Where("sent = ?", true).Find(&sent).Error)
	assert.Len(t, sent, 1)
	assert.Len(t, mock.payloads, 2)
}

func TestRunnerSourceErrorIsIsolated(t *testing.T) {
	logs := t.TempDir()
	good := filepath.Join(logs, "eqlog_Zeke_test.txt")
	require.NoError(t, os.WriteFile(good, []byte("[Sat Mar 23 20:00:00 2024] You have entered Skyshrine.\n"), 0o644))
	// A dangling symlink sorts before the good source and fails its
	// stat; the cycle must continue past it.
	broken := filepath.Join(logs, "eqlog_Broken_test.txt")
	require.NoError(t, os.Symlink(filepath.Join(logs, "missing"), broken))

	r, _ := newTestRunner(t, logs, Settings{})
	require.NoError(t, r.RunOnce())
	assert.Equal(t, "Skyshrine", r.State().ZonesByChar["Zeke"].Zone)
}
