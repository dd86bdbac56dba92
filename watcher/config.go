package watcher

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Settings carries the user-tunable inference knobs. Zero values fall
// back to the documented defaults through the accessor methods, so a
// partially filled config file behaves sensibly.
type Settings struct {
	AcceptAllConsiders   bool     `yaml:"accept_all_considers"`
	StrictUnstable       bool     `yaml:"strict_unstable"`
	InvisMaxMinutes      int      `yaml:"invis_max_minutes"`
	CombatRecentMinutes  int      `yaml:"combat_recent_minutes"`
	BackscanMaxMB        int      `yaml:"backscan_max_mb"`
	BackscanRetryMinutes *int     `yaml:"backscan_retry_minutes"`
	EntityFile           string   `yaml:"entity_file"`
	EntityList           []string `yaml:"entity_list"`
	EntityAdditions      []string `yaml:"entity_additions"`
	EntityRemovals       []string `yaml:"entity_removals"`
	Favorites            []string `yaml:"favorites"`
}

// InvisMax is how long a self-invisibility can be presumed active.
func (s Settings) InvisMax() time.Duration {
	m := s.InvisMaxMinutes
	if m <= 0 {
		m = 20
	}
	return time.Duration(m) * time.Minute
}

// CombatRecent is how long combat with a target keeps its considers
// suspect.
func (s Settings) CombatRecent() time.Duration {
	m := s.CombatRecentMinutes
	if m <= 0 {
		m = 5
	}
	return time.Duration(m) * time.Minute
}

// BackscanBudget returns the backscan byte budget: 0 means whole file,
// anything else is clamped to 5-20 MB.
func (s Settings) BackscanBudget() int64 {
	if s.BackscanMaxMB <= 0 {
		return 0
	}
	mb := s.BackscanMaxMB
	if mb < 5 {
		mb = 5
	}
	if mb > 20 {
		mb = 20
	}
	return int64(mb) * 1024 * 1024
}

// BackscanRetry is how long after a failed backscan the next attempt is
// scheduled; 0 disables periodic retry after the first attempt.
func (s Settings) BackscanRetry() time.Duration {
	if s.BackscanRetryMinutes == nil {
		return 10 * time.Minute
	}
	m := *s.BackscanRetryMinutes
	if m <= 0 {
		return 0
	}
	return time.Duration(m) * time.Minute
}

// Lookbehind is the consider line-window size for the secondary
// heuristic: 3 lines normally, 10 in strict mode.
func (s Settings) Lookbehind() int {
	if s.StrictUnstable {
		return 10
	}
	return 3
}

// EntityOptions assembles the entity-set inputs from the settings.
func (s Settings) EntityOptions() EntitySetOptions {
	return EntitySetOptions{
		OverrideFile: s.EntityFile,
		Explicit:     s.EntityList,
		Additions:    s.EntityAdditions,
		Removals:     s.EntityRemovals,
		AcceptAll:    s.AcceptAllConsiders,
	}
}

// FileConfig is the YAML configuration file. CLI flags override
// individual fields after loading; see cmd/eqwatcher.
type FileConfig struct {
	DB        string `yaml:"db"`
	LogsDir   string `yaml:"logs_dir"`
	BaseDir   string `yaml:"base_dir"`
	SheetsDir string `yaml:"sheets_dir"`

	ScanIntervalSec int  `yaml:"scan_interval_sec"`
	Debug           bool `yaml:"debug"`

	LocalCSV      *bool  `yaml:"local_csv"`
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`

	Settings Settings `yaml:",inline"`
}

// ScanInterval clamps the cycle cadence to at least 5 seconds,
// defaulting to one minute.
func (c *FileConfig) ScanInterval() time.Duration {
	sec := c.ScanIntervalSec
	if sec <= 0 {
		sec = 60
	}
	if sec < 5 {
		sec = 5
	}
	return time.Duration(sec) * time.Second
}

func LoadConfig(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read config %s", path)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, eris.Wrapf(err, "parse config %s", path)
	}
	return &cfg, nil
}
