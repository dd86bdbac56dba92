package watcher

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// InventoryItem is one row of a character's inventory dump.
type InventoryItem struct {
	Location string
	Name     string
	ID       string
	Count    int
	Slots    int
}

// Inventory is one character's parsed inventory dump plus file metadata.
type Inventory struct {
	Character    string
	FilePath     string
	FileModified time.Time
	Items        []InventoryItem
}

// ParseInventoryFile parses the tab-separated inventory dump the client
// writes via /outputfile. The first line is a header. Short rows keep
// zero values rather than failing the file.
func ParseInventoryFile(path string) (*Inventory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read inventory %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "stat inventory %s", path)
	}

	lines := splitLines(string(b))
	if len(lines) > 0 {
		lines = lines[1:]
	}
	items := make([]InventoryItem, 0, len(lines))
	for _, l := range lines {
		parts := strings.Split(l, "\t")
		item := InventoryItem{}
		if len(parts) > 0 {
			item.Location = parts[0]
		}
		if len(parts) > 1 {
			item.Name = parts[1]
		}
		if len(parts) > 2 {
			item.ID = parts[2]
		}
		if len(parts) > 3 {
			item.Count, _ = strconv.Atoi(strings.TrimSpace(parts[3]))
		}
		if len(parts) > 4 {
			item.Slots, _ = strconv.Atoi(strings.TrimSpace(parts[4]))
		}
		items = append(items, item)
	}
	return &Inventory{
		FilePath:     path,
		FileModified: info.ModTime(),
		Items:        items,
	}, nil
}

// RaidKit summarizes the consumables and clickies a raider is expected
// to carry. Presence fields are Y/N, the rest are summed counts.
type RaidKit struct {
	VialVeliumVapors    string
	VeliumVialCount     int
	LeatherfootSkullcap string
	ShinyBrassIdol      string
	RingOfShadowsCount  int
	ReaperOfTheDead     string
	PearlCount          int
	PeridotCount        int
	MBClassFive         int
	MBClassFour         int
	MBClassThree        int
	MBClassTwo          int
	MBClassOne          int
	LarrikansMask       string
}

var (
	reVialVeliumVapors = regexp.MustCompile(`(?i)^Vial of Velium Vapors$`)
	reVeliumVial       = regexp.MustCompile(`(?i)^Velium Vial$`)
	reLeatherfootCap   = regexp.MustCompile(`(?i)^Leatherfoot Raider Skullcap$`)
	reShinyBrassIdol   = regexp.MustCompile(`(?i)^Shiny Brass Idol$`)
	reRingOfShadows    = regexp.MustCompile(`(?i)^Ring of Shadows$`)
	reReaperOfTheDead  = regexp.MustCompile(`(?i)^Reaper of the Dead$`)
	rePearl            = regexp.MustCompile(`(?i)^Pearl$`)
	rePeridot          = regexp.MustCompile(`(?i)^Peridot$`)
	reMBClassFive      = regexp.MustCompile(`(?i)^Mana Battery - Class Five$`)
	reMBClassFour      = regexp.MustCompile(`(?i)^Mana Battery - Class Four$`)
	reMBClassThree     = regexp.MustCompile(`(?i)^Mana Battery - Class Three$`)
	reMBClassTwo       = regexp.MustCompile(`(?i)^Mana Battery - Class Two$`)
	reMBClassOne       = regexp.MustCompile(`(?i)^Mana Battery - Class One$`)
	reLarrikansMask    = regexp.MustCompile(`(?i)^Larrikan'?s Mask$`)
)

// SummarizeRaidKit scans the item list for the fixed raid-kit entries.
func SummarizeRaidKit(items []InventoryItem) RaidKit {
	count := func(re *regexp.Regexp) int {
		n := 0
		for _, it := range items {
			if re.MatchString(it.Name) {
				n += it.Count
			}
		}
		return n
	}
	has := func(re *regexp.Regexp) string {
		for _, it := range items {
			if re.MatchString(it.Name) {
				return "Y"
			}
		}
		return "N"
	}
	return RaidKit{
		VialVeliumVapors:    has(reVialVeliumVapors),
		VeliumVialCount:     count(reVeliumVial),
		LeatherfootSkullcap: has(reLeatherfootCap),
		ShinyBrassIdol:      has(reShinyBrassIdol),
		RingOfShadowsCount:  count(reRingOfShadows),
		ReaperOfTheDead:     has(reReaperOfTheDead),
		PearlCount:          count(rePearl),
		PeridotCount:        count(rePeridot),
		MBClassFive:         count(reMBClassFive),
		MBClassFour:         count(reMBClassFour),
		MBClassThree:        count(reMBClassThree),
		MBClassTwo:          count(reMBClassTwo),
		MBClassOne:          count(reMBClassOne),
		LarrikansMask:       has(reLarrikansMask),
	}
}
