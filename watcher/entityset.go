package watcher

import (
	"os"
	"strings"
)

// baselineEntities is the bundled curated name list. User additions and
// removals are layered on top by BuildEntitySet.
var baselineEntities = []string{
	"A cerulean sky gazer",
	"a cragwyrm",
	"A Dalgortha",
	"a fiery temple guardian",
	"a fiery watcher",
	"A Gargoyle Guardian",
	"a glimmer drake",
	"a gravid drake",
	"A Hungry Cube",
	"A Large Velium Statue",
	"a lava dancer",
	"A Shambling Cube",
	"a shimmering green drake",
	"a Velious Drake",
	"Aaryonar",
	"Abudan Fe`Dhar",
	"Adwetram Fe`Dhar",
	"Ahcaz",
	"an ancient ice wurm defender",
	"An Ancient Sky Drake",
	"An Elder Onyx Drake",
	"an emerald sky defender",
	"an onyx sky drake",
	"Arreken Skyward",
	"Asteinnon Fe`Dhar",
	"Ayillish",
	"Azureake",
	"Belijor the Emerald Eye",
	"Bezeb",
	"Bouncer Boulder",
	"Bratavar",
	"Bufa",
	"Cargalia",
	"Cekenar",
	"Chymot",
	"Commander Leuz",
	"Crendatha Fe`Dhar",
	"Dagarn the Destroyer",
	"Dalshim Fe`Dhar",
	"Del Sapara",
	"Deoryn Fe`Dhar",
	"Derasinal",
	"Draazak",
	"Dygwyn Fe`Dhar",
	"Dyr Fe`Dhar",
	"Eashen of the Sky",
	"Elaend Fe`Dhar",
	"Elder Hajnix",
	"Elder Kajind",
	"Elder Kalur",
	"Eldriaks Fe`Dhar",
	"Elyshum Fe`Dhar",
	"Entariz",
	"Fardonad Fe`Dhar",
	"Gafala",
	"Gangel",
	"Glati",
	"Glydoc Fe`Dhar",
	"Gozzrem",
	"Grudash the Baker",
	"Harla Dar",
	"Honvar",
	"Hytloc",
	"Ionat",
	"Jaelk",
	"Jaled Dar`s shade",
	"Jaylorx",
	"Jen Sapara",
	"Jendavudd Fe`Dhar",
	"Jorlleag",
	"Jualicn",
	"Kalacs Fe`Dhar",
	"Kardakor",
	"Karkona",
	"Kelorek`Dar",
	"Klandicar",
	"Komawin Fe`Dhar",
	"Lady Mirenilla",
	"Lady Nevederia",
	"Laegdric Fe`Dhar",
	"Lararith",
	"Lawula",
	"Lendiniara the Keeper",
	"Lignark",
	"Linbrak",
	"Lord Feshlak",
	"Lord Koi`Doken",
	"Lord Kreizenn",
	"Lord Yelinak",
	"Lothieder Fe`Dhar",
	"Makala",
	"Mazi",
	"Medry Fe`Dhar",
	"Morachii Fe`Dhar",
	"Mraaka",
	"Myga",
	"Nalelin Fe`Dhar",
	"Nalginor Fe`Dhar",
	"Neordla",
	"Norsirx",
	"Ocoenydd Fe`Dhar",
	"Oct Velic",
	"Oglard",
	"Onava",
	"Onerind Fe`Dhar",
	"Orthor Velic",
	"Pantrilla",
	"Placlis",
	"Poalgin Fe`Dhar",
	"Qalcnic Fe`Dhar",
	"Quadrix Velic",
	"Quoza",
	"Qynydd Fe`Dhar",
	"Ralgyn",
	"Riran Fe`Dhar",
	"Rolandal",
	"Salginor",
	"Scout Charisa",
	"Sentry Kale",
	"Sevalak",
	"Sontalak",
	"Suez",
	"Taegria Fe`Dhar",
	"Talgixn Fe`Dhar",
	"Talnifs",
	"Talon Velic",
	"Telkorenar",
	"Telnaq",
	"Tetragon Velic",
	"The Seer",
	"Theldek the Stinger",
	"Tonvan Fe`Dhar",
	"Tranala",
	"Tsiraka",
	"Tyddyn Fe`Dhar",
	"Ualkic",
	"Uiliak",
	"Umykith Fe`Dhar",
	"Vellyn Fe`Dhar",
	"Vitaela",
	"Vobryn Fe`Dhar",
	"Von",
	"Vulak`Aerr",
	"Wuoshi",
	"Yaced",
	"Yal",
	"Yeldema",
	"Yendilor the Cerulean Wing",
	"Yvolcarn",
	"Zaldin Fe`Dhar",
	"Zalerez",
	"Zemm",
	"Ziglark Whisperwing",
	"Zil Sapara",
	"Zildainez",
	"Zlexak",
	"Zynil",
	"a cobalt drake",
	"a wyvern",
}

// EntitySet is a snapshot of the normalized names the engine tracks
// standings for. Callers that need stability across one scan pass must
// build it once per pass.
type EntitySet struct {
	names     map[string]struct{}
	acceptAll bool
}

// EntitySetOptions carries the user-adjustable inputs merged over the
// bundled baseline. Removals win over every other source.
type EntitySetOptions struct {
	OverrideFile string
	Explicit     []string
	Additions    []string
	Removals     []string
	AcceptAll    bool
}

// BuildEntitySet merges the bundled baseline, the optional override file
// (one name per line), the settings explicit list and additions, then
// drops every entry whose normalized form appears in the removal list.
// An unreadable override file degrades to the remaining sources.
func BuildEntitySet(opts EntitySetOptions) *EntitySet {
	merged := make([]string, 0, len(baselineEntities))
	merged = append(merged, baselineEntities...)
	if opts.OverrideFile != "" {
		if b, err := os.ReadFile(opts.OverrideFile); err == nil {
			for _, line := range strings.Split(string(b), "\n") {
				if s := strings.TrimSpace(strings.TrimSuffix(line, "\r")); s != "" {
					merged = append(merged, s)
				}
			}
		}
	}
	merged = append(merged, opts.Explicit...)
	merged = append(merged, opts.Additions...)

	removed := make(map[string]struct{}, len(opts.Removals))
	for _, r := range opts.Removals {
		if n := NormalizeName(r); n != "" {
			removed[n] = struct{}{}
		}
	}

	out := &EntitySet{names: make(map[string]struct{}, len(merged)), acceptAll: opts.AcceptAll}
	for _, name := range merged {
		n := NormalizeName(name)
		if n == "" {
			continue
		}
		if _, gone := removed[n]; gone {
			continue
		}
		out.names[n] = struct{}{}
	}
	return out
}

// Match reports whether a normalized name belongs to the set, trying an
// exact hit first and falling back to a normalized-prefix match.
func (s *EntitySet) Match(norm string) bool {
	if s.acceptAll {
		return true
	}
	if _, ok := s.names[norm]; ok {
		return true
	}
	for name := range s.names {
		if strings.HasPrefix(norm, name) {
			return true
		}
	}
	return false
}

// Has reports an exact normalized membership check, ignoring the
// accept-all override.
func (s *EntitySet) Has(norm string) bool {
	_, ok := s.names[norm]
	return ok
}

// Len reports the member count, logged with each scan cycle's stats.
func (s *EntitySet) Len() int { return len(s.names) }
