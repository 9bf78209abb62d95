package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tables holds the static lookup data the engine scores against. Each table
// maps a key to the set of values considered compatible with it.
//
// NeighbouringCountries is keyed by the candidate's country and is
// directional: Ethiopia listing Kenya does not make Kenya list Ethiopia.
type Tables struct {
	SectorCompatibility   map[string][]string `yaml:"sector_compatibility"`
	NeighbouringCountries map[string][]string `yaml:"neighbouring_countries"`
	SizeCompatibility     map[string][]string `yaml:"size_compatibility"`
}

func DefaultTables() Tables {
	return Tables{
		SectorCompatibility: map[string][]string{
			"agritech":      {"agriculture", "food_processing", "logistics"},
			"manufacturing": {"industrial", "logistics", "quality_control"},
			"technology":    {"it_services", "consulting", "innovation"},
			"food_beverage": {"food_processing", "distribution", "retail"},
			"fashion":       {"textile", "retail", "distribution"},
			"construction":  {"engineering", "real_estate", "logistics"},
			"energy":        {"renewable_energy", "engineering", "consulting"},
			"healthcare":    {"medical_devices", "pharmaceuticals", "distribution"},
		},
		NeighbouringCountries: map[string][]string{
			"Kenya":    {"Tanzania", "Uganda"},
			"Tanzania": {"Kenya", "Uganda"},
			"Ethiopia": {"Kenya", "Sudan"},
		},
		SizeCompatibility: map[string][]string{
			"micro":  {"small_distributor", "consultant", "agent"},
			"small":  {"small_distributor", "medium_distributor", "consultant"},
			"medium": {"medium_distributor", "large_distributor", "logistics_company"},
		},
	}
}

// LoadTables reads tables from a YAML file. Sections missing from the file
// fall back to the defaults.
func LoadTables(path string) (Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("read tables %s: %w", path, err)
	}
	return ParseTables(data)
}

func ParseTables(data []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tables{}, fmt.Errorf("parse tables: %w", err)
	}

	def := DefaultTables()
	if t.SectorCompatibility == nil {
		t.SectorCompatibility = def.SectorCompatibility
	}
	if t.NeighbouringCountries == nil {
		t.NeighbouringCountries = def.NeighbouringCountries
	}
	if t.SizeCompatibility == nil {
		t.SizeCompatibility = def.SizeCompatibility
	}
	return t, nil
}

type stringSet map[string]struct{}

func newStringSet(values []string) stringSet {
	s := make(stringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s stringSet) has(v string) bool {
	_, ok := s[v]
	return ok
}

// lookup is the frozen form of Tables used at scoring time. It is built once
// per engine and only read afterwards.
type lookup map[string]stringSet

func compile(table map[string][]string) lookup {
	out := make(lookup, len(table))
	for k, values := range table {
		out[k] = newStringSet(values)
	}
	return out
}
