package scoring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTables(t *testing.T) {
	data := []byte(`
sector_compatibility:
  mining: [engineering, logistics]
neighbouring_countries:
  Ghana: [Togo]
`)

	tables, err := ParseTables(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"engineering", "logistics"}, tables.SectorCompatibility["mining"])
	assert.NotContains(t, tables.SectorCompatibility, "agritech")
	assert.Equal(t, []string{"Togo"}, tables.NeighbouringCountries["Ghana"])
	assert.Equal(t, DefaultTables().SizeCompatibility, tables.SizeCompatibility)
}

func TestParseTables_Invalid(t *testing.T) {
	_, err := ParseTables([]byte("sector_compatibility: [not, a, map"))
	assert.Error(t, err)
}

func TestLoadTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("size_compatibility:\n  micro: [agent]\n"), 0o600))

	tables, err := LoadTables(path)
	require.NoError(t, err)

	e, err := NewEngine(DefaultWeights(), tables)
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.ScoreSize("micro", "agent"))
	assert.Equal(t, 0.3, e.ScoreSize("micro", "consultant"))
	assert.Equal(t, 0.7, e.ScoreSector("agritech", []string{"agriculture"}))

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWeights_Validate(t *testing.T) {
	tests := []struct {
		name    string
		w       Weights
		wantErr bool
	}{
		{"defaults", DefaultWeights(), false},
		{"within tolerance", Weights{Sector: 0.4005, Country: 0.25, Service: 0.2, Size: 0.1, Keyword: 0.05}, false},
		{"sum too low", Weights{Sector: 0.4}, true},
		{"negative weight", Weights{Sector: 1.1, Keyword: -0.1}, true},
		{"zero", Weights{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
