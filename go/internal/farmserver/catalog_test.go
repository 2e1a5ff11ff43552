package farmserver

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinyCatalog = `
plants:
  - {name: Daisy, rarity: common, min_value: 10, max_value: 10}
  - {name: Lotus, rarity: rare, min_value: 50, max_value: 60}
seeds:
  - id: 1
    name: Meadow Seed
    cost: 20
    min_time: 5
    max_time: 5
    loot:
      - {plant: Daisy, weight: 1}
`

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	require.NotEmpty(t, c.Seeds)

	for _, s := range c.Seeds {
		got, ok := c.Seed(s.ID)
		require.True(t, ok)
		assert.Equal(t, s.Name, got.Name)
	}
	_, ok := c.Seed(999)
	assert.False(t, ok)
}

func TestParseCatalogRejectsBadContent(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no seeds", "plants: []\nseeds: []\n"},
		{"unknown plant", "plants: []\nseeds:\n  - {id: 1, name: X, cost: 1, min_time: 1, max_time: 1, loot: [{plant: Nope, weight: 1}]}\n"},
		{"zero weight", "plants: [{name: A, min_value: 1, max_value: 1}]\nseeds:\n  - {id: 1, name: X, cost: 1, min_time: 1, max_time: 1, loot: [{plant: A, weight: 0}]}\n"},
		{"inverted time", "plants: [{name: A, min_value: 1, max_value: 1}]\nseeds:\n  - {id: 1, name: X, cost: 1, min_time: 9, max_time: 1, loot: [{plant: A, weight: 1}]}\n"},
		{"duplicate id", "plants: [{name: A, min_value: 1, max_value: 1}]\nseeds:\n  - {id: 1, name: X, cost: 1, min_time: 1, max_time: 1, loot: [{plant: A, weight: 1}]}\n  - {id: 1, name: Y, cost: 1, min_time: 1, max_time: 1, loot: [{plant: A, weight: 1}]}\n"},
		{"bad value range", "plants: [{name: A, min_value: 5, max_value: 1}]\nseeds: []\n"},
		{"not yaml", "seeds: [[["},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tinyCatalog), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	seed, ok := c.Seed(1)
	require.True(t, ok)
	assert.Equal(t, 20, seed.Cost)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRollStaysInsideLootTable(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))

	for _, seed := range c.Seeds {
		allowed := map[string]bool{}
		for _, l := range seed.Loot {
			allowed[l.Plant] = true
		}
		for i := 0; i < 200; i++ {
			plant, value := c.roll(seed, rng)
			assert.True(t, allowed[plant.Name], "%s cannot grow from %s", plant.Name, seed.Name)
			assert.GreaterOrEqual(t, value, plant.MinValue)
			assert.LessOrEqual(t, value, plant.MaxValue)

			growth := seed.growthTime(rng)
			assert.GreaterOrEqual(t, growth, seed.MinTime)
			assert.LessOrEqual(t, growth, seed.MaxTime)
		}
	}
}
