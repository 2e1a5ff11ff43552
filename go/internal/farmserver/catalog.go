package farmserver

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// PlantSpec is a harvestable plant and the range its sale value is drawn from
type PlantSpec struct {
	Name     string `yaml:"name"`
	Rarity   string `yaml:"rarity"`
	MinValue int    `yaml:"min_value"`
	MaxValue int    `yaml:"max_value"`
}

// LootEntry weights one plant in a seed's loot table
type LootEntry struct {
	Plant  string `yaml:"plant"`
	Weight int    `yaml:"weight"`
}

// SeedSpec is a seed sold in the shop. Growth time is drawn from [MinTime, MaxTime] seconds.
type SeedSpec struct {
	ID          int         `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Cost        int         `yaml:"cost"`
	MinTime     int         `yaml:"min_time"`
	MaxTime     int         `yaml:"max_time"`
	Loot        []LootEntry `yaml:"loot"`
}

// Catalog is the static game content
type Catalog struct {
	Plants []PlantSpec `yaml:"plants"`
	Seeds  []SeedSpec  `yaml:"seeds"`

	plants map[string]PlantSpec
	seeds  map[int]SeedSpec
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog from a YAML file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	c.plants = make(map[string]PlantSpec, len(c.Plants))
	for _, p := range c.Plants {
		if p.MinValue < 0 || p.MaxValue < p.MinValue {
			return fmt.Errorf("plant %q: invalid value range %d-%d", p.Name, p.MinValue, p.MaxValue)
		}
		c.plants[p.Name] = p
	}

	c.seeds = make(map[int]SeedSpec, len(c.Seeds))
	for _, s := range c.Seeds {
		if s.ID <= 0 {
			return fmt.Errorf("seed %q: id must be positive", s.Name)
		}
		if _, dup := c.seeds[s.ID]; dup {
			return fmt.Errorf("seed %q: duplicate id %d", s.Name, s.ID)
		}
		if s.Cost < 0 || s.MinTime < 0 || s.MaxTime < s.MinTime {
			return fmt.Errorf("seed %q: invalid cost or growth time", s.Name)
		}
		if len(s.Loot) == 0 {
			return fmt.Errorf("seed %q: empty loot table", s.Name)
		}
		for _, l := range s.Loot {
			if _, ok := c.plants[l.Plant]; !ok {
				return fmt.Errorf("seed %q: unknown plant %q in loot table", s.Name, l.Plant)
			}
			if l.Weight <= 0 {
				return fmt.Errorf("seed %q: weight for %q must be positive", s.Name, l.Plant)
			}
		}
		c.seeds[s.ID] = s
	}
	if len(c.seeds) == 0 {
		return errors.New("catalog has no seeds")
	}
	return nil
}

// Seed looks up a seed by ID
func (c *Catalog) Seed(id int) (SeedSpec, bool) {
	s, ok := c.seeds[id]
	return s, ok
}

// growthTime draws a growth time for a newly planted seed
func (s SeedSpec) growthTime(rng *rand.Rand) int {
	return s.MinTime + rng.Intn(s.MaxTime-s.MinTime+1)
}

// roll picks a plant from the seed's loot table and draws its value
func (c *Catalog) roll(s SeedSpec, rng *rand.Rand) (PlantSpec, int) {
	total := 0
	for _, l := range s.Loot {
		total += l.Weight
	}
	n := rng.Intn(total)
	pick := s.Loot[len(s.Loot)-1].Plant
	for _, l := range s.Loot {
		if n < l.Weight {
			pick = l.Plant
			break
		}
		n -= l.Weight
	}
	plant := c.plants[pick]
	return plant, plant.MinValue + rng.Intn(plant.MaxValue-plant.MinValue+1)
}
