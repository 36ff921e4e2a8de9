// Package truck loads the catalog of truck profiles available for placement.
package truck

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/firereach/ladderreach/pkg/core"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const (
	// ladderOffsetRatio places the turntable 35% of the body length behind
	// the centre, halved to get the offset from the truck centre.
	ladderOffsetRatio = 0.35 * 0.5
	defaultHeading    = 90.0
)

var (
	ErrUnknownTruck   = errors.New("unknown truck type")
	ErrInvalidProfile = errors.New("invalid truck profile")
)

type catalogFile struct {
	Trucks []entry `yaml:"trucks"`
}

// entry is a profile as written in the catalog, in catalog units.
type entry struct {
	ID             string          `yaml:"id"`
	Label          string          `yaml:"label"`
	Description    string          `yaml:"description"`
	Unit           string          `yaml:"unit"`
	UnitFactor     float64         `yaml:"unitFactor"`
	Width          float64         `yaml:"width"`
	Height         float64         `yaml:"height"`
	Depth          float64         `yaml:"depth"`
	LadderReach    float64         `yaml:"ladderReach"`
	LadderOffset   *float64        `yaml:"ladderOffset"`
	JackSpread     float64         `yaml:"jackSpread"`
	Range          core.AngleRange `yaml:"range"`
	DefaultHeading *float64        `yaml:"defaultHeading"`
}

func (e entry) profile() (core.TruckProfile, error) {
	if e.ID == "" {
		return core.TruckProfile{}, fmt.Errorf("%w: missing id", ErrInvalidProfile)
	}
	if e.UnitFactor <= 0 {
		return core.TruckProfile{}, fmt.Errorf("%w: %s: unitFactor must be positive", ErrInvalidProfile, e.ID)
	}
	if e.LadderReach <= 0 {
		return core.TruckProfile{}, fmt.Errorf("%w: %s: ladderReach must be positive", ErrInvalidProfile, e.ID)
	}
	if e.Range.MinDeg >= e.Range.MaxDeg {
		return core.TruckProfile{}, fmt.Errorf("%w: %s: range min %.1f must be below max %.1f",
			ErrInvalidProfile, e.ID, e.Range.MinDeg, e.Range.MaxDeg)
	}

	f := e.UnitFactor
	p := core.TruckProfile{
		ID:             e.ID,
		Label:          e.Label,
		Description:    e.Description,
		LadderReach:    e.LadderReach * f,
		ElevationRange: e.Range,
		Width:          e.Width * f,
		Height:         e.Height * f,
		Depth:          e.Depth * f,
		JackSpread:     e.JackSpread * f,
		DefaultHeading: defaultHeading,
	}
	if e.LadderOffset != nil {
		p.LadderOffset = *e.LadderOffset * f
	} else {
		p.LadderOffset = p.Depth * ladderOffsetRatio
	}
	if e.DefaultHeading != nil {
		p.DefaultHeading = core.NormalizeHeading(*e.DefaultHeading)
	}
	if p.LadderOffset < 0 || p.Depth < p.LadderOffset {
		return core.TruckProfile{}, fmt.Errorf("%w: %s: ladderOffset %.2f outside body depth %.2f",
			ErrInvalidProfile, e.ID, p.LadderOffset, p.Depth)
	}
	return p, nil
}

// Catalog is an ordered, immutable set of truck profiles.
type Catalog struct {
	profiles []core.TruckProfile
	byID     map[string]int
}

// LoadCatalog parses a YAML catalog and converts every profile to metres.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode truck catalog: %w", err)
	}
	if len(file.Trucks) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrInvalidProfile)
	}

	c := &Catalog{byID: make(map[string]int, len(file.Trucks))}
	for _, e := range file.Trucks {
		p, err := e.profile()
		if err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidProfile, p.ID)
		}
		c.byID[p.ID] = len(c.profiles)
		c.profiles = append(c.profiles, p)
	}
	return c, nil
}

// LoadCatalogFile reads a catalog from path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open truck catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("embedded truck catalog is invalid: %v", err))
	}
	return c
}

// Get returns the profile with the given id.
func (c *Catalog) Get(id string) (core.TruckProfile, error) {
	i, ok := c.byID[id]
	if !ok {
		return core.TruckProfile{}, fmt.Errorf("%w: %q", ErrUnknownTruck, id)
	}
	return c.profiles[i], nil
}

// All returns the profiles in catalog order.
func (c *Catalog) All() []core.TruckProfile {
	out := make([]core.TruckProfile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Default returns the first profile in the catalog.
func (c *Catalog) Default() core.TruckProfile {
	return c.profiles[0]
}
