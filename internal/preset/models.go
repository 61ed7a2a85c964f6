package preset

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"galaxy-server/internal/galaxy"
)

// Preset is a named parameter set. A preset with a seed reproduces one
// exact galaxy; without one every use draws a new seed.
type Preset struct {
	Name        string           `json:"name" db:"name"`
	Description string           `json:"description" db:"description"`
	Parameters  ParametersColumn `json:"parameters" db:"parameters"`
	Seed        *SeedColumn      `json:"seed,omitempty" db:"seed"`
	Builtin     bool             `json:"builtin" db:"builtin"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time        `json:"updatedAt" db:"updated_at"`
}

type CreateRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  galaxy.Parameters `json:"parameters"`
	Seed        *uint64           `json:"seed,omitempty"`
}

// ParametersColumn stores galaxy parameters as a JSONB document.
type ParametersColumn galaxy.Parameters

func (p ParametersColumn) Value() (driver.Value, error) {
	data, err := json.Marshal(galaxy.Parameters(p))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (p *ParametersColumn) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into parameters", src)
	}

	var params galaxy.Parameters
	if err := json.Unmarshal(data, &params); err != nil {
		return fmt.Errorf("invalid parameters document: %w", err)
	}
	*p = ParametersColumn(params)
	return nil
}

// SeedColumn maps a uint64 seed onto a BIGINT column. Seeds stay below
// galaxy.MaxSeed, which fits.
type SeedColumn uint64

func (s SeedColumn) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *SeedColumn) Scan(src any) error {
	v, ok := src.(int64)
	if !ok {
		return fmt.Errorf("cannot scan %T into seed", src)
	}
	*s = SeedColumn(v)
	return nil
}

func (p *Preset) GalaxyParameters() galaxy.Parameters {
	return galaxy.Parameters(p.Parameters)
}

// SeedValue returns the stored seed, if any.
func (p *Preset) SeedValue() (uint64, bool) {
	if p.Seed == nil {
		return 0, false
	}
	return uint64(*p.Seed), true
}

// Builtins are installed on startup and cannot be deleted.
func Builtins() []Preset {
	classic := galaxy.DefaultParameters()

	pinwheel := galaxy.DefaultParameters()
	pinwheel.Branches = 3
	pinwheel.Spin = 2.4
	pinwheel.Randomness = 0.35
	pinwheel.InnerColor = galaxy.MustParseColor("#ffd27f")
	pinwheel.OuterColor = galaxy.MustParseColor("#3a5fcd")

	barred := galaxy.DefaultParameters()
	barred.Branches = 2
	barred.Spin = 0.6
	barred.Radius = 7
	barred.RandomnessPower = 4.5

	nebula := galaxy.DefaultParameters()
	nebula.Count = 50_000
	nebula.Size = 0.02
	nebula.Randomness = 1.2
	nebula.RandomnessPower = 1.5
	nebula.InnerColor = galaxy.MustParseColor("#ff4fd8")
	nebula.OuterColor = galaxy.MustParseColor("#20c0a0")

	return []Preset{
		{Name: "classic", Description: "Five arms with a warm core", Parameters: ParametersColumn(classic), Builtin: true},
		{Name: "pinwheel", Description: "Three tightly wound arms", Parameters: ParametersColumn(pinwheel), Builtin: true},
		{Name: "barred", Description: "Two loose arms over a wide disc", Parameters: ParametersColumn(barred), Builtin: true},
		{Name: "nebula", Description: "Diffuse cloud with faint structure", Parameters: ParametersColumn(nebula), Builtin: true},
	}
}
