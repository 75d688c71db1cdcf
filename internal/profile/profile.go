package profile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/myorg/tempo/internal/config"
	"github.com/myorg/tempo/internal/controller"
)

// ErrUnknownProfile is returned when a profile name matches neither a file
// nor a built-in preset.
var ErrUnknownProfile = errors.New("unknown profile")

// Profile is a named set of controller settings plus the length of one
// iteration of the timeline it plays.
type Profile struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Duration    float64 `yaml:"duration" json:"duration"`
	Iterations  float64 `yaml:"iterations" json:"iterations"`
	Speed       float64 `yaml:"speed" json:"speed"`
	Persist     bool    `yaml:"persist" json:"persist"`
	Pingpong    bool    `yaml:"pingpong" json:"pingpong"`
	Pongping    bool    `yaml:"pongping" json:"pongping"`
	StartAt     float64 `yaml:"start_at,omitempty" json:"start_at,omitempty"`
}

// profileWrapper is used for parsing YAML with a top-level profile key.
type profileWrapper struct {
	Profile *Profile `yaml:"profile"`
}

// Validate checks that the profile describes a playable timeline.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.Duration < 0 || math.IsNaN(p.Duration) || math.IsInf(p.Duration, 0) {
		return fmt.Errorf("duration must be a finite value >= 0, got %v", p.Duration)
	}
	if p.Iterations < 1 || math.IsNaN(p.Iterations) {
		return fmt.Errorf("iterations must be >= 1, got %v", p.Iterations)
	}
	if math.IsNaN(p.Speed) || math.IsInf(p.Speed, 0) {
		return fmt.Errorf("speed must be finite, got %v", p.Speed)
	}
	return nil
}

// SetDefaults fills zero values that have a non-zero default.
func (p *Profile) SetDefaults() {
	if p.Iterations == 0 {
		p.Iterations = 1
	}
	if p.Duration == 0 {
		p.Duration = 1
	}
}

// Apply configures c with the profile's settings. The duration is not part
// of the controller; it belongs to the playable.
func (p *Profile) Apply(c *controller.TimeController) *controller.TimeController {
	c.SetIterations(p.Iterations).
		SetPersist(p.Persist).
		SetPingpong(p.Pingpong).
		SetPongping(p.Pongping).
		SetSpeed(p.Speed)
	if p.StartAt != 0 {
		c.GoTo(p.StartAt)
	}
	return c
}

// Override applies the explicitly set fields of a timeline config section.
func (p *Profile) Override(t config.TimelineConfig) {
	if t.Duration > 0 {
		p.Duration = t.Duration
	}
	if t.Iterations != 0 {
		p.Iterations = t.Iterations
	}
	if t.Speed != nil {
		p.Speed = *t.Speed
	}
	if t.Persist != nil {
		p.Persist = *t.Persist
	}
	if t.Pingpong != nil {
		p.Pingpong = *t.Pingpong
	}
	if t.Pongping != nil {
		p.Pongping = *t.Pongping
	}
	if t.StartAt != 0 {
		p.StartAt = t.StartAt
	}
}

// Clone returns a copy of the profile.
func (p *Profile) Clone() *Profile {
	cp := *p
	return &cp
}

// TotalDuration returns duration * iterations, the unscaled timeline length.
func (p *Profile) TotalDuration() float64 {
	if p.Duration == 0 {
		return 0
	}
	return p.Duration * p.Iterations
}

// String returns a one-line summary of the profile.
func (p *Profile) String() string {
	var flags []string
	if p.Persist {
		flags = append(flags, "persist")
	}
	if p.Pingpong {
		flags = append(flags, "pingpong")
	}
	if p.Pongping {
		flags = append(flags, "pongping")
	}
	s := fmt.Sprintf("%s: %gs x %g @ %gx", p.Name, p.Duration, p.Iterations, p.Speed)
	if len(flags) > 0 {
		s += " [" + strings.Join(flags, ",") + "]"
	}
	return s
}

// Load resolves name as a file path when it ends in .yaml/.yml, otherwise
// as a built-in preset or alias.
func Load(name string) (*Profile, error) {
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return LoadFromFile(name)
	}

	p, ok := Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return p, nil
}

// LoadFromFile loads a profile from a YAML file.
func LoadFromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses a profile from YAML data. Both a bare mapping and one nested
// under a top-level "profile" key are accepted.
func Parse(data []byte) (*Profile, error) {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	p := &Profile{Speed: 1}
	var err error
	if node, nested := top["profile"]; nested {
		err = node.Decode(p)
	} else {
		err = yaml.Unmarshal(data, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	p.SetDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// Marshal renders the profile as YAML nested under a "profile" key.
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(profileWrapper{Profile: p})
}
