// Package backend feeds scripted input into a seat. A script declares the
// clients, their surfaces and the outputs, then lists raw input and
// hot-plug steps applied strictly in order.
package backend

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bnema/wayseat/internal/resource"
	"github.com/bnema/wayseat/internal/wire"
)

// ErrUnknownOp is returned for a step whose op is not recognised
var ErrUnknownOp = errors.New("unknown op")

// Script is a decoded backend script
type Script struct {
	Seat    string       `yaml:"seat"`
	Outputs []OutputSpec `yaml:"outputs"`
	Clients []ClientSpec `yaml:"clients"`
	Steps   []Step       `yaml:"steps"`
}

// OutputSpec places an output in the global coordinate space
type OutputSpec struct {
	Name   string  `yaml:"name"`
	X      int32   `yaml:"x"`
	Y      int32   `yaml:"y"`
	Width  int32   `yaml:"width"`
	Height int32   `yaml:"height"`
	Scale  float64 `yaml:"scale"`
}

// ClientSpec connects a client, binds devices and creates surfaces
type ClientSpec struct {
	ID       resource.ClientID `yaml:"id"`
	Name     string            `yaml:"name"`
	Bind     []string          `yaml:"bind"`
	Surfaces []SurfaceSpec     `yaml:"surfaces"`
}

// SurfaceSpec is a surface mapped as a view
type SurfaceSpec struct {
	Name   string  `yaml:"name"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Output string  `yaml:"output"`
}

// Modifiers mirrors wire.Modifiers in scripts
type Modifiers struct {
	Depressed uint32 `yaml:"depressed"`
	Latched   uint32 `yaml:"latched"`
	Locked    uint32 `yaml:"locked"`
	Group     uint32 `yaml:"group"`
}

func (m Modifiers) wire() wire.Modifiers {
	return wire.Modifiers{Depressed: m.Depressed, Latched: m.Latched, Locked: m.Locked, Group: m.Group}
}

// Step is one scripted event. Which fields matter depends on Op.
type Step struct {
	Op string `yaml:"op"`

	// capability names for enable, disable, bind and release
	Caps []string `yaml:"caps"`

	Client  resource.ClientID `yaml:"client"`
	Surface string            `yaml:"surface"` // surface name, empty means none

	Time   uint32  `yaml:"time"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Button uint32  `yaml:"button"`
	Key    uint32  `yaml:"key"`
	State  string  `yaml:"state"` // pressed or released
	ID     int32   `yaml:"id"`

	Axis     string  `yaml:"axis"` // vertical or horizontal
	Value    float64 `yaml:"value"`
	Discrete int32   `yaml:"discrete"`
	Source   string  `yaml:"source"` // wheel, finger, continuous, wheel_tilt

	Mods Modifiers `yaml:"mods"`

	// grab steps
	Serial   string   `yaml:"serial"` // empty, "last", or a number
	Edges    []string `yaml:"edges"`
	CycleKey uint32   `yaml:"cycle_key"`
	Priority int      `yaml:"priority"`
	Reason   string   `yaml:"reason"`
}

// Decode reads a script from r. Unknown fields are rejected.
func Decode(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &s, nil
		}
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a script file
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Script) validate() error {
	seen := make(map[resource.ClientID]bool)
	for _, c := range s.Clients {
		if c.ID == 0 {
			return fmt.Errorf("client %q: id must be non-zero", c.Name)
		}
		if seen[c.ID] {
			return fmt.Errorf("client %d declared twice", c.ID)
		}
		seen[c.ID] = true

		names := make(map[string]bool)
		for _, sf := range c.Surfaces {
			if sf.Name == "" || names[sf.Name] {
				return fmt.Errorf("client %d: surface names must be unique and non-empty", c.ID)
			}
			names[sf.Name] = true
		}
	}
	for i, st := range s.Steps {
		if _, ok := handlers[st.Op]; !ok {
			return fmt.Errorf("step %d: %q: %w", i+1, st.Op, ErrUnknownOp)
		}
	}
	return nil
}
