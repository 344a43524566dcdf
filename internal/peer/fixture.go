package peer

import (
	"encoding/hex"
	"os"
	"strings"

	"github.com/currantlabs/gattc"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Fixture describes the GATT profile of a simulated peer.
type Fixture struct {
	Name     string    `yaml:"name"`
	Services []Service `yaml:"services"`
}

// Service is a primary service of a Fixture.
type Service struct {
	UUID            string           `yaml:"uuid"`
	Characteristics []Characteristic `yaml:"characteristics"`
}

// Characteristic is a characteristic of a Service.
type Characteristic struct {
	UUID        string       `yaml:"uuid"`
	Properties  []string     `yaml:"properties"`
	Value       string       `yaml:"value"` // hex
	Descriptors []Descriptor `yaml:"descriptors"`
}

// Descriptor is a descriptor of a Characteristic.
type Descriptor struct {
	UUID  string `yaml:"uuid"`
	Value string `yaml:"value"` // hex
}

// Load reads and parses a YAML fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading fixture")
	}
	return Parse(data)
}

// Parse parses a YAML fixture.
func Parse(data []byte) (*Fixture, error) {
	f := &Fixture{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, errors.Wrap(err, "parsing fixture")
	}
	if len(f.Services) == 0 {
		return nil, errors.New("fixture has no services")
	}
	return f, nil
}

func parseValue(s string) ([]byte, error) {
	s = strings.Replace(strings.TrimPrefix(s, "0x"), " ", "", -1)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid value %q", s)
	}
	return b, nil
}

func parseProperties(ss []string) (gattc.Property, error) {
	var p gattc.Property
	for _, s := range ss {
		f, ok := gattc.ParseProperty(s)
		if !ok {
			return 0, errors.Errorf("unknown property %q", s)
		}
		p |= f
	}
	return p, nil
}
