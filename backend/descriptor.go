package backend

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	KindMemory = "memory"
	KindPebble = "pebble"
	KindBadger = "badger"
)

const (
	DefaultStateSpace = "S"
	DefaultLogSpace   = "U"
)

const (
	spaceDecision = 'D'
	spaceMeta     = 'M'
)

// Descriptor is what the enclosing configuration document records about
// a store so that it can be found and reopened later.
type Descriptor struct {
	ID         string `yaml:"id"`
	Kind       string `yaml:"kind"`
	Schema     string `yaml:"schema"`
	Path       string `yaml:"path,omitempty"`
	StateSpace string `yaml:"state_space"`
	LogSpace   string `yaml:"log_space"`
}

func (d *Descriptor) SetDefaults() {
	if d.ID == "" {
		d.ID = uuid.Must(uuid.NewV7()).String()
	}
	if d.Kind == "" {
		d.Kind = KindPebble
	}
	if d.StateSpace == "" {
		d.StateSpace = DefaultStateSpace
	}
	if d.LogSpace == "" {
		d.LogSpace = DefaultLogSpace
	}
}

// Spaces resolves the logical space names to their key prefixes.
func (d Descriptor) Spaces() (Spaces, error) {
	state, err := spacePrefix(d.StateSpace)
	if err != nil {
		return Spaces{}, err
	}
	log, err := spacePrefix(d.LogSpace)
	if err != nil {
		return Spaces{}, err
	}
	if state == log {
		return Spaces{}, fmt.Errorf("state and log spaces share prefix %q", state)
	}
	return Spaces{State: state, Log: log}, nil
}

func spacePrefix(name string) (byte, error) {
	if len(name) != 1 || name[0] < 'A' || name[0] > 'Z' {
		return 0, fmt.Errorf("key space %q is not a single letter A-Z", name)
	}
	if name[0] == spaceDecision || name[0] == spaceMeta {
		return 0, fmt.Errorf("key space %q is reserved", name)
	}
	return name[0], nil
}
