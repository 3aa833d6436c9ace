package orchestra

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jeffdeville/penn-orchestra-sub006/backend"
	"github.com/jeffdeville/penn-orchestra-sub006/backend/badgerstore"
	"github.com/jeffdeville/penn-orchestra-sub006/backend/memstore"
	"github.com/jeffdeville/penn-orchestra-sub006/backend/pebblestore"
	"github.com/jeffdeville/penn-orchestra-sub006/tuple"
	"github.com/jeffdeville/penn-orchestra-sub006/txn"
)

type FieldConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable,omitempty"`
}

type RelationConfig struct {
	Name   string        `yaml:"name"`
	ID     int32         `yaml:"id"`
	Key    []string      `yaml:"key"`
	Fields []FieldConfig `yaml:"fields"`
}

// Config is the part of the system configuration document that
// describes one peer's store, enough to find and reopen it.
type Config struct {
	Schema    string             `yaml:"schema"`
	Peer      txn.PeerID         `yaml:"peer,omitempty"`
	Backend   backend.Descriptor `yaml:"backend"`
	Relations []RelationConfig   `yaml:"relations"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, nil
}

func (cfg *Config) Save(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (cfg *Config) SetDefaults() {
	if cfg.Backend.Schema == "" {
		cfg.Backend.Schema = cfg.Schema
	}
	cfg.Backend.SetDefaults()
}

// Registry builds the relation catalog the config declares.
func (cfg *Config) Registry() (*tuple.Registry, error) {
	reg, err := tuple.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, rc := range cfg.Relations {
		fields := make([]tuple.Field, 0, len(rc.Fields))
		for _, fc := range rc.Fields {
			typ, err := tuple.ParseType(fc.Type)
			if err != nil {
				return nil, errors.WithMessagef(err, "relation %s field %s", rc.Name, fc.Name)
			}
			fields = append(fields, tuple.Field{Name: fc.Name, Type: typ, Nullable: fc.Nullable})
		}
		schema, err := tuple.NewSchema(rc.Name, rc.ID, fields, rc.Key...)
		if err != nil {
			return nil, err
		}
		if err = reg.Register(schema); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// OpenBackend opens the engine named by desc.Kind.
func OpenBackend(desc backend.Descriptor, reg tuple.Resolver, opts Options) (backend.Backend, error) {
	opts.SetDefaults()
	switch desc.Kind {
	case backend.KindMemory:
		s, err := memstore.Open(reg, desc, opts.Logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case backend.KindPebble, "":
		s, err := pebblestore.Open(reg, desc, opts.Logger, pebblestore.Options{CacheSize: opts.CacheSize})
		if err != nil {
			return nil, err
		}
		return s, nil
	case backend.KindBadger:
		s, err := badgerstore.Open(reg, desc, opts.Logger, badgerstore.Options{SyncWrites: true, GCDiscardRatio: 0.5})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, errors.Errorf("unknown backend kind %q", desc.Kind)
}

// OpenFromConfig opens the store cfg describes. Defaults filled in on
// the way, such as a fresh store id, are written back into cfg so the
// caller can save it.
func OpenFromConfig(cfg *Config, opts Options) (*DiffStore, error) {
	cfg.SetDefaults()
	if opts.Peer == "" {
		opts.Peer = cfg.Peer
	}
	opts.SetDefaults()
	cfg.Peer = opts.Peer

	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	b, err := OpenBackend(cfg.Backend, reg, opts)
	if err != nil {
		return nil, err
	}
	ds, err := Open(b, opts)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return ds, nil
}
