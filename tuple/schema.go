package tuple

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/jeffdeville/penn-orchestra-sub006/orchestra_errors"
)

type Field struct {
	Name     string
	Type     Type
	Nullable bool
}

// Schema describes one relation: its name, the integer id used as the
// prefix of every physical key, its typed fields and which of them form
// the primary key.
type Schema struct {
	Name   string
	ID     int32
	Fields []Field
	Key    []int
}

func NewSchema(name string, id int32, fields []Field, keyFields ...string) (*Schema, error) {
	if id < 0 {
		return nil, fmt.Errorf("relation %s: negative id %d", name, id)
	}
	s := &Schema{Name: name, ID: id, Fields: slices.Clone(fields)}
	for _, f := range s.Fields {
		if !f.Type.valid() {
			return nil, fmt.Errorf("relation %s: field %s has no type", name, f.Name)
		}
	}
	if len(keyFields) == 0 {
		return nil, fmt.Errorf("relation %s: empty key", name)
	}
	for _, kf := range keyFields {
		i := s.FieldIndex(kf)
		if i < 0 {
			return nil, fmt.Errorf("relation %s: no key field %s", name, kf)
		}
		if s.Fields[i].Nullable {
			return nil, fmt.Errorf("relation %s: key field %s is nullable", name, kf)
		}
		s.Key = append(s.Key, i)
	}
	return s, nil
}

func MustSchema(name string, id int32, fields []Field, keyFields ...string) *Schema {
	s, err := NewSchema(name, id, fields, keyFields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (s *Schema) IsKey(i int) bool {
	return slices.Contains(s.Key, i)
}

// Resolver maps the relation id found in encoded tuples, or a relation
// name, back to a schema.
type Resolver interface {
	ByID(id int32) (*Schema, error)
	ByName(name string) (*Schema, error)
}

// Registry is the relation catalog of one store. Lookups are lock-free,
// backends decode tuples concurrently with the shell registering schemas.
type Registry struct {
	byID   *xsync.MapOf[int32, *Schema]
	byName *xsync.MapOf[string, *Schema]
}

func NewRegistry(schemas ...*Schema) (*Registry, error) {
	r := &Registry{
		byID:   xsync.NewMapOf[int32, *Schema](),
		byName: xsync.NewMapOf[string, *Schema](),
	}
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(s *Schema) error {
	if prev, loaded := r.byID.LoadOrStore(s.ID, s); loaded && prev.Name != s.Name {
		return fmt.Errorf("relation id %d already used by %s", s.ID, prev.Name)
	}
	if prev, loaded := r.byName.LoadOrStore(s.Name, s); loaded && prev.ID != s.ID {
		return fmt.Errorf("relation %s already registered with id %d", s.Name, prev.ID)
	}
	return nil
}

func (r *Registry) ByID(id int32) (*Schema, error) {
	s, ok := r.byID.Load(id)
	if !ok {
		return nil, errors.Wrapf(orchestra_errors.ErrUnknownRelation, "relation id %d", id)
	}
	return s, nil
}

func (r *Registry) ByName(name string) (*Schema, error) {
	s, ok := r.byName.Load(name)
	if !ok {
		return nil, errors.Wrapf(orchestra_errors.ErrUnknownRelation, "relation %s", name)
	}
	return s, nil
}

// Schemas lists the registered relations ordered by id.
func (r *Registry) Schemas() (list []*Schema) {
	r.byID.Range(func(_ int32, s *Schema) bool {
		list = append(list, s)
		return true
	})
	slices.SortFunc(list, func(a, b *Schema) int {
		return int(a.ID) - int(b.ID)
	})
	return
}
