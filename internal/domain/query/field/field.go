package field

import (
	"fmt"
	"regexp"
	"sort"
)

// Kind is the value type of a filterable field.
type Kind string

// Field kind constants.
const (
	String Kind = "string"
	Number Kind = "number"
	Bool   Kind = "bool"
	Time   Kind = "time"
)

var namePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]{0,63}$`)

// Field describes one logical field of a listing entity and where it lives
// in each backend.
type Field struct {
	Name       string
	Kind       Kind
	Column     string // relational column
	IndexField string // search index attribute, empty when not indexed
	Sortable   bool
}

// Rangeable reports whether _from/_to bounds apply to the field.
func (f Field) Rangeable() bool { return f.Kind == Number || f.Kind == Time }

// Indexed reports whether the field can be filtered in the search index.
func (f Field) Indexed() bool { return f.IndexField != "" }

// Relation is a child collection reachable from the root entity.
type Relation struct {
	Name       string
	Table      string
	ForeignKey string
	fields     map[string]Field
}

// Field looks up a field of the related entity.
func (r Relation) Field(name string) (Field, bool) {
	f, ok := r.fields[name]
	return f, ok
}

// Schema is the closed set of fields and relations a listing surface accepts.
type Schema struct {
	table     string
	fields    map[string]Field
	relations map[string]Relation
}

// New validates and creates a Schema for the given root table.
func New(table string, fields []Field, relations ...Relation) (Schema, error) {
	if table == "" {
		return Schema{}, fmt.Errorf("schema table is required")
	}
	fm, err := fieldMap(fields)
	if err != nil {
		return Schema{}, err
	}
	if _, ok := fm["id"]; !ok {
		return Schema{}, fmt.Errorf("schema %q has no id field", table)
	}
	rm := make(map[string]Relation, len(relations))
	for _, r := range relations {
		if _, dup := fm[r.Name]; dup {
			return Schema{}, fmt.Errorf("relation %q collides with a field", r.Name)
		}
		if _, dup := rm[r.Name]; dup {
			return Schema{}, fmt.Errorf("duplicate relation %q", r.Name)
		}
		rm[r.Name] = r
	}
	return Schema{table: table, fields: fm, relations: rm}, nil
}

// MustNew is New that panics on error. Intended for package-level schemas.
func MustNew(table string, fields []Field, relations ...Relation) Schema {
	s, err := New(table, fields, relations...)
	if err != nil {
		panic(err)
	}
	return s
}

// NewRelation validates and creates a Relation.
func NewRelation(name, table, foreignKey string, fields []Field) (Relation, error) {
	if !namePattern.MatchString(name) {
		return Relation{}, fmt.Errorf("invalid relation name %q", name)
	}
	if table == "" || foreignKey == "" {
		return Relation{}, fmt.Errorf("relation %q requires table and foreign key", name)
	}
	fm, err := fieldMap(fields)
	if err != nil {
		return Relation{}, err
	}
	return Relation{Name: name, Table: table, ForeignKey: foreignKey, fields: fm}, nil
}

// MustRelation is NewRelation that panics on error.
func MustRelation(name, table, foreignKey string, fields []Field) Relation {
	r, err := NewRelation(name, table, foreignKey, fields)
	if err != nil {
		panic(err)
	}
	return r
}

func fieldMap(fields []Field) (map[string]Field, error) {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		if !namePattern.MatchString(f.Name) {
			return nil, fmt.Errorf("invalid field name %q", f.Name)
		}
		switch f.Kind {
		case String, Number, Bool, Time:
		default:
			return nil, fmt.Errorf("invalid kind %q for field %q", f.Kind, f.Name)
		}
		if f.Column == "" {
			return nil, fmt.Errorf("field %q has no column", f.Name)
		}
		if _, dup := m[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		m[f.Name] = f
	}
	return m, nil
}

// Table returns the root relational table.
func (s Schema) Table() string { return s.table }

// Field looks up a root field by logical name.
func (s Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Relation looks up a relation by name.
func (s Schema) Relation(name string) (Relation, bool) {
	r, ok := s.relations[name]
	return r, ok
}

// Fields returns root fields sorted by name.
func (s Schema) Fields() []Field {
	out := make([]Field, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsZero reports whether the schema was never initialized.
func (s Schema) IsZero() bool { return s.fields == nil }
