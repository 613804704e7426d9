package db

import (
	"strconv"
	"strings"
)

// IndexBuilder is a fluent builder for FT index definitions.
// As, Sortable and Weight modify the most recently added field.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{
		def: IndexDefinition{
			Name:        name,
			StorageType: StorageHash,
		},
	}
}

// OnJSON sets the index storage type to JSON.
func (b *IndexBuilder) OnJSON() *IndexBuilder {
	b.def.StorageType = StorageJSON
	return b
}

// Prefix adds key prefixes to the index.
func (b *IndexBuilder) Prefix(prefixes ...string) *IndexBuilder {
	b.def.Prefixes = append(b.def.Prefixes, prefixes...)
	return b
}

// Numeric adds a NUMERIC field to the index.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldNumeric})
}

// Tag adds a TAG field to the index.
func (b *IndexBuilder) Tag(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldTag})
}

// TagWithOpts adds a TAG field with custom separator and case sensitivity.
func (b *IndexBuilder) TagWithOpts(name, separator string, caseSensitive bool) *IndexBuilder {
	return b.add(IndexField{
		Name:             name,
		Type:             IndexFieldTag,
		TagSeparator:     separator,
		TagCaseSensitive: caseSensitive,
	})
}

// Text adds a TEXT field to the index.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldText})
}

// Geo adds a GEO field holding "lon,lat" strings.
func (b *IndexBuilder) Geo(name string) *IndexBuilder {
	return b.add(IndexField{Name: name, Type: IndexFieldGeo})
}

// As sets the query alias of the last field.
func (b *IndexBuilder) As(alias string) *IndexBuilder {
	if f := b.last(); f != nil {
		f.Alias = alias
	}
	return b
}

// Sortable marks the last field SORTABLE.
func (b *IndexBuilder) Sortable() *IndexBuilder {
	if f := b.last(); f != nil {
		f.Sortable = true
	}
	return b
}

// Weight sets the relevance weight of the last (TEXT) field.
func (b *IndexBuilder) Weight(w float64) *IndexBuilder {
	if f := b.last(); f != nil {
		f.Weight = w
	}
	return b
}

func (b *IndexBuilder) add(f IndexField) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

func (b *IndexBuilder) last() *IndexField {
	if len(b.def.Fields) == 0 {
		return nil
	}
	return &b.def.Fields[len(b.def.Fields)-1]
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	def := b.def
	def.Fields = append([]IndexField(nil), b.def.Fields...)
	return &def, nil
}

// MustBuild calls Build and panics on error.
func (b *IndexBuilder) MustBuild() *IndexDefinition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}
	return def
}

// Args renders the FT.CREATE arguments after the command name.
func (idx *IndexDefinition) Args() []string {
	args := []string{idx.Name}
	if idx.StorageType != "" {
		args = append(args, "ON", string(idx.StorageType))
	}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		args = append(args, f.Name)
		if f.Alias != "" {
			args = append(args, "AS", f.Alias)
		}
		switch f.Type {
		case IndexFieldTag:
			args = append(args, "TAG")
			if f.TagSeparator != "" {
				args = append(args, "SEPARATOR", f.TagSeparator)
			}
			if f.TagCaseSensitive {
				args = append(args, "CASESENSITIVE")
			}
		case IndexFieldNumeric:
			args = append(args, "NUMERIC")
		case IndexFieldText:
			args = append(args, "TEXT")
			if f.Weight > 0 {
				args = append(args, "WEIGHT", strconv.FormatFloat(f.Weight, 'f', -1, 64))
			}
		case IndexFieldGeo:
			args = append(args, "GEO")
		}
		if f.Sortable {
			args = append(args, "SORTABLE")
		}
	}
	return args
}

// String returns a debug representation resembling the FT.CREATE command.
func (idx *IndexDefinition) String() string {
	return "FT.CREATE " + strings.Join(idx.Args(), " ")
}
