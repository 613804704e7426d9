package field

import "testing"

func venueFields() []Field {
	return []Field{
		{Name: "id", Kind: String, Column: "id", IndexField: "id"},
		{Name: "name", Kind: String, Column: "name", Sortable: true},
		{Name: "price", Kind: Number, Column: "price", IndexField: "price", Sortable: true},
		{Name: "published", Kind: Bool, Column: "published", IndexField: "published"},
	}
}

func TestNew_Valid(t *testing.T) {
	courts := MustRelation("courts", "courts", "venue_id", []Field{
		{Name: "category", Kind: String, Column: "category", IndexField: "courtCategory"},
	})
	s, err := New("venues", venueFields(), courts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Table() != "venues" {
		t.Errorf("expected table venues, got %q", s.Table())
	}
	f, ok := s.Field("price")
	if !ok || !f.Rangeable() || !f.Indexed() {
		t.Errorf("price: got %+v ok=%v", f, ok)
	}
	if _, ok := s.Field("unknown"); ok {
		t.Error("unknown field should not resolve")
	}
	r, ok := s.Relation("courts")
	if !ok {
		t.Fatal("courts relation missing")
	}
	if cf, ok := r.Field("category"); !ok || cf.IndexField != "courtCategory" {
		t.Errorf("courts.category: got %+v ok=%v", cf, ok)
	}
	fields := s.Fields()
	if len(fields) != 4 || fields[0].Name != "id" || fields[3].Name != "published" {
		t.Errorf("Fields() not sorted: %+v", fields)
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		table  string
		fields []Field
	}{
		{"empty table", "", venueFields()},
		{"no id", "venues", []Field{{Name: "name", Kind: String, Column: "name"}}},
		{"bad kind", "venues", append(venueFields(), Field{Name: "x", Kind: "blob", Column: "x"})},
		{"bad name", "venues", append(venueFields(), Field{Name: "1x", Kind: String, Column: "x"})},
		{"no column", "venues", append(venueFields(), Field{Name: "x", Kind: String})},
		{"duplicate", "venues", append(venueFields(), Field{Name: "name", Kind: String, Column: "name"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.table, tt.fields); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_RelationCollision(t *testing.T) {
	r := MustRelation("name", "courts", "venue_id", nil)
	if _, err := New("venues", venueFields(), r); err == nil {
		t.Error("expected collision error")
	}
}

func TestNewRelation_Invalid(t *testing.T) {
	if _, err := NewRelation("courts", "", "venue_id", nil); err == nil {
		t.Error("expected error for missing table")
	}
	if _, err := NewRelation("", "courts", "venue_id", nil); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestSchema_IsZero(t *testing.T) {
	var s Schema
	if !s.IsZero() {
		t.Error("zero schema should report IsZero")
	}
	if MustNew("venues", venueFields()).IsZero() {
		t.Error("initialized schema should not be zero")
	}
}
