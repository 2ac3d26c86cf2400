package db

import (
	"strings"
	"testing"
)

func TestIndexBuilder_ProductSchema(t *testing.T) {
	idx := NewIndex("shop-products").
		Prefix("shop:product:").
		Tag("owner").
		Tag("category").
		Text("name", 2).
		Numeric("price").Sortable().
		MustBuild()

	if idx.Name != "shop-products" {
		t.Errorf("name = %q", idx.Name)
	}
	if len(idx.Prefixes) != 1 || idx.Prefixes[0] != "shop:product:" {
		t.Errorf("prefixes = %v", idx.Prefixes)
	}
	if len(idx.Fields) != 4 {
		t.Fatalf("fields count = %d, want 4", len(idx.Fields))
	}
	if idx.Fields[2].Type != IndexFieldText || idx.Fields[2].Weight != 2 {
		t.Errorf("field[2] = %+v, want weighted TEXT", idx.Fields[2])
	}
	if !idx.Fields[3].Sortable || idx.Fields[2].Sortable {
		t.Error("Sortable should mark only the field it follows")
	}
}

func TestIndexBuilder_Vector(t *testing.T) {
	idx := NewIndex("points").
		Tag("owner").
		Vector("vector", VectorParams{Dim: 512, Distance: DistanceCosine, M: 16, EFConstruct: 200}).
		MustBuild()

	v := idx.Fields[1].Vector
	if v == nil || v.Dim != 512 || v.M != 16 || v.EFConstruct != 200 {
		t.Errorf("vector params = %+v", v)
	}
}

func TestIndexBuilder_BuildCopiesFields(t *testing.T) {
	b := NewIndex("idx").Tag("owner")
	def := b.MustBuild()
	b.Numeric("price")
	if len(def.Fields) != 1 {
		t.Errorf("built definition changed after Build: %d fields", len(def.Fields))
	}
}

func TestIndexBuilder_Errors(t *testing.T) {
	tests := []struct {
		name string
		b    *IndexBuilder
		want string
	}{
		{"no name", NewIndex("").Tag("x"), "name is required"},
		{"bad name", NewIndex("a b").Tag("x"), "invalid characters"},
		{"no fields", NewIndex("idx"), "at least one field"},
		{"dup", NewIndex("idx").Tag("x").Numeric("x"), "duplicate"},
		{"zero dim", NewIndex("idx").Vector("v", VectorParams{Algo: VectorFlat}), "DIM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.b.Build()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestIndexBuilder_MustBuildPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewIndex("").MustBuild()
}

func TestIsValidIdentifier(t *testing.T) {
	for s, want := range map[string]bool{
		"shopsearch:points": true,
		"idx-1_a":           true,
		"":                  false,
		"bad name":          false,
		"x/y":               false,
	} {
		if got := IsValidIdentifier(s); got != want {
			t.Errorf("IsValidIdentifier(%q) = %v, want %v", s, got, want)
		}
	}
}
