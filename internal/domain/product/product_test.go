package product

import (
	"math"
	"strings"
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNew_Valid(t *testing.T) {
	p, err := New("p1", "owner-a", Attrs{
		Name:        "  Gold Ring ",
		Description: "Simple 18k gold band",
		Price:       199.5,
		Category:    "Jewellery",
		InStock:     true,
	}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "Gold Ring" {
		t.Errorf("Name() = %q", p.Name())
	}
	if p.Category() != "Jewellery" {
		t.Errorf("Category() = %q", p.Category())
	}
	if p.OwnerID() != "owner-a" || p.Price() != 199.5 || !p.InStock() {
		t.Errorf("unexpected product %+v", p)
	}
	if !p.CreatedAt().Equal(now) {
		t.Errorf("CreatedAt() = %v", p.CreatedAt())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		owner string
		attrs Attrs
		want  string
	}{
		{"no id", "", "o", Attrs{Name: "x"}, "ID"},
		{"no owner", "p", "", Attrs{Name: "x"}, "owner"},
		{"blank name", "p", "o", Attrs{Name: "   "}, "name"},
		{"negative price", "p", "o", Attrs{Name: "x", Price: -1}, "price"},
		{"nan price", "p", "o", Attrs{Name: "x", Price: math.NaN()}, "price"},
		{"long name", "p", "o", Attrs{Name: strings.Repeat("a", MaxNameLength+1)}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.id, tt.owner, tt.attrs, now)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestNew_ZeroPriceAllowed(t *testing.T) {
	if _, err := New("p", "o", Attrs{Name: "Freebie"}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmbeddingText(t *testing.T) {
	p, _ := New("p", "o", Attrs{Name: "Gold Ring", Category: "jewelry"}, now)
	if got := p.EmbeddingText(); got != "Gold Ring. jewelry" {
		t.Errorf("EmbeddingText() = %q", got)
	}
}

func TestReconstruct_NoValidation(t *testing.T) {
	p := Reconstruct("p", "", Attrs{Price: -5}, time.Time{})
	if p.Price() != -5 {
		t.Errorf("Price() = %v", p.Price())
	}
}
