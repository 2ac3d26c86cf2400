package product

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxNameLength bounds product names.
const MaxNameLength = 512

// MaxDescriptionLength bounds product descriptions in bytes.
const MaxDescriptionLength = 16384

// Product is the catalog aggregate (immutable value object).
type Product struct {
	id          string
	name        string
	description string
	price       float64
	category    string
	imageURL    string
	ownerID     string
	inStock     bool
	createdAt   time.Time
}

// Attrs are the caller-supplied product fields for New.
type Attrs struct {
	Name        string
	Description string
	Price       float64
	Category    string
	ImageURL    string
	InStock     bool
}

// New validates and creates a Product.
// Name is required, price must be finite and non-negative, owner is required.
func New(id, ownerID string, a Attrs, createdAt time.Time) (Product, error) {
	if id == "" {
		return Product{}, fmt.Errorf("product ID is required")
	}
	if ownerID == "" {
		return Product{}, fmt.Errorf("owner is required")
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return Product{}, fmt.Errorf("name is required")
	}
	if len(name) > MaxNameLength {
		return Product{}, fmt.Errorf("name too long (max %d)", MaxNameLength)
	}
	if len(a.Description) > MaxDescriptionLength {
		return Product{}, fmt.Errorf("description too large (max %d bytes)", MaxDescriptionLength)
	}
	if math.IsNaN(a.Price) || math.IsInf(a.Price, 0) || a.Price < 0 {
		return Product{}, fmt.Errorf("invalid price %v", a.Price)
	}

	return Product{
		id:          id,
		name:        name,
		description: strings.TrimSpace(a.Description),
		price:       a.Price,
		category:    strings.TrimSpace(a.Category),
		imageURL:    strings.TrimSpace(a.ImageURL),
		ownerID:     ownerID,
		inStock:     a.InStock,
		createdAt:   createdAt.UTC(),
	}, nil
}

// Reconstruct creates a Product without validation (storage hydration).
func Reconstruct(
	id, ownerID string, a Attrs, createdAt time.Time,
) Product {
	return Product{
		id: id, name: a.Name, description: a.Description, price: a.Price,
		category: a.Category, imageURL: a.ImageURL, ownerID: ownerID,
		inStock: a.InStock, createdAt: createdAt,
	}
}

func (p *Product) ID() string           { return p.id }
func (p *Product) Name() string         { return p.name }
func (p *Product) Description() string  { return p.description }
func (p *Product) Price() float64       { return p.price }
func (p *Product) Category() string     { return p.category }
func (p *Product) ImageURL() string     { return p.imageURL }
func (p *Product) OwnerID() string      { return p.ownerID }
func (p *Product) InStock() bool        { return p.inStock }
func (p *Product) CreatedAt() time.Time { return p.createdAt }

// EmbeddingText is the text embedded for a product at ingestion.
func (p *Product) EmbeddingText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.name, p.description, p.category} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ". ")
}
