package catalog

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/shopsearch/internal/domain/category"
	"github.com/kailas-cloud/shopsearch/internal/domain/product"
)

const (
	fieldName        = "name"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldCategory    = "category"
	fieldCategoryTag = "category_tag"
	fieldImageURL    = "image_url"
	fieldOwner       = "owner"
	fieldInStock     = "in_stock"
	fieldCreatedAt   = "created_at"
)

// buildHashFields flattens a Product for HSET. category keeps the
// original label; category_tag is the normalized form the index filters on.
func buildHashFields(p *product.Product) map[string]string {
	inStock := "0"
	if p.InStock() {
		inStock = "1"
	}
	return map[string]string{
		fieldName:        p.Name(),
		fieldDescription: p.Description(),
		fieldPrice:       strconv.FormatFloat(p.Price(), 'f', -1, 64),
		fieldCategory:    p.Category(),
		fieldCategoryTag: category.Normalize(p.Category()),
		fieldImageURL:    p.ImageURL(),
		fieldOwner:       p.OwnerID(),
		fieldInStock:     inStock,
		fieldCreatedAt:   strconv.FormatInt(p.CreatedAt().Unix(), 10),
	}
}

// parseHashFields rebuilds a Product from a hash. A record without
// name or owner, or with an unparsable price, is malformed.
func parseHashFields(id string, m map[string]string) (product.Product, error) {
	if id == "" || m[fieldName] == "" || m[fieldOwner] == "" {
		return product.Product{}, fmt.Errorf("malformed product record %q", id)
	}

	var price float64
	if s := m[fieldPrice]; s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return product.Product{}, fmt.Errorf("malformed price %q: %w", s, err)
		}
		price = v
	}

	var createdAt time.Time
	if s := m[fieldCreatedAt]; s != "" {
		if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
			createdAt = time.Unix(sec, 0).UTC()
		}
	}

	return product.Reconstruct(id, m[fieldOwner], product.Attrs{
		Name:        m[fieldName],
		Description: m[fieldDescription],
		Price:       price,
		Category:    m[fieldCategory],
		ImageURL:    m[fieldImageURL],
		InStock:     m[fieldInStock] == "1",
	}, createdAt), nil
}
