package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	"github.com/kailas-cloud/shopsearch/internal/domain/category"
)

// Default bounds for the result limit.
const (
	DefaultLimit = 10
	MaxLimit     = 50
	// MaxTextLength bounds query text in bytes.
	MaxTextLength = 2048
	// MaxImageBytes bounds an uploaded query image.
	MaxImageBytes = 10 << 20
)

// SortOrder is the final ordering applied after truncation.
type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortNewest    SortOrder = "newest"
)

// ParseSort maps an API value to a SortOrder. Empty means relevance.
func ParseSort(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortRelevance:
		return SortRelevance, nil
	case SortPriceAsc:
		return SortPriceAsc, nil
	case SortPriceDesc:
		return SortPriceDesc, nil
	case SortNewest:
		return SortNewest, nil
	}
	return "", fmt.Errorf("%w: unknown sort %q", domain.ErrInvalidInput, s)
}

// Params are the raw inputs to New.
type Params struct {
	Owner        string
	Text         string
	Image        []byte
	CategoryHint string
	Limit        int
	MaxLimit     int
	MinScore     float64
	Sort         SortOrder
}

// Query is a validated, transient search request.
type Query struct {
	owner        string
	text         string
	image        []byte
	categoryHint string
	limit        int
	minScore     float64
	sort         SortOrder
}

// Validate checks everything but the owner scope, so callers can reject
// a malformed request before resolving the owner. At least one of text and
// image is required; a category hint alone is rejected.
func (p Params) Validate() error {
	text := strings.TrimSpace(p.Text)
	if text == "" && len(p.Image) == 0 {
		return domain.InvalidInputf("text or image is required")
	}
	if len(text) > MaxTextLength {
		return domain.InvalidInputf("text too long (max %d bytes)", MaxTextLength)
	}
	if len(p.Image) > MaxImageBytes {
		return domain.InvalidInputf("image too large (max %d bytes)", MaxImageBytes)
	}
	if p.Limit < 0 {
		return domain.InvalidInputf("limit must not be negative")
	}
	if p.MinScore < 0 || p.MinScore > 100 {
		return domain.InvalidInputf("min_score must be within [0,100]")
	}
	return nil
}

// New validates p and builds a Query. Limit 0 takes the default, larger
// values are clamped to MaxLimit.
func New(p Params) (Query, error) {
	if p.Owner == "" {
		return Query{}, domain.InvalidInputf("owner scope is required")
	}
	if err := p.Validate(); err != nil {
		return Query{}, err
	}
	text := strings.TrimSpace(p.Text)

	maxLimit := p.MaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	limit := p.Limit
	if limit == 0 {
		limit = min(DefaultLimit, maxLimit)
	}
	limit = min(limit, maxLimit)

	sort := p.Sort
	if sort == "" {
		sort = SortRelevance
	}

	return Query{
		owner:        p.Owner,
		text:         text,
		image:        p.Image,
		categoryHint: category.Normalize(p.CategoryHint),
		limit:        limit,
		minScore:     p.MinScore,
		sort:         sort,
	}, nil
}

func (q Query) Owner() string        { return q.owner }
func (q Query) Text() string         { return q.text }
func (q Query) Image() []byte        { return q.image }
func (q Query) HasText() bool        { return q.text != "" }
func (q Query) HasImage() bool       { return len(q.image) > 0 }
func (q Query) CategoryHint() string { return q.categoryHint }
func (q Query) Limit() int           { return q.limit }
func (q Query) MinScore() float64    { return q.minScore }
func (q Query) Sort() SortOrder      { return q.sort }

// WithText returns a copy with the text replaced. Used to resolve
// follow-ups like "show similar" against history.
func (q Query) WithText(text string) Query {
	q.text = strings.TrimSpace(text)
	return q
}
