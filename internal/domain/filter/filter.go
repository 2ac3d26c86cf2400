package filter

import "fmt"

// MaxConditions caps each boolean group of an Expression.
const MaxConditions = 16

// Expression is a pre-filter for index queries: every Must condition holds,
// and at least one Should condition holds when any are present.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// New validates group sizes and builds an Expression.
func New(must, should, mustNot []Condition) (Expression, error) {
	for name, group := range map[string][]Condition{"must": must, "should": should, "must_not": mustNot} {
		if len(group) > MaxConditions {
			return Expression{}, fmt.Errorf("too many %s conditions (max %d)", name, MaxConditions)
		}
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the conditions that all have to hold.
func (e Expression) Must() []Condition { return e.must }

// Should returns the OR-group.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the excluded conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression filters nothing.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Condition is a tag match or a numeric range on one field.
type Condition struct {
	key   string
	match string
	rng   *Range
}

// Match builds an exact tag condition.
func Match(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: value}, nil
}

// AnyOf builds one tag condition per value, meant for a Should group.
// Empty values are skipped.
func AnyOf(key string, values ...string) ([]Condition, error) {
	out := make([]Condition, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		c, err := Match(key, v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Between builds a numeric range condition.
func Between(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rng: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Value returns the tag value of a match condition.
func (c Condition) Value() string { return c.match }

// Range returns the numeric range, nil for match conditions.
func (c Condition) Range() *Range { return c.rng }

// IsMatch reports whether c is a tag match.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether c is a numeric range.
func (c Condition) IsRange() bool { return c.rng != nil }

// Range is a numeric interval. A nil bound is open.
type Range struct {
	Min          *float64
	Max          *float64
	ExclusiveMin bool
	ExclusiveMax bool
}

// NewRange requires at least one bound and min <= max.
func NewRange(lo, hi *float64) (Range, error) {
	if lo == nil && hi == nil {
		return Range{}, fmt.Errorf("at least one range bound is required")
	}
	if lo != nil && hi != nil && *lo > *hi {
		return Range{}, fmt.Errorf("range min %g exceeds max %g", *lo, *hi)
	}
	return Range{Min: lo, Max: hi}, nil
}
