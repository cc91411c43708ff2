package filter

import (
	"fmt"
	"strconv"

	"github.com/kailas-cloud/cinemuse/internal/domain/media"
)

// Indexed field names shared by the vector index schema and its filters.
const (
	FieldType         = "type"
	FieldReleaseYear  = "release_year"
	FieldModelVersion = "model_version"
)

// MaxConditions is the maximum number of conditions in one expression.
const MaxConditions = 16

// Expression is a conjunction of conditions applied before vector ranking.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must ...Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	return Expression{must: must}, nil
}

// Must returns the conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Condition is a single filter clause: either a tag match or a numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Range is an inclusive numeric range; a nil bound is open.
type Range struct {
	gte *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range. At least one bound is required.
func NewRangeFilter(gte, lte *float64) (Range, error) {
	if gte == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gte != nil && lte != nil && *gte > *lte {
		return Range{}, fmt.Errorf("lower bound %v exceeds upper bound %v", *gte, *lte)
	}
	return Range{gte: gte, lte: lte}, nil
}

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// MediaQuery describes the metadata constraints of a vector query.
// Zero values mean "no constraint"; ModelVersion is always applied when set.
type MediaQuery struct {
	ModelVersion string
	Type         media.Type
	MinYear      int
	MaxYear      int
}

// Build converts the query into an expression over the indexed fields.
func (q MediaQuery) Build() (Expression, error) {
	var conds []Condition

	if q.ModelVersion != "" {
		c, err := NewMatch(FieldModelVersion, q.ModelVersion)
		if err != nil {
			return Expression{}, err
		}
		conds = append(conds, c)
	}
	if q.Type != "" {
		c, err := NewMatch(FieldType, string(q.Type))
		if err != nil {
			return Expression{}, err
		}
		conds = append(conds, c)
	}
	if q.MinYear > 0 || q.MaxYear > 0 {
		var gte, lte *float64
		if q.MinYear > 0 {
			v := float64(q.MinYear)
			gte = &v
		}
		if q.MaxYear > 0 {
			v := float64(q.MaxYear)
			lte = &v
		}
		r, err := NewRangeFilter(gte, lte)
		if err != nil {
			return Expression{}, fmt.Errorf("release year: %w", err)
		}
		c, err := NewRange(FieldReleaseYear, r)
		if err != nil {
			return Expression{}, err
		}
		conds = append(conds, c)
	}

	return NewExpression(conds...)
}

// String renders the query for logs.
func (q MediaQuery) String() string {
	return "model=" + q.ModelVersion + " type=" + string(q.Type) +
		" years=" + strconv.Itoa(q.MinYear) + ".." + strconv.Itoa(q.MaxYear)
}
