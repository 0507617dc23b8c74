package docstore

import (
	"fmt"
	"slices"
	"strings"
)

// Op is a filter operator.
type Op string

// Supported filter operators.
const (
	OpEqual            Op = "=="
	OpNotEqual         Op = "!="
	OpLess             Op = "<"
	OpLessEqual        Op = "<="
	OpGreater          Op = ">"
	OpGreaterEqual     Op = ">="
	OpArrayContains    Op = "array-contains"
	OpArrayContainsAny Op = "array-contains-any"
	OpIn               Op = "in"
	OpNotIn            Op = "not-in"
)

// maxDisjunction bounds the operand list of in, not-in and array-contains-any.
const maxDisjunction = 30

// DocumentID is the pseudo field path that orders or filters by document id.
const DocumentID = "__name__"

func (o Op) valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual,
		OpArrayContains, OpArrayContainsAny, OpIn, OpNotIn:
		return true
	}
	return false
}

func (o Op) inequality() bool {
	switch o {
	case OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpNotIn:
		return true
	}
	return false
}

// ParseOp converts an operator string, reporting whether it is supported.
func ParseOp(s string) (Op, bool) {
	o := Op(s)
	return o, o.valid()
}

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func (d Direction) reverse() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

// Filter is a single (field, operator, value) condition.
type Filter struct {
	Path  string
	Op    Op
	Value any
}

// Order sorts results by a field.
type Order struct {
	Path      string
	Direction Direction
}

// Query selects documents from one collection. Filters are AND-ed.
// Limit 0 means unbounded.
type Query struct {
	Collection string
	Filters    []Filter
	Orders     []Order
	Limit      int
}

// Where returns a copy of q with another filter.
func (q Query) Where(path string, op Op, value any) Query {
	q.Filters = append(slices.Clone(q.Filters), Filter{Path: path, Op: op, Value: value})
	return q
}

// OrderBy returns a copy of q with another ordering.
func (q Query) OrderBy(path string, dir Direction) Query {
	q.Orders = append(slices.Clone(q.Orders), Order{Path: path, Direction: dir})
	return q
}

// WithLimit returns a copy of q with a result limit.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.Collection)
	for _, f := range q.Filters {
		fmt.Fprintf(&b, " where %s %s %v", f.Path, f.Op, f.Value)
	}
	for _, o := range q.Orders {
		fmt.Fprintf(&b, " order %s %s", o.Path, o.Direction)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " limit %d", q.Limit)
	}
	return b.String()
}

// compiled is a validated query with normalized operands.
type compiled struct {
	Query
	ineqPath string
}

func compile(q Query) (*compiled, error) {
	if err := validateCollection(q.Collection); err != nil {
		return nil, err
	}
	if q.Limit < 0 {
		return nil, invalidQuery("limit must not be negative")
	}

	c := &compiled{Query: q}
	c.Filters = make([]Filter, len(q.Filters))
	arrayFilters := 0

	for i, f := range q.Filters {
		if !f.Op.valid() {
			return nil, invalidQuery("unsupported operator %q", f.Op)
		}
		if err := validatePath(f.Path); err != nil {
			return nil, err
		}

		v, err := normalizeValue(f.Value)
		if err != nil {
			return nil, invalidQuery("filter on %s: %v", f.Path, err)
		}
		switch f.Op {
		case OpIn, OpNotIn, OpArrayContainsAny:
			arr, ok := v.([]any)
			if !ok || len(arr) == 0 || len(arr) > maxDisjunction {
				return nil, invalidQuery("%s on %s needs 1 to %d values", f.Op, f.Path, maxDisjunction)
			}
		}
		if f.Op == OpArrayContains || f.Op == OpArrayContainsAny {
			arrayFilters++
		}
		if f.Op.inequality() {
			if c.ineqPath != "" && c.ineqPath != f.Path {
				return nil, invalidQuery("inequality filters on both %s and %s", c.ineqPath, f.Path)
			}
			c.ineqPath = f.Path
		}
		c.Filters[i] = Filter{Path: f.Path, Op: f.Op, Value: v}
	}

	if arrayFilters > 1 {
		return nil, invalidQuery("at most one array-contains or array-contains-any filter")
	}

	for _, o := range q.Orders {
		if err := validatePath(o.Path); err != nil {
			return nil, err
		}
		if o.Direction != Asc && o.Direction != Desc {
			return nil, invalidQuery("invalid direction %q on %s", o.Direction, o.Path)
		}
	}
	if c.ineqPath != "" && len(q.Orders) > 0 && q.Orders[0].Path != c.ineqPath {
		return nil, invalidQuery("first order must be on inequality field %s, not %s", c.ineqPath, q.Orders[0].Path)
	}
	return c, nil
}

// orders returns the effective orderings: explicit ones, or the implicit
// ascending order on the inequality field.
func (c *compiled) orders() []Order {
	if len(c.Orders) == 0 && c.ineqPath != "" {
		return []Order{{Path: c.ineqPath, Direction: Asc}}
	}
	return c.Orders
}

// matches reports whether a document satisfies every filter.
func (c *compiled) matches(doc Document) bool {
	for _, f := range c.Filters {
		if !matchFilter(doc, f) {
			return false
		}
	}
	for _, o := range c.orders() {
		if o.Path == DocumentID {
			continue
		}
		if _, ok := getPath(doc.Data, o.Path); !ok {
			return false
		}
	}
	return true
}

func fieldValue(doc Document, path string) (any, bool) {
	if path == DocumentID {
		return doc.ID, true
	}
	return getPath(doc.Data, path)
}

func matchFilter(doc Document, f Filter) bool {
	v, ok := fieldValue(doc, f.Path)
	if !ok {
		return false
	}
	switch f.Op {
	case OpEqual:
		return equalValues(v, f.Value)
	case OpNotEqual:
		return v != nil && !equalValues(v, f.Value)
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		if classOf(v) != classOf(f.Value) {
			return false
		}
		c := compareValues(v, f.Value)
		switch f.Op {
		case OpLess:
			return c < 0
		case OpLessEqual:
			return c <= 0
		case OpGreater:
			return c > 0
		default:
			return c >= 0
		}
	case OpArrayContains:
		arr, ok := v.([]any)
		return ok && containsValue(arr, f.Value)
	case OpArrayContainsAny:
		arr, ok := v.([]any)
		if !ok {
			return false
		}
		for _, want := range f.Value.([]any) {
			if containsValue(arr, want) {
				return true
			}
		}
		return false
	case OpIn:
		return containsValue(f.Value.([]any), v)
	case OpNotIn:
		return v != nil && !containsValue(f.Value.([]any), v)
	}
	return false
}

// sortDocs orders docs by the effective orderings, then by id ascending.
func (c *compiled) sortDocs(docs []Document) {
	orders := c.orders()
	slices.SortStableFunc(docs, func(a, b Document) int {
		for _, o := range orders {
			av, _ := fieldValue(a, o.Path)
			bv, _ := fieldValue(b, o.Path)
			r := compareValues(av, bv)
			if o.Direction == Desc {
				r = -r
			}
			if r != 0 {
				return r
			}
		}
		return strings.Compare(a.ID, b.ID)
	})
}
