package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// DocumentID is a special field path that refers to the document id in
// filters and orderings.
const DocumentID = "__name__"

// Direction is the sort order of an OrderBy clause.
type Direction int

const (
	Asc Direction = iota + 1
	Desc
)

func (d Direction) String() string {
	switch d {
	case Asc:
		return "asc"
	case Desc:
		return "desc"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// ParseDirection accepts "asc" and "desc" in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "asc":
		return Asc, nil
	case "desc":
		return Desc, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidQuery, s)
	}
}

// Filter operators accepted by [Query.Where].
const (
	OpEqual            = "=="
	OpNotEqual         = "!="
	OpLess             = "<"
	OpLessEqual        = "<="
	OpGreater          = ">"
	OpGreaterEqual     = ">="
	OpIn               = "in"
	OpNotIn            = "not-in"
	OpArrayContains    = "array-contains"
	OpArrayContainsAny = "array-contains-any"
)

// Operators lists every supported filter operator.
func Operators() []string {
	return []string{
		OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual,
		OpIn, OpNotIn, OpArrayContains, OpArrayContainsAny,
	}
}

type filter struct {
	path  string
	op    string
	value any
}

type order struct {
	path string
	dir  Direction
}

type cursor struct {
	values []any
	snap   *DocumentSnapshot
}

// Query selects documents of one collection. Query is a value: every method
// returns a modified copy and leaves the receiver untouched, so a base query
// can be shared and extended freely. Argument errors are deferred to Get.
type Query struct {
	client     *Client
	collection string

	filters     []filter
	orders      []order
	limit       int
	limitToLast bool
	offset      int
	startAfter  *cursor
	endBefore   *cursor

	err error
}

func (q Query) fail(format string, args ...any) Query {
	if q.err == nil {
		q.err = fmt.Errorf("%w: "+format, append([]any{ErrInvalidQuery}, args...)...)
	}
	return q
}

// Where adds a filter on a dotted field path. All filters must match.
func (q Query) Where(path, op string, value any) Query {
	if !validPath(path) {
		return q.fail("field path %q", path)
	}
	if !slices.Contains(Operators(), op) {
		return q.fail("unknown operator %q", op)
	}
	switch op {
	case OpIn, OpNotIn, OpArrayContainsAny:
		if _, ok := toSlice(value); !ok {
			return q.fail("operator %q needs a list, got %T", op, value)
		}
	}
	q.filters = append(slices.Clip(q.filters), filter{path: path, op: op, value: value})
	return q
}

// OrderBy adds a sort key. Documents without the field are excluded from the
// results.
func (q Query) OrderBy(path string, dir Direction) Query {
	if !validPath(path) {
		return q.fail("field path %q", path)
	}
	if dir != Asc && dir != Desc {
		return q.fail("direction %v", dir)
	}
	q.orders = append(slices.Clip(q.orders), order{path: path, dir: dir})
	return q
}

// Limit returns at most n documents from the start of the result.
func (q Query) Limit(n int) Query {
	if n < 0 {
		return q.fail("negative limit %d", n)
	}
	q.limit, q.limitToLast = n, false
	return q
}

// LimitToLast returns at most n documents from the end of the result, in
// query order. The query must have at least one OrderBy clause.
func (q Query) LimitToLast(n int) Query {
	if n < 0 {
		return q.fail("negative limit %d", n)
	}
	q.limit, q.limitToLast = n, true
	return q
}

// Offset skips the first n documents.
func (q Query) Offset(n int) Query {
	if n < 0 {
		return q.fail("negative offset %d", n)
	}
	q.offset = n
	return q
}

// StartAfter starts the result after the given position: either a single
// *DocumentSnapshot, or values for the leading OrderBy fields (the document
// id when the query has no ordering).
func (q Query) StartAfter(snapshotOrValues ...any) Query {
	c, err := newCursor(snapshotOrValues)
	if err != nil {
		return q.fail("start after: %v", err)
	}
	q.startAfter = c
	return q
}

// EndBefore ends the result before the given position. See StartAfter.
func (q Query) EndBefore(snapshotOrValues ...any) Query {
	c, err := newCursor(snapshotOrValues)
	if err != nil {
		return q.fail("end before: %v", err)
	}
	q.endBefore = c
	return q
}

func newCursor(args []any) (*cursor, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no cursor values")
	}
	if len(args) == 1 {
		if snap, ok := args[0].(*DocumentSnapshot); ok {
			if !snap.Exists() {
				return nil, fmt.Errorf("snapshot of a missing document")
			}
			return &cursor{snap: snap}, nil
		}
	}
	return &cursor{values: slices.Clone(args)}, nil
}

// Get runs the query and returns the matching documents in order.
func (q Query) Get(ctx context.Context) ([]*DocumentSnapshot, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.limitToLast && len(q.orders) == 0 {
		return nil, fmt.Errorf("%w: limit to last requires an order by clause", ErrInvalidQuery)
	}
	if q.collection == "" || strings.Contains(q.collection, "/") {
		return nil, fmt.Errorf("%w: collection %q", ErrInvalidPath, q.collection)
	}

	docs, err := q.client.backend.List(ctx, q.collection)
	if err != nil {
		return nil, err
	}

	matched, err := q.evaluate(docs)
	if err != nil {
		return nil, err
	}

	coll := q.client.Collection(q.collection)
	snaps := make([]*DocumentSnapshot, len(matched))
	for i, doc := range matched {
		snaps[i] = &DocumentSnapshot{Ref: coll.Doc(doc.ID), ID: doc.ID, fields: doc.Fields, exists: true}
	}

	q.client.logger.Debug("query executed",
		"collection", q.collection,
		"filters", len(q.filters),
		"scanned", len(docs),
		"returned", len(snaps),
	)
	return snaps, nil
}
