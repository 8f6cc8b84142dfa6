// Package query provides the fluent search builder handed out by a model.
// A Query only accumulates parameters; Execute translates them onto a store
// query in a fixed order and formats the results.
//
//	adults, err := users.Find().
//		Where("age", ">=", 18).
//		OrderBy("name", "asc").
//		Limit(10).
//		Execute(ctx)
package query

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/beyondbrewing/brewery-odm/pkg/logger"
	"github.com/beyondbrewing/brewery-odm/record"
	"github.com/beyondbrewing/brewery-odm/store"
)

// Condition is one accumulated filter.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// Query is an immutable search builder: each method returns a new Query with
// one parameter changed. Zero values mean "not set" and are skipped when the
// query is translated.
type Query struct {
	coll   *store.CollectionRef
	logger logger.Logger

	conditions  []Condition
	orderField  string
	orderDir    string
	limit       int
	limitToLast int
	startAfter  []any
	endBefore   []any
	offset      int
}

// New returns an empty Query over coll. Logging goes to log, or nowhere when
// log is nil.
func New(coll *store.CollectionRef, log logger.Logger) Query {
	if log == nil {
		log = logger.Nop()
	}
	return Query{coll: coll, logger: log, orderDir: "asc"}
}

// Where appends a filter condition. Conditions are applied in insertion order
// and must all hold.
func (q Query) Where(field, operator string, value any) Query {
	q.conditions = append(slices.Clip(q.conditions), Condition{Field: field, Operator: operator, Value: value})
	return q
}

// OrderBy sets the single sort field, replacing any earlier one. Direction is
// "asc" or "desc"; empty means "asc".
func (q Query) OrderBy(field, direction string) Query {
	if direction == "" {
		direction = "asc"
	}
	q.orderField, q.orderDir = field, direction
	return q
}

// Limit caps the number of results taken from the start.
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

// LimitToLast caps the number of results taken from the end. Requires
// OrderBy.
func (q Query) LimitToLast(n int) Query {
	q.limitToLast = n
	return q
}

// StartAfter begins results after a cursor: a *store.DocumentSnapshot, a
// record.Record previously returned by a query, or raw order-by values.
// A record is positioned by its "id" key, so records whose stored fields
// shadow the document id need a snapshot cursor instead.
func (q Query) StartAfter(cursor ...any) Query {
	q.startAfter = slices.Clone(cursor)
	return q
}

// EndBefore ends results before a cursor. See StartAfter.
func (q Query) EndBefore(cursor ...any) Query {
	q.endBefore = slices.Clone(cursor)
	return q
}

// Offset skips the first n results.
func (q Query) Offset(n int) Query {
	q.offset = n
	return q
}

// Conditions returns a copy of the accumulated filters.
func (q Query) Conditions() []Condition {
	return slices.Clone(q.conditions)
}

// Build translates the accumulated parameters onto a store query in the fixed
// order: conditions, orderBy, limit, limitToLast, startAfter, endBefore,
// offset. Unset parameters are skipped.
func (q Query) Build() (store.Query, error) {
	if q.coll == nil {
		return store.Query{}, fmt.Errorf("query: no collection")
	}

	sq := q.coll.Query()
	for _, c := range q.conditions {
		sq = sq.Where(c.Field, c.Operator, c.Value)
	}
	if q.orderField != "" {
		dir, err := store.ParseDirection(q.orderDir)
		if err != nil {
			return store.Query{}, err
		}
		sq = sq.OrderBy(q.orderField, dir)
	}
	if q.limit != 0 {
		sq = sq.Limit(q.limit)
	}
	if q.limitToLast != 0 {
		sq = sq.LimitToLast(q.limitToLast)
	}
	if len(q.startAfter) > 0 {
		sq = sq.StartAfter(q.cursorValues(q.startAfter)...)
	}
	if len(q.endBefore) > 0 {
		sq = sq.EndBefore(q.cursorValues(q.endBefore)...)
	}
	if q.offset != 0 {
		sq = sq.Offset(q.offset)
	}
	return sq, nil
}

// cursorValues turns a formatted record into the position it occupies under
// the current ordering. Snapshots and raw values pass through.
func (q Query) cursorValues(cursor []any) []any {
	if len(cursor) != 1 {
		return cursor
	}
	r, ok := cursor[0].(record.Record)
	if !ok {
		return cursor
	}
	if q.orderField == "" || q.orderField == store.DocumentID {
		return []any{r.ID()}
	}
	v, _ := lookup(r, q.orderField)
	return []any{v, r.ID()}
}

// ExecuteRaw runs the query and returns the store snapshots unformatted.
func (q Query) ExecuteRaw(ctx context.Context) ([]*store.DocumentSnapshot, error) {
	sq, err := q.Build()
	if err != nil {
		return nil, err
	}
	snaps, err := sq.Get(ctx)
	if err != nil {
		return nil, err
	}
	q.logger.Debug("query executed",
		"collection", q.coll.ID,
		"conditions", len(q.conditions),
		"order_by", q.orderField,
		"results", len(snaps),
	)
	return snaps, nil
}

// Execute runs the query and returns the formatted records in order.
func (q Query) Execute(ctx context.Context) ([]record.Record, error) {
	snaps, err := q.ExecuteRaw(ctx)
	if err != nil {
		return nil, err
	}
	return record.FormatAll(snaps), nil
}

func lookup(r record.Record, path string) (any, bool) {
	var cur any = map[string]any(r)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}
