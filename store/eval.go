package store

import (
	"fmt"
	"slices"
)

// evaluate applies the query to a collection listing: filters, ordering
// (OrderBy fields, then id), cursors, offset and limit, in that order.
func (q Query) evaluate(docs []Document) ([]Document, error) {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if q.matches(doc) && q.hasOrderFields(doc) {
			out = append(out, doc)
		}
	}

	dirs := q.keyDirections()
	slices.SortStableFunc(out, func(a, b Document) int {
		return compareKeys(q.sortKey(a), q.sortKey(b), dirs)
	})

	if q.startAfter != nil {
		key, err := q.cursorKey(q.startAfter)
		if err != nil {
			return nil, err
		}
		out = slices.DeleteFunc(out, func(d Document) bool {
			return compareKeys(q.sortKey(d)[:len(key)], key, dirs) <= 0
		})
	}
	if q.endBefore != nil {
		key, err := q.cursorKey(q.endBefore)
		if err != nil {
			return nil, err
		}
		out = slices.DeleteFunc(out, func(d Document) bool {
			return compareKeys(q.sortKey(d)[:len(key)], key, dirs) >= 0
		})
	}

	if q.offset > 0 {
		out = out[min(q.offset, len(out)):]
	}
	if q.limit > 0 && len(out) > q.limit {
		if q.limitToLast {
			out = out[len(out)-q.limit:]
		} else {
			out = out[:q.limit]
		}
	}
	return out, nil
}

func (q Query) matches(doc Document) bool {
	for _, f := range q.filters {
		if !f.match(doc) {
			return false
		}
	}
	return true
}

func (q Query) hasOrderFields(doc Document) bool {
	for _, o := range q.orders {
		if _, ok := fieldValue(doc, o.path); !ok {
			return false
		}
	}
	return true
}

// sortKey is the document's position: its OrderBy values followed by its id.
func (q Query) sortKey(doc Document) []any {
	key := make([]any, 0, len(q.orders)+1)
	for _, o := range q.orders {
		v, _ := fieldValue(doc, o.path)
		key = append(key, v)
	}
	return append(key, doc.ID)
}

// keyDirections matches sortKey; the id tiebreak follows the last OrderBy.
func (q Query) keyDirections() []Direction {
	dirs := make([]Direction, 0, len(q.orders)+1)
	last := Asc
	for _, o := range q.orders {
		dirs = append(dirs, o.dir)
		last = o.dir
	}
	return append(dirs, last)
}

func (q Query) cursorKey(c *cursor) ([]any, error) {
	if c.snap != nil {
		doc := Document{ID: c.snap.ID, Fields: c.snap.fields}
		if !q.hasOrderFields(doc) {
			return nil, fmt.Errorf("%w: cursor document %s lacks an order by field", ErrInvalidQuery, c.snap.ID)
		}
		return q.sortKey(doc), nil
	}
	if len(c.values) > len(q.orders)+1 {
		return nil, fmt.Errorf("%w: %d cursor values for %d order by clauses", ErrInvalidQuery, len(c.values), len(q.orders))
	}
	return c.values, nil
}

func compareKeys(a, b []any, dirs []Direction) int {
	for i := range min(len(a), len(b)) {
		c := compareValues(a[i], b[i])
		if dirs[i] == Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func fieldValue(doc Document, path string) (any, bool) {
	if path == DocumentID {
		return doc.ID, true
	}
	return getPath(doc.Fields, path)
}

func (f filter) match(doc Document) bool {
	v, ok := fieldValue(doc, f.path)
	if !ok {
		return false
	}

	switch f.op {
	case OpEqual:
		return equalValues(v, f.value)
	case OpNotEqual:
		return !equalValues(v, f.value)
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		// Range filters only match values of the same kind.
		if rankOf(v) != rankOf(f.value) {
			return false
		}
		c := compareValues(v, f.value)
		switch f.op {
		case OpLess:
			return c < 0
		case OpLessEqual:
			return c <= 0
		case OpGreater:
			return c > 0
		default:
			return c >= 0
		}
	case OpIn:
		list, _ := toSlice(f.value)
		return containsValue(list, v)
	case OpNotIn:
		list, _ := toSlice(f.value)
		return !containsValue(list, v)
	case OpArrayContains:
		arr, isArr := toSlice(v)
		return isArr && containsValue(arr, f.value)
	case OpArrayContainsAny:
		arr, isArr := toSlice(v)
		if !isArr {
			return false
		}
		list, _ := toSlice(f.value)
		for _, want := range list {
			if containsValue(arr, want) {
				return true
			}
		}
	}
	return false
}

func containsValue(list []any, v any) bool {
	return slices.ContainsFunc(list, func(e any) bool { return equalValues(e, v) })
}
