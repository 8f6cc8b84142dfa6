package main

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// condition is a parsed --where flag.
type condition struct {
	field string
	op    string
	value any
}

// Word operators need surrounding spaces; symbolic ones are tried longest
// first so ">=" is not read as ">".
var (
	wordOps   = []string{"array-contains-any", "array-contains", "not-in", "in"}
	symbolOps = []string{">=", "<=", "!=", "==", ">", "<", "="}
)

// parseWhere reads expressions such as "age>=18", "name == Ana" or
// "tags array-contains go". Values are decoded as JSON when possible
// (numbers, booleans, null, lists, quoted strings), otherwise taken verbatim.
func parseWhere(expr string) (condition, error) {
	for _, op := range wordOps {
		if i := strings.Index(expr, " "+op+" "); i > 0 {
			return newCondition(expr[:i], op, expr[i+len(op)+2:])
		}
	}
	for _, op := range symbolOps {
		if i := strings.Index(expr, op); i > 0 {
			canonical := op
			if op == "=" {
				canonical = "=="
			}
			return newCondition(expr[:i], canonical, expr[i+len(op):])
		}
	}
	return condition{}, fmt.Errorf("invalid --where %q: expected <field><op><value>", expr)
}

func newCondition(field, op, raw string) (condition, error) {
	field = strings.TrimSpace(field)
	raw = strings.TrimSpace(raw)
	if field == "" || raw == "" {
		return condition{}, fmt.Errorf("invalid --where: empty field or value around %q", op)
	}
	return condition{field: field, op: op, value: parseValue(raw)}, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// parseOrder reads "field" or "field:direction".
func parseOrder(arg string) (field, direction string, err error) {
	field, direction, _ = strings.Cut(arg, ":")
	field = strings.TrimSpace(field)
	if field == "" {
		return "", "", fmt.Errorf("invalid --order %q: missing field", arg)
	}
	direction = strings.ToLower(strings.TrimSpace(direction))
	switch direction {
	case "", "asc", "desc":
		return field, direction, nil
	}
	return "", "", fmt.Errorf("invalid --order %q: direction must be asc or desc", arg)
}

// parseDocument decodes a JSON object argument.
func parseDocument(arg string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(arg), &doc); err != nil {
		return nil, fmt.Errorf("invalid document %q: %w", arg, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
