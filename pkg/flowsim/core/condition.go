package core

import (
	"strconv"
	"strings"
)

// comparison operators in scan order: two-character operators first so
// ">=" is never read as ">" followed by "=".
var operators = []string{">=", "<=", "==", "!=", ">", "<"}

// Evaluate parses one comparison expression of the form
//
//	<identifier> <op> <literal>
//
// and evaluates it against the results map. The literal is a single or
// double quoted string or a bare number. Malformed author input must
// never abort a run, so anything unparseable evaluates to false.
//
// Equality and inequality compare case-insensitively as strings; a
// missing identifier reads as the empty string. The ordering operators
// parse both sides as numbers, a missing identifier reads as 0, and a
// side that fails to parse makes the whole expression false.
//
// Boolean connectives are deliberately unsupported; the grammar is one
// comparison per expression.
func Evaluate(expression string, results map[string]string) bool {
	identifier, op, literal, ok := splitComparison(expression)
	if !ok {
		return false
	}

	switch op {
	case "==", "!=":
		text, ok := literalText(literal)
		if !ok {
			return false
		}
		value := results[identifier] // missing reads as ""
		equal := strings.EqualFold(value, text)
		if op == "==" {
			return equal
		}
		return !equal
	default:
		text, ok := literalText(literal)
		if !ok {
			return false
		}
		right, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return false
		}
		raw, present := results[identifier]
		if !present || raw == "" {
			raw = "0"
		}
		left, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return false
		}
		switch op {
		case ">":
			return left > right
		case "<":
			return left < right
		case ">=":
			return left >= right
		case "<=":
			return left <= right
		}
	}
	return false
}

// splitComparison locates the operator and returns the trimmed sides.
// The identifier must be non-empty and must not contain a quote; a
// candidate whose match lands inside a quoted literal is rejected and
// the scan moves on to the next operator, so `note != "x>=y"` splits
// on the `!=`, not on the `>=` inside the literal.
func splitComparison(expression string) (identifier, op, literal string, ok bool) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return "", "", "", false
	}
	for _, candidate := range operators {
		idx := strings.Index(expr, candidate)
		if idx <= 0 {
			continue
		}
		identifier = strings.TrimSpace(expr[:idx])
		literal = strings.TrimSpace(expr[idx+len(candidate):])
		if identifier == "" || literal == "" {
			continue
		}
		if strings.ContainsAny(identifier, `'"`) {
			continue
		}
		return identifier, candidate, literal, true
	}
	return "", "", "", false
}

// literalText strips matching quotes from a string literal or accepts a
// bare number; anything else is outside the grammar.
func literalText(literal string) (string, bool) {
	if len(literal) >= 2 {
		first := literal[0]
		last := literal[len(literal)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return literal[1 : len(literal)-1], true
		}
	}
	if _, err := strconv.ParseFloat(literal, 64); err == nil {
		return literal, true
	}
	return "", false
}
