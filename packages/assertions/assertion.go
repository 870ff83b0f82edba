package assertions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrInvalidAssertion = errors.New("invalid assertion")

type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpMatches
	OpExists
	OpNotExists
	OpLength
	OpIncludes
	OpIn
	OpType
	OpSchema
)

var operatorNames = map[Operator]string{
	OpEquals:         "==",
	OpNotEquals:      "!=",
	OpGreaterThan:    ">",
	OpGreaterOrEqual: ">=",
	OpLessThan:       "<",
	OpLessOrEqual:    "<=",
	OpContains:       "contains",
	OpNotContains:    "!contains",
	OpStartsWith:     "startsWith",
	OpEndsWith:       "endsWith",
	OpMatches:        "matches",
	OpExists:         "exists",
	OpNotExists:      "!exists",
	OpLength:         "length",
	OpIncludes:       "includes",
	OpIn:             "in",
	OpType:           "type",
	OpSchema:         "schema",
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operatorNames)+2)
	for op, name := range operatorNames {
		m[name] = op
	}
	m["equals"] = OpEquals
	m["notEquals"] = OpNotEquals
	return m
}()

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// ParseOperator returns the operator named s.
func ParseOperator(s string) (Operator, bool) {
	op, ok := operatorsByName[s]
	return op, ok
}

// Assertion checks one subject of a call: "status", "header <Name>",
// "body", "body.<path>", "jsonpath <path>", an envelope subject ("hasError",
// "decodedBy", "error", "error.<field>") or a bare body path.
type Assertion struct {
	Subject  string
	Operator Operator
	Expected any
}

// Parse reads "<subject> <operator> [<expected>]", for example
// `status == 201`, `header Content-Type contains json` or `body.id exists`.
// The expected value is read as JSON when it is valid JSON and kept as a
// plain string otherwise.
func Parse(expr string) (Assertion, error) {
	fields := strings.Fields(expr)
	for i := 1; i < len(fields); i++ {
		op, ok := ParseOperator(fields[i])
		if !ok {
			continue
		}
		a := Assertion{
			Subject:  strings.Join(fields[:i], " "),
			Operator: op,
		}
		rest := strings.TrimSpace(strings.Join(fields[i+1:], " "))
		if rest == "" && op != OpExists && op != OpNotExists {
			return Assertion{}, fmt.Errorf("%w: %q needs an expected value", ErrInvalidAssertion, expr)
		}
		if rest != "" {
			a.Expected = parseValue(rest)
		}
		return a, nil
	}
	return Assertion{}, fmt.Errorf("%w: no operator in %q", ErrInvalidAssertion, expr)
}

func parseValue(s string) any {
	if gjson.Valid(s) {
		return gjson.Parse(s).Value()
	}
	return s
}
