package datavalues

import (
	"fmt"
	"strings"

	"fuse-query-go/errors"
)

type DataValueOperator int

const (
	// logical
	And DataValueOperator = iota + 1
	Or
	Xor
	Not
	// comparison
	Eq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	// arithmetic
	Plus
	Minus
	Mul
	Div
)

var operatorSymbols = map[DataValueOperator]string{
	And:   "AND",
	Or:    "OR",
	Xor:   "XOR",
	Not:   "NOT",
	Eq:    "=",
	NotEq: "<>",
	Lt:    "<",
	LtEq:  "<=",
	Gt:    ">",
	GtEq:  ">=",
	Plus:  "+",
	Minus: "-",
	Mul:   "*",
	Div:   "/",
}

func (op DataValueOperator) String() string {
	if s, ok := operatorSymbols[op]; ok {
		return s
	}
	return fmt.Sprintf("DataValueOperator(%d)", int(op))
}

func (op DataValueOperator) IsLogic() bool {
	return op >= And && op <= Not
}

func (op DataValueOperator) IsComparison() bool {
	return op >= Eq && op <= GtEq
}

func (op DataValueOperator) IsArithmetic() bool {
	return op >= Plus && op <= Div
}

func (op DataValueOperator) IsUnary() bool {
	return op == Not
}

// Precedence orders operators for display; higher binds tighter.
func (op DataValueOperator) Precedence() int {
	switch op {
	case Or:
		return 1
	case Xor:
		return 2
	case And:
		return 3
	case Not:
		return 4
	case Eq, NotEq, Lt, LtEq, Gt, GtEq:
		return 5
	case Plus, Minus:
		return 6
	case Mul, Div:
		return 7
	}
	return 0
}

// OperatorFromSymbol accepts the canonical symbols, case-insensitively, plus
// "!=" and "==" aliases.
func OperatorFromSymbol(sym string) (DataValueOperator, error) {
	s := strings.ToUpper(strings.TrimSpace(sym))
	switch s {
	case "!=":
		return NotEq, nil
	case "==":
		return Eq, nil
	}
	for op, name := range operatorSymbols {
		if name == s {
			return op, nil
		}
	}
	return 0, errors.ErrBadArguments("unknown operator %q", sym)
}
