package expr

import (
	"errors"
	"strconv"
)

// SyntaxError reports a parse failure at a byte offset.
type SyntaxError struct {
	Source string
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return "syntax error at " + strconv.Itoa(e.Offset) + ": " + e.Msg
}

// UnsupportedError occurs when the source uses a construct outside
// the dialect's capabilities.
type UnsupportedError struct {
	Dialect string
	What    string
}

func (e *UnsupportedError) Error() string {
	return e.What + " not supported by dialect " + strconv.Quote(e.Dialect)
}

// EvalError aborts the evaluation of one relation.
type EvalError struct {
	Node Node
	Msg  string
}

func (e *EvalError) Error() string {
	if e.Node == nil {
		return e.Msg
	}
	return e.Msg + " in " + e.Node.String()
}

func evalErr(n Node, msg string) error {
	return &EvalError{Node: n, Msg: msg}
}

// ErrNoTable occurs when a table call names a table the environment
// does not know.
var ErrNoTable = errors.New("unknown value combination table")
