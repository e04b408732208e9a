package expr

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type builtin struct {
	min, max int // max < 0 means variadic
	str      bool
	fn       func([]Value) (Value, error)
}

var builtins = map[string]builtin{
	"abs":   {1, 1, false, num1(math.Abs)},
	"ceil":  {1, 1, false, num1(math.Ceil)},
	"floor": {1, 1, false, num1(math.Floor)},
	"trunc": {1, 1, false, num1(math.Trunc)},
	"sqrt": {1, 1, false, func(args []Value) (Value, error) {
		x, err := number(args[0])
		if err != nil {
			return Undef, err
		}
		if x < 0 {
			return Undef, errors.New("sqrt of a negative number")
		}
		return Num(math.Sqrt(x)), nil
	}},
	"pow": {2, 2, false, func(args []Value) (Value, error) {
		x, y, err := number2(args)
		if err != nil {
			return Undef, err
		}
		r := math.Pow(x, y)
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return Undef, errors.New("pow out of range")
		}
		return Num(r), nil
	}},
	"mod": {2, 2, false, func(args []Value) (Value, error) {
		x, y, err := number2(args)
		if err != nil {
			return Undef, err
		}
		if y == 0 {
			return Undef, errors.New("mod by zero")
		}
		return Num(math.Mod(x, y)), nil
	}},
	"round": {1, 2, false, func(args []Value) (Value, error) {
		x, err := number(args[0])
		if err != nil {
			return Undef, err
		}
		places := 0.0
		if len(args) == 2 {
			if places, err = number(args[1]); err != nil {
				return Undef, err
			}
			if places < 0 || places != math.Trunc(places) {
				return Undef, errors.New("round places must be a non-negative integer")
			}
		}
		return Num(RoundHalfAway(x, int(places))), nil
	}},
	"min": {1, -1, false, fold(math.Min)},
	"max": {1, -1, false, fold(math.Max)},
	"num": {1, 1, false, func(args []Value) (Value, error) {
		if args[0].Kind == KindNumber {
			return args[0], nil
		}
		s, err := text(args[0])
		if err != nil {
			return Undef, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return Undef, errors.New("not a number: " + strconv.Quote(s))
		}
		return Num(f), nil
	}},
	"str": {1, 2, false, func(args []Value) (Value, error) {
		if len(args) == 1 {
			if args[0].Kind == KindSet {
				return Undef, errors.New("str of a set")
			}
			return Str(args[0].String()), nil
		}
		x, d, err := number2(args)
		if err != nil {
			return Undef, err
		}
		if d < 0 || d != math.Trunc(d) {
			return Undef, errors.New("str decimals must be a non-negative integer")
		}
		return Str(strconv.FormatFloat(RoundHalfAway(x, int(d)), 'f', int(d), 64)), nil
	}},
	"if": {3, 3, false, nil},

	"strlen": {1, 1, true, func(args []Value) (Value, error) {
		s, err := text(args[0])
		if err != nil {
			return Undef, err
		}
		return Num(float64(utf8.RuneCountInString(s))), nil
	}},
	"substr": {2, 3, true, substr},
	"upper": {1, 1, true, str1(func(s string) string {
		return cases.Upper(language.Und).String(s)
	})},
	"lower": {1, 1, true, str1(func(s string) string {
		return cases.Lower(language.Und).String(s)
	})},
	"trim": {1, 1, true, str1(strings.TrimSpace)},
	"concat": {1, -1, true, func(args []Value) (Value, error) {
		var b strings.Builder
		for _, a := range args {
			if a.Kind == KindSet {
				return Undef, errors.New("concat of a set")
			}
			b.WriteString(a.String())
		}
		return Str(b.String()), nil
	}},
}

// Functions lists the names of the built-in functions.
func Functions() []string {
	acc := make([]string, 0, len(builtins))
	for name := range builtins {
		acc = append(acc, name)
	}
	return acc
}

// RoundHalfAway rounds to the given number of decimal places with
// halves rounded away from zero.  The half is decided on the shortest
// decimal form of x, so 1.005 rounds to 1.01.
func RoundHalfAway(x float64, places int) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	return decimal.NewFromFloat(x).Round(int32(places)).InexactFloat64()
}

func number(v Value) (float64, error) {
	if v.Kind != KindNumber {
		return 0, errors.New("expected a number, got a " + v.Kind.String())
	}
	return v.Num, nil
}

func number2(args []Value) (float64, float64, error) {
	x, err := number(args[0])
	if err != nil {
		return 0, 0, err
	}
	y, err := number(args[1])
	return x, y, err
}

func text(v Value) (string, error) {
	if v.Kind != KindString {
		return "", errors.New("expected a string, got a " + v.Kind.String())
	}
	return v.Str, nil
}

func num1(f func(float64) float64) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		x, err := number(args[0])
		if err != nil {
			return Undef, err
		}
		return Num(f(x)), nil
	}
}

func fold(f func(float64, float64) float64) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		acc, err := number(args[0])
		if err != nil {
			return Undef, err
		}
		for _, a := range args[1:] {
			x, err := number(a)
			if err != nil {
				return Undef, err
			}
			acc = f(acc, x)
		}
		return Num(acc), nil
	}
}

func str1(f func(string) string) func([]Value) (Value, error) {
	return func(args []Value) (Value, error) {
		s, err := text(args[0])
		if err != nil {
			return Undef, err
		}
		return Str(f(s)), nil
	}
}

// substr(s, start[, length]) with a 1-based start.
func substr(args []Value) (Value, error) {
	s, err := text(args[0])
	if err != nil {
		return Undef, err
	}
	start, err := number(args[1])
	if err != nil {
		return Undef, err
	}
	rs := []rune(s)
	if start != math.Trunc(start) || start < 1 || int(start) > len(rs)+1 {
		return Undef, errors.New("substr start out of range")
	}
	from := int(start) - 1
	to := len(rs)
	if len(args) == 3 {
		n, err := number(args[2])
		if err != nil {
			return Undef, err
		}
		if n != math.Trunc(n) || n < 0 {
			return Undef, errors.New("substr length out of range")
		}
		if from+int(n) < to {
			to = from + int(n)
		}
	}
	return Str(string(rs[from:to])), nil
}
