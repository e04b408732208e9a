package expr

import "strings"

// Capability is a language feature that a dialect may allow.
type Capability uint32

const (
	// CapStringFuncs enables substr, upper, lower, trim, strlen
	// and concat.
	CapStringFuncs Capability = 1 << iota

	// CapConcat enables the || operator.
	CapConcat

	// CapTableCall enables "table NAME(COL = expr, ...)".
	CapTableCall

	// CapObjectRefs enables $self, $parent and $root.
	CapObjectRefs

	// CapRangeIn enables "X in ('A' - 'C', 10 - 20)".
	CapRangeIn

	// CapWildcardIn makes '*' and '?' in string IN-list members
	// match any run of characters and any one character.
	CapWildcardIn
)

// DefaultVarCond is the variable that pricing and packaging
// relations assign variant conditions to.
const DefaultVarCond = "VARCOND"

// Dialect is a resolved capability set.
type Dialect struct {
	Name string
	Caps Capability

	// VarCond is the (upper-case, no '$') name of the variant
	// condition variable.
	VarCond string
}

// Has reports whether the dialect allows the capability.
func (d *Dialect) Has(c Capability) bool {
	return d != nil && d.Caps&c == c
}

// With returns a copy of the dialect with extra capabilities and,
// if varCond is not empty, a different variant condition variable.
func (d *Dialect) With(c Capability, varCond string) *Dialect {
	acc := *d
	acc.Caps |= c
	if varCond != "" {
		acc.VarCond = strings.ToUpper(strings.TrimPrefix(varCond, "$"))
	}
	if acc.VarCond == "" {
		acc.VarCond = DefaultVarCond
	}
	return &acc
}

// Full allows everything.  Handy for tests and tools.
var Full = &Dialect{
	Name:    "full",
	Caps:    CapStringFuncs | CapConcat | CapTableCall | CapObjectRefs | CapRangeIn | CapWildcardIn,
	VarCond: DefaultVarCond,
}
