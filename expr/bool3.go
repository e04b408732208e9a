package expr

// Bool3 is a three-valued truth value.
type Bool3 int8

const (
	Undefined Bool3 = iota
	False
	True
)

// Of converts a Go bool.
func Of(b bool) Bool3 {
	if b {
		return True
	}
	return False
}

// And is false if either side is false, true if both are true, and
// Undefined otherwise.
func (b Bool3) And(o Bool3) Bool3 {
	switch {
	case b == False || o == False:
		return False
	case b == True && o == True:
		return True
	default:
		return Undefined
	}
}

// Or is true if either side is true, false if both are false, and
// Undefined otherwise.
func (b Bool3) Or(o Bool3) Bool3 {
	switch {
	case b == True || o == True:
		return True
	case b == False && o == False:
		return False
	default:
		return Undefined
	}
}

func (b Bool3) Not() Bool3 {
	switch b {
	case True:
		return False
	case False:
		return True
	default:
		return Undefined
	}
}

// IsTrue is the only sanctioned way to get a Go bool out of a Bool3.
func (b Bool3) IsTrue() bool {
	return b == True
}

func (b Bool3) String() string {
	switch b {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "undefined"
	}
}
