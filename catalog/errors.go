package catalog

// These errors are catalog errors, found at load time.

import (
	"errors"
	"strconv"
	"strings"
)

// NotCompiled occurs when a Catalog is used before it has been
// Compile()ed.
type NotCompiled struct {
	Catalog *Catalog
}

func (e *NotCompiled) Error() string {
	return `catalog "` + e.Catalog.Name + `" not compiled`
}

// UnknownArticle occurs when an article id is not in the Catalog.
type UnknownArticle struct {
	ID string
}

func (e *UnknownArticle) Error() string {
	return `article "` + e.ID + `" not found`
}

// UnknownProperty occurs when a property name is not one of an
// article's properties.
type UnknownProperty struct {
	Article string
	Name    string
}

func (e *UnknownProperty) Error() string {
	return `property "` + e.Name + `" not found in article "` + e.Article + `"`
}

// CompileError is one problem found by Compile.  Where says which
// row or relation has the problem.
type CompileError struct {
	Where string
	Err   error
}

func (e *CompileError) Error() string {
	return e.Where + ": " + e.Err.Error()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// CatalogErrors lists every problem found by Compile.
type CatalogErrors []*CompileError

func (es CatalogErrors) Error() string {
	switch len(es) {
	case 0:
		return "no catalog errors"
	case 1:
		return es[0].Error()
	}
	ss := make([]string, len(es))
	for i, e := range es {
		ss[i] = e.Error()
	}
	return strconv.Itoa(len(es)) + " catalog errors: " + strings.Join(ss, "; ")
}

var (
	ErrDuplicateProperty = errors.New("property name occurs more than once")
	ErrDuplicateDefault  = errors.New("more than one default value")
	ErrUnknownReference  = errors.New("unknown reference")
	ErrBadDate           = errors.New("bad date")
	ErrUnknownDialect    = errors.New("unknown dialect")
)
