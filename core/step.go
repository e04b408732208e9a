package core

import (
	"context"
	"fmt"
	"time"

	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/util"

	"github.com/google/uuid"
)

var (
	// TracesInitialCap is the initial capacity for Traces buffers.
	TracesInitialCap = 16

	// DefaultControl will be used by an Engine without a Control.
	DefaultControl = &Control{
		Limit: 32,
	}
)

// StopReason says why the settle loop of a Step ended.
type StopReason int

const (
	Done    StopReason = iota // Nothing changed any more.
	Limited                   // Too many rounds.
)

func (r StopReason) String() string {
	switch r {
	case Done:
		return "done"
	case Limited:
		return "limited"
	}
	return fmt.Sprintf("StopReason(%d)", int(r))
}

// Control influences how a Step operates.
type Control struct {
	// Limit is the maximum number of rounds of actions and
	// constraints in one Step.
	Limit int

	// Trace enables trace messages in Strides.
	Trace bool

	// Date selects value rows by their validity windows.  The
	// zero time accepts every row.
	Date time.Time
}

func (c *Control) Copy() *Control {
	acc := *c
	return &acc
}

// Traces holds trace messages.
type Traces struct {
	Messages []interface{} `json:"messages,omitempty" yaml:",omitempty"`
}

// NewTraces creates an initialized Traces.
//
// The Messages array has TracesInitialCap initial capacity.
func NewTraces() *Traces {
	return &Traces{
		Messages: make([]interface{}, 0, TracesInitialCap),
	}
}

func (ts *Traces) Add(xs ...interface{}) {
	ts.Messages = append(ts.Messages, xs...)
}

// Change is a user-driven property change.  An Undefined Value
// unsets the property.
type Change struct {
	Property string     `json:"property"`
	Value    expr.Value `json:"value"`
}

// Stride represents a Step that has been taken.
type Stride struct {
	Traces *Traces `json:"traces,omitempty" yaml:",omitempty"`

	// From is the State given to Step.
	From *State `json:"from,omitempty" yaml:",omitempty"`

	// To is the new State.
	To *State `json:"to,omitempty" yaml:",omitempty"`

	// Change is the change (if any) that the Step applied.
	Change *Change `json:"change,omitempty" yaml:",omitempty"`

	// Rounds is the number of rounds of actions and constraints.
	Rounds int `json:"rounds"`

	StopReason StopReason `json:"stopReason"`
}

func NewStride() *Stride {
	return &Stride{
		Traces: NewTraces(),
	}
}

// Engine evaluates the relations of one compiled catalog.  An Engine
// holds no per-configuration data and can be shared.
type Engine struct {
	Catalog *catalog.Catalog
	Control *Control

	// Metrics is optional.
	Metrics *Metrics
}

// NewEngine makes an Engine for a compiled Catalog.
func NewEngine(c *catalog.Catalog) (*Engine, error) {
	if !c.Compiled() {
		return nil, &catalog.NotCompiled{Catalog: c}
	}
	return &Engine{
		Catalog: c,
		Control: DefaultControl,
	}, nil
}

func (e *Engine) control() *Control {
	if e.Control == nil {
		return DefaultControl
	}
	return e.Control
}

func (e *Engine) article(st *State) (*catalog.Article, error) {
	a, err := e.Catalog.Article(st.Article)
	if err != nil {
		if _, is := err.(*catalog.UnknownArticle); is {
			return nil, &ForeignState{State: st, Catalog: e.Catalog.Name}
		}
		return nil, err
	}
	return a, nil
}

// Initialize makes the initial State of an article.
func (e *Engine) Initialize(ctx context.Context, article string) (*State, error) {
	return e.InitializeIn(ctx, article, nil)
}

// InitializeIn makes the initial State of an article that is a
// position of the parent configuration.
func (e *Engine) InitializeIn(ctx context.Context, article string, parent *State) (*State, error) {
	st := &State{
		ID:      uuid.NewString(),
		Article: article,
		Parent:  parent,
	}
	if parent != nil {
		st.Root = parent.root()
	}
	stride, err := e.initialize(ctx, st)
	if err != nil {
		return nil, err
	}
	return stride.To, nil
}

func (e *Engine) initialize(ctx context.Context, st *State) (*Stride, error) {
	a, err := e.Catalog.Article(st.Article)
	if err != nil {
		return nil, err
	}
	st.Status = Initializing
	st.Values = make(map[string]expr.Value, len(a.Properties()))
	st.Domains, st.Picked, st.Invalid = nil, nil, nil
	st.Violations, st.Missing = nil, nil

	stride := NewStride()
	p := e.newPass(a, st, stride.Traces)
	for _, prop := range a.Properties() {
		if prop.Scope == catalog.RelationOnly || prop.Restrictable {
			continue
		}
		if v := p.seed(prop); !v.IsUndefined() {
			st.Values[prop.Name] = v
		}
	}

	if err := e.run(ctx, a, st, nil, true, stride); err != nil {
		return nil, err
	}
	return stride, nil
}

// Reset makes a fresh initial State for the same article and
// position, discarding everything the user set.  The ID is kept.
func (e *Engine) Reset(ctx context.Context, st *State) (*State, error) {
	acc := &State{
		ID:      st.ID,
		Article: st.Article,
		Parent:  st.Parent,
		Root:    st.Root,
	}
	stride, err := e.initialize(ctx, acc)
	if err != nil {
		return nil, err
	}
	return stride.To, nil
}

// Apply sets a property and returns the resulting State.  If the
// change is not allowed, Apply returns a *Rejected error and no
// State.
func (e *Engine) Apply(ctx context.Context, st *State, property string, v expr.Value) (*State, error) {
	stride, err := e.Step(ctx, st, &Change{Property: property, Value: v})
	if err != nil {
		return nil, err
	}
	return stride.To, nil
}

// Reopen gives a restrictable property all of its value-table values
// back as candidates and runs a pass, which narrows them again from
// the current configuration.  A pick is kept.  Candidates never grow
// otherwise.
func (e *Engine) Reopen(ctx context.Context, st *State, property string) (*State, error) {
	a, err := e.article(st)
	if err != nil {
		return nil, err
	}
	prop, have := a.Property(property)
	if !have {
		return nil, &catalog.UnknownProperty{Article: a.ID, Name: property}
	}
	if !prop.Restrictable {
		return nil, fmt.Errorf("%s is not restrictable", prop.Key())
	}

	stride := NewStride()
	stride.From = st.Copy()
	acc := st.Copy()
	delete(acc.Domains, prop.Name)
	if !acc.Picked[prop.Name] {
		delete(acc.Values, prop.Name)
	}
	util.Logf("article %s: reopen %s", a.ID, prop.Key())
	if err := e.run(ctx, a, acc, nil, false, stride); err != nil {
		return nil, err
	}
	return stride.To, nil
}

// Refresh runs a Step without a change.  Composite configurations
// use it when an enclosing configuration has changed.
func (e *Engine) Refresh(ctx context.Context, st *State) (*State, error) {
	stride, err := e.Step(ctx, st, nil)
	if err != nil {
		return nil, err
	}
	return stride.To, nil
}

// Step is the fundamental operation.  It applies the change (if any)
// to a copy of the given State and runs one evaluation pass.
func (e *Engine) Step(ctx context.Context, st *State, ch *Change) (*Stride, error) {
	a, err := e.article(st)
	if err != nil {
		return nil, err
	}

	stride := NewStride()
	stride.From = st.Copy()
	stride.Change = ch
	acc := st.Copy()

	var changed *catalog.Property
	if ch != nil {
		prop, have := a.Property(ch.Property)
		if !have {
			return nil, &catalog.UnknownProperty{Article: a.ID, Name: ch.Property}
		}
		v, err := e.check(a, st, prop, ch.Value)
		if err != nil {
			e.Metrics.rejected()
			util.Logf("%s", err)
			return nil, err
		}
		switch {
		case v.IsUndefined():
			delete(acc.Values, prop.Name)
			delete(acc.Picked, prop.Name)
		case prop.Restrictable:
			if acc.Picked == nil {
				acc.Picked = make(map[string]bool, 2)
			}
			acc.Picked[prop.Name] = true
			acc.Values[prop.Name] = v
		default:
			acc.Values[prop.Name] = v
		}
		changed = prop
	}

	if err := e.run(ctx, a, acc, changed, false, stride); err != nil {
		return nil, err
	}
	return stride, nil
}

// run is one evaluation pass.
func (e *Engine) run(ctx context.Context, a *catalog.Article, st *State, changed *catalog.Property, initial bool, stride *Stride) error {
	c := e.control()
	e.Metrics.step()

	st.Status = Evaluating

	p := e.newPass(a, st, stride.Traces)
	p.validate()

	switch {
	case initial:
		p.run(p.reactions(e.Catalog.RelationObject(a.Relation), nil))
	case changed != nil:
		p.run(p.propertyReactions(changed))
	}

	stride.StopReason = Limited
	for stride.Rounds < c.Limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		stride.Rounds++
		before := p.changes
		p.violations = nil
		p.validate()
		p.run(p.gather(catalog.Configuration, catalog.Action, catalog.Constraint))
		if p.changes == before {
			stride.StopReason = Done
			break
		}
	}
	if stride.StopReason == Limited {
		util.Logf("article %s: no fixpoint after %d rounds", a.ID, stride.Rounds)
		p.trace("limited after %d rounds", stride.Rounds)
	}

	p.run(p.gather(catalog.Configuration, catalog.PostReaction))

	// Candidates carry over from pass to pass, so a property whose
	// pick was withdrawn may still be down to one value.
	for _, prop := range a.Properties() {
		if vs, have := st.Domains[prop.Name]; have && len(vs) == 1 && !st.Picked[prop.Name] {
			st.Values[prop.Name] = vs[0]
		}
	}
	p.checkDomains()
	st.Violations = p.violations
	e.Metrics.violated(len(st.Violations))
	st.Missing = e.missing(a, st)
	if len(st.Missing) == 0 && len(st.Violations) == 0 {
		st.Status = Complete
	} else {
		st.Status = Incomplete
	}
	stride.To = st
	return nil
}

// reactions selects the reactions of one relation object.
func (p *pass) reactions(o *catalog.RelationObject, prop *catalog.Property) []binding {
	var acc []binding
	for _, r := range o.Select(catalog.Reaction, catalog.Configuration) {
		acc = append(acc, binding{r: r, prop: prop})
	}
	return acc
}

// propertyReactions are the reactions bound to a changed property and
// to its new values.
func (p *pass) propertyReactions(prop *catalog.Property) []binding {
	c := p.e.Catalog
	acc := p.reactions(c.RelationObject(prop.Relation), prop)
	for _, x := range p.st.Values[prop.Name].Elems() {
		if row := prop.Row(x); row != nil {
			acc = append(acc, p.reactions(c.RelationObject(row.Relation), prop)...)
		}
	}
	return acc
}

// checkDomains reports restrictable properties without candidates
// and picked values that are no longer candidates.
func (p *pass) checkDomains() {
	for _, prop := range p.a.Properties() {
		if !prop.Restrictable || p.st.Invalid[prop.Name] {
			continue
		}
		vs, have := p.st.Domains[prop.Name]
		if !have {
			continue
		}
		if len(vs) == 0 {
			p.violations = append(p.violations, prop.Key()+" has no remaining values")
			continue
		}
		if p.st.Picked[prop.Name] {
			for _, x := range p.st.Values[prop.Name].Elems() {
				if !contains(vs, x) {
					p.violations = append(p.violations, prop.Key()+" = "+x.Literal()+" is no longer possible")
				}
			}
		}
	}
}

// missing lists the valid properties that still need a value.
func (e *Engine) missing(a *catalog.Article, st *State) []string {
	var acc []string
	for _, prop := range a.Properties() {
		if st.Invalid[prop.Name] || prop.Scope == catalog.RelationOnly {
			continue
		}
		if (prop.Obligatory || prop.Restrictable) && st.Values[prop.Name].IsUndefined() {
			acc = append(acc, prop.Key())
		}
	}
	return acc
}

// IsComplete reports whether every obligatory property has a value,
// every restrictable property is evaluated and no constraint is
// violated.
func (e *Engine) IsComplete(st *State) bool {
	return st.Status == Complete
}

// check decides whether a user may set a property to v.  It returns
// the value as it will be stored.
func (e *Engine) check(a *catalog.Article, st *State, prop *catalog.Property, v expr.Value) (expr.Value, error) {
	reject := func(reason string) (expr.Value, error) {
		return expr.Undef, &Rejected{Article: a.ID, Property: prop.Key(), Value: v, Reason: reason}
	}
	if !prop.IsConfigurable() {
		return reject(ReasonNotConfigurable)
	}
	if st.Invalid[prop.Name] {
		return reject(ReasonInvalid)
	}
	if v.IsUndefined() {
		if prop.Obligatory {
			return reject(ReasonObligatory)
		}
		return v, nil
	}
	if v.Kind == expr.KindSet && !prop.MultiValued && 1 < len(v.Set) {
		return reject(ReasonNotMultiValued)
	}
	if !prop.HasType(v) {
		return reject(ReasonType)
	}
	v = canonical(prop, prop.Round(v))
	if !prop.MultiValued && v.Kind == expr.KindSet {
		v = v.Set[0]
	}

	p := e.newPass(a, st, nil)
	for _, x := range v.Elems() {
		if prop.Restrictable {
			if vs, have := st.Domains[prop.Name]; have && !contains(vs, x) {
				return reject(ReasonRestricted)
			}
		}
		row := prop.Row(x)
		switch {
		case row == nil && (prop.FreeValues || len(prop.Values) == 0):
		case row == nil:
			return reject(ReasonNoRow)
		case !p.legal(row):
			return reject(ReasonNotLegal)
		}
	}
	return v, nil
}

// Domain returns the values a user may choose for a property now.
// Interval rows contribute their raster values when there are not too
// many of them.
func (e *Engine) Domain(st *State, property string) ([]expr.Value, error) {
	a, err := e.article(st)
	if err != nil {
		return nil, err
	}
	prop, have := a.Property(property)
	if !have {
		return nil, &catalog.UnknownProperty{Article: a.ID, Name: property}
	}
	if prop.Restrictable {
		if vs, have := st.Domains[prop.Name]; have {
			return copyValues(vs), nil
		}
		vs, _ := e.full(prop)
		return vs, nil
	}
	p := e.newPass(a, st, nil)
	var acc []expr.Value
	for _, row := range prop.Values {
		if !p.legal(row) {
			continue
		}
		if !row.IsInterval() {
			acc = append(acc, row.V())
			continue
		}
		acc = append(acc, enumerate(row, MaxEnumerated)...)
	}
	return acc, nil
}

// MaxEnumerated limits the values Domain lists for one interval row.
var MaxEnumerated = 1000

func enumerate(row *catalog.PropertyValue, limit int) []expr.Value {
	lo := row.Lowest()
	if row.Raster <= 0 || lo.IsUndefined() {
		return nil
	}
	var acc []expr.Value
	for i := 0; i < limit; i++ {
		v := expr.Num(expr.RoundHalfAway(lo.Num+float64(i)*row.Raster, 9))
		if !row.Admits(v) {
			break
		}
		acc = append(acc, v)
	}
	return acc
}
