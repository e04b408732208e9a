/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package crew configures composite articles: the configuration of
// the composite itself plus one member configuration for every
// bill-of-items position that exists.  The relations of a member can
// read the composite with $parent and $root.
package crew

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Comcast/ocdrules/core"
	"github.com/Comcast/ocdrules/expr"
	"github.com/Comcast/ocdrules/util"
)

type Crew struct {
	sync.RWMutex

	Id      string          `json:"id"`
	Parent  *core.State     `json:"parent"`
	Members map[int]*Member `json:"members"`
}

// New configures a composite article and its initial members.
func New(ctx context.Context, e *core.Engine, article string) (*Crew, error) {
	st, err := e.Initialize(ctx, article)
	if err != nil {
		return nil, err
	}
	c := &Crew{
		Id:      st.ID,
		Parent:  st,
		Members: make(map[int]*Member, 4),
	}
	if err := c.sync(ctx, e); err != nil {
		return nil, err
	}
	return c, nil
}

// Copy gets a read lock and returns a copy of the crew.
func (c *Crew) Copy() *Crew {
	c.RLock()
	ms := make(map[int]*Member, len(c.Members))
	for pos, m := range c.Members {
		ms[pos] = m.Copy()
	}
	acc := &Crew{
		Id:      c.Id,
		Parent:  c.Parent.Copy(),
		Members: ms,
	}
	c.RUnlock()
	return acc
}

// Positions returns the positions of the members in order.
func (c *Crew) Positions() []int {
	c.RLock()
	acc := make([]int, 0, len(c.Members))
	for pos := range c.Members {
		acc = append(acc, pos)
	}
	c.RUnlock()
	sort.Ints(acc)
	return acc
}

// Apply changes a property of the composite.  Members are added or
// dropped as their positions start or stop existing, and the
// remaining members are evaluated again against the new composite.
//
// A rejected change leaves the crew as it was.
func (c *Crew) Apply(ctx context.Context, e *core.Engine, property string, v expr.Value) error {
	c.Lock()
	defer c.Unlock()

	st, err := e.Apply(ctx, c.Parent, property, v)
	if err != nil {
		return err
	}
	saved := c.Parent
	c.Parent = st
	if err := c.sync(ctx, e); err != nil {
		c.Parent = saved
		return err
	}
	return nil
}

// ApplyMember changes a property of the member at a position.
func (c *Crew) ApplyMember(ctx context.Context, e *core.Engine, pos int, property string, v expr.Value) error {
	c.Lock()
	defer c.Unlock()

	m, have := c.Members[pos]
	if !have || m.State == nil {
		return fmt.Errorf("no configurable member at position %d", pos)
	}
	st, err := e.Apply(ctx, m.State, property, v)
	if err != nil {
		return err
	}
	m.State = st
	return nil
}

// IsComplete reports whether the composite and every member are
// complete.
func (c *Crew) IsComplete(e *core.Engine) bool {
	c.RLock()
	defer c.RUnlock()
	if !e.IsComplete(c.Parent) {
		return false
	}
	for _, m := range c.Members {
		if m.State != nil && !e.IsComplete(m.State) {
			return false
		}
	}
	return true
}

// sync brings the members in line with the composite.  The caller
// holds the lock.
func (c *Crew) sync(ctx context.Context, e *core.Engine) error {
	items, err := e.Items(ctx, c.Parent)
	if err != nil {
		return err
	}
	root := c.Parent.Root
	if root == nil {
		root = c.Parent
	}

	acc := make(map[int]*Member, len(items))
	for _, it := range items {
		m, have := c.Members[it.Position]
		switch {
		case !it.Configurable:
			m = &Member{Position: it.Position, Item: it}
		case have && m.State != nil && m.Item.Article == it.Article:
			st := m.State.Copy()
			st.Parent, st.Root = c.Parent, root
			if st, err = e.Refresh(ctx, st); err != nil {
				return err
			}
			m = &Member{Position: it.Position, Item: it, State: st}
		default:
			st, err := e.InitializeIn(ctx, it.Article, c.Parent)
			if err != nil {
				return err
			}
			util.Logf("crew %s: position %d (%s) added", c.Id, it.Position, it.Article)
			m = &Member{Position: it.Position, Item: it, State: st}
		}
		acc[it.Position] = m
	}
	for pos, m := range c.Members {
		if _, have := acc[pos]; !have {
			util.Logf("crew %s: position %d (%s) dropped", c.Id, pos, m.Item.Article)
		}
	}
	c.Members = acc
	return nil
}
