/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

package crew

import (
	"github.com/Comcast/ocdrules/catalog"
	"github.com/Comcast/ocdrules/core"
)

// Member is one bill-of-items position of a composite configuration.
type Member struct {
	Position int                 `json:"pos"`
	Item     *catalog.BillOfItem `json:"item"`

	// State is nil for positions that are not configurable.
	State *core.State `json:"state,omitempty"`
}

// Update overlays the given member data on the target member.
//
// State (if any) is copied.
//
// Not thread-safe.
func (m *Member) Update(overlay *Member) {
	if overlay.Item != nil {
		m.Item = overlay.Item
	}
	if overlay.State != nil {
		m.State = overlay.State.Copy()
	}
}

// Copy returns a new Member with the same item and a copy of the
// member's state.
func (m *Member) Copy() *Member {
	acc := &Member{
		Position: m.Position,
		Item:     m.Item, // Catalog data is shared.
	}
	if m.State != nil {
		acc.State = m.State.Copy()
	}
	return acc
}
