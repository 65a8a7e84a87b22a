package depgraph

import (
	"encoding/json"

	"github.com/raven-os/libnest/identifier"
)

// NodeKind and RequirementKind are tagged unions where the inactive branch
// holds its Go zero value (an empty PackageID, an empty GroupName). Those
// zero values do not round-trip through PackageID's MarshalText (an empty
// PackageID formats as "::/#", which fails to parse back), so both types
// get a custom JSON encoding that omits the inactive branch entirely
// instead of relying on encoding/json's default struct handling.

type nodeKindWire struct {
	IsGroup   bool                  `json:"is_group"`
	Group     *identifier.GroupName `json:"group,omitempty"`
	PackageID *identifier.PackageID `json:"package_id,omitempty"`
}

func (k NodeKind) MarshalJSON() ([]byte, error) {
	w := nodeKindWire{IsGroup: k.IsGroup}
	if k.IsGroup {
		w.Group = &k.Group
	} else {
		w.PackageID = &k.PackageID
	}
	return json.Marshal(w)
}

func (k *NodeKind) UnmarshalJSON(b []byte) error {
	var w nodeKindWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	k.IsGroup = w.IsGroup
	if w.Group != nil {
		k.Group = *w.Group
	}
	if w.PackageID != nil {
		k.PackageID = *w.PackageID
	}
	return nil
}

type requirementKindWire struct {
	IsGroup    bool                           `json:"is_group"`
	Group      *identifier.GroupName          `json:"group,omitempty"`
	PackageReq *identifier.PackageRequirement `json:"package_req,omitempty"`
}

func (k RequirementKind) MarshalJSON() ([]byte, error) {
	w := requirementKindWire{IsGroup: k.IsGroup}
	if k.IsGroup {
		w.Group = &k.Group
	} else {
		w.PackageReq = &k.PackageReq
	}
	return json.Marshal(w)
}

func (k *RequirementKind) UnmarshalJSON(b []byte) error {
	var w requirementKindWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	k.IsGroup = w.IsGroup
	if w.Group != nil {
		k.Group = *w.Group
	}
	if w.PackageReq != nil {
		k.PackageReq = *w.PackageReq
	}
	return nil
}
