package ai

import (
	"encoding/json"
	"errors"
	"fmt"

	"corisa-backend/internal/modplan"
)

// Proposal is a plan suggested by the planner. FromModifications is set when
// the planner answered with a modifications object that was turned into a plan.
type Proposal struct {
	Plan              *modplan.Plan `json:"plan"`
	FromModifications bool          `json:"fromModifications"`
}

var errNotAPlan = errors.New("response is neither a plan nor a modifications object")

// PlanDocument returns the plan document a planner response carries,
// unwrapped from {"plan": ...} and given the current version when it has none.
// Its operations are passed through untouched, so it can be validated before
// any typed decoding. It returns nil for responses that are not plan-shaped.
func PlanDocument(raw []byte) ([]byte, error) {
	obj, err := responseObject(raw)
	if err != nil {
		return nil, err
	}
	return planDocument(obj)
}

// DecodeProposal interprets a planner response. Accepted shapes: a plan, a plan
// wrapped in {"plan": ...}, or a modifications object keyed by collection. A
// plan without a version is given the current one.
func DecodeProposal(raw []byte) (*Proposal, error) {
	obj, err := responseObject(raw)
	if err != nil {
		return nil, err
	}

	doc, err := planDocument(obj)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		plan, err := modplan.Decode(doc)
		if err != nil {
			return nil, err
		}
		return &Proposal{Plan: plan}, nil
	}

	if !hasCollectionKey(obj) {
		return nil, errNotAPlan
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var mods modplan.Modifications
	if err := json.Unmarshal(data, &mods); err != nil {
		return nil, fmt.Errorf("decode modifications: %w", err)
	}
	plan, err := modplan.Build(&mods)
	if err != nil {
		return nil, err
	}
	return &Proposal{Plan: plan, FromModifications: true}, nil
}

func responseObject(raw []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("decode planner response: %w", err)
	}
	if inner, ok := obj["plan"]; ok {
		var wrapped map[string]json.RawMessage
		if json.Unmarshal(inner, &wrapped) == nil {
			obj = wrapped
		}
	}
	return obj, nil
}

func planDocument(obj map[string]json.RawMessage) ([]byte, error) {
	if _, ok := obj["operations"]; !ok {
		return nil, nil
	}
	if _, ok := obj["version"]; !ok {
		obj["version"] = json.RawMessage(`"` + modplan.Version + `"`)
	}
	return json.Marshal(obj)
}

func hasCollectionKey(obj map[string]json.RawMessage) bool {
	for _, c := range modplan.Collections {
		if _, ok := obj[string(c)]; ok {
			return true
		}
	}
	return false
}
