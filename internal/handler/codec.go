package handler

import (
	"encoding/json"
	"fmt"

	"github.com/lucylow/quaternion-sub009/pkg/rts"
)

// DecodeAction turns a client order payload into a concrete action. The
// payload carries its kind inline: {"kind":"move","units":[..],"target":{..}}.
// Unknown kinds are rejected here so nothing undecodable reaches the queue.
func DecodeAction(raw json.RawMessage) (rts.Action, error) {
	var env struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode order envelope: %w", err)
	}

	switch env.Kind {
	case "move":
		var a rts.MoveAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode move: %w", err)
		}
		return a, nil
	case "attack":
		var a rts.AttackAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode attack: %w", err)
		}
		return a, nil
	case "gather":
		var a rts.GatherAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode gather: %w", err)
		}
		return a, nil
	case "train":
		var a rts.TrainAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode train: %w", err)
		}
		return a, nil
	case "construct":
		var a rts.ConstructAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode construct: %w", err)
		}
		return a, nil
	case "research":
		var a rts.ResearchAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode research: %w", err)
		}
		return a, nil
	case "army":
		var a rts.ArmyAction
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode army: %w", err)
		}
		if a.Stance != rts.StanceAttack && a.Stance != rts.StanceDefend {
			return nil, fmt.Errorf("unknown stance %q", a.Stance)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown order kind %q", env.Kind)
	}
}
