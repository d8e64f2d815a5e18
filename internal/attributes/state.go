package attributes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fsanges/master-of-puppets/internal/scene"
)

const codecVersion = 1

// reserved lists the persistence attributes the codec itself must never
// capture; their flag state is framework-owned.
var reserved = map[string]bool{
	"shape_data":        true,
	"attributes_state":  true,
	"parent_space_data": true,
	"is_build_node":     true,
}

// AttrState is one attribute's captured editing flags.
type AttrState struct {
	Name       string `json:"name"`
	Locked     bool   `json:"locked"`
	Keyable    bool   `json:"keyable"`
	ChannelBox bool   `json:"channel_box"`
}

// State is the ordered flag set captured from one node.
type State struct {
	Attributes []AttrState `json:"attributes"`
}

type envelope struct {
	Version    int         `json:"version"`
	Attributes []AttrState `json:"attributes"`
}

// Capture reads the editing flags of every user-facing attribute on the
// node, in definition order.
func Capture(g scene.Graph, node string) (State, error) {
	names, err := g.AttrNames(node)
	if err != nil {
		return State{}, fmt.Errorf("capture attribute state: %w", err)
	}
	state := State{}
	for _, name := range names {
		if reserved[name] {
			continue
		}
		flags, err := g.Flags(node, name)
		if err != nil {
			return State{}, fmt.Errorf("capture attribute state: %w", err)
		}
		state.Attributes = append(state.Attributes, AttrState{
			Name:       name,
			Locked:     flags.Locked,
			Keyable:    flags.Keyable,
			ChannelBox: flags.ChannelBox,
		})
	}
	return state, nil
}

// Apply restores captured flags onto the node. Attributes the node no
// longer carries are skipped.
func Apply(g scene.Graph, node string, state State) error {
	for _, rec := range state.Attributes {
		if reserved[rec.Name] || !g.HasAttr(node, rec.Name) {
			continue
		}
		flags := scene.AttrFlags{Locked: rec.Locked, Keyable: rec.Keyable, ChannelBox: rec.ChannelBox}
		if err := g.SetFlags(node, rec.Name, flags); err != nil {
			return fmt.Errorf("apply attribute state to %s.%s: %w", node, rec.Name, err)
		}
	}
	return nil
}

// Encode serializes the state as a versioned JSON blob.
func Encode(state State) (string, error) {
	data, err := json.Marshal(envelope{Version: codecVersion, Attributes: state.Attributes})
	if err != nil {
		return "", fmt.Errorf("encode attribute state: %w", err)
	}
	return string(data), nil
}

// Decode parses a blob produced by Encode. It reports ok=false for empty,
// malformed, or incompatible data instead of returning an error.
func Decode(blob string) (State, bool) {
	if strings.TrimSpace(blob) == "" {
		return State{}, false
	}
	var env envelope
	if err := json.Unmarshal([]byte(blob), &env); err != nil {
		return State{}, false
	}
	if env.Version != codecVersion {
		return State{}, false
	}
	return State{Attributes: env.Attributes}, true
}
