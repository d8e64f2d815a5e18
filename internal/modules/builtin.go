package modules

import (
	"log/slog"

	"github.com/fsanges/master-of-puppets/internal/rig"
)

// Type keys the builtin modules register under.
const (
	TypeRoot  = "root"
	TypeSpine = "spine"
	TypeArm   = "arm"
	TypeLeg   = "leg"
)

var segmentsByType = map[string][]string{
	TypeRoot:  {"root"},
	TypeSpine: {"hips", "spine_01", "spine_02", "chest"},
	TypeArm:   {"shoulder", "elbow", "wrist"},
	TypeLeg:   {"hip", "knee", "ankle"},
}

func constructor(moduleType string) rig.Constructor {
	segments := segmentsByType[moduleType]
	return func(node *rig.ModuleNode, logger *slog.Logger) rig.Module {
		return newChain(node, logger, segments)
	}
}

// Builtin returns the registry of builtin module types.
func Builtin() rig.Registry {
	registry := make(rig.Registry, len(segmentsByType))
	for moduleType := range segmentsByType {
		registry[moduleType] = constructor(moduleType)
	}
	return registry
}
