package rig

import "context"

// Hook phases the lifecycle engines fire, in the order they fire them.
const (
	PhasePreBuild    = "pre_build"
	PhasePostBuild   = "post_build"
	PhasePreUnbuild  = "pre_unbuild"
	PhasePostUnbuild = "post_unbuild"
	PhasePrePublish  = "pre_publish"
	PhasePostPublish = "post_publish"
)

// HookRunner executes user scripts registered for a lifecycle phase. The
// core treats hook failures as configuration errors: they abort the
// enclosing operation.
type HookRunner interface {
	Run(ctx context.Context, phase string) error
}

type nopHooks struct{}

func (nopHooks) Run(context.Context, string) error { return nil }

// NopHooks returns a runner that does nothing, used when no hooks
// directory is configured.
func NopHooks() HookRunner { return nopHooks{} }
