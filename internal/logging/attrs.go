package logging

import "log/slog"

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRig is the standardized structured logging key for the rig node name.
	FieldRig = "rig"
	// FieldModule is the standardized structured logging key for module node names.
	FieldModule = "module"
	// FieldModuleType is the standardized structured logging key for module type keys.
	FieldModuleType = "module_type"
	// FieldController is the standardized structured logging key for controller node names.
	FieldController = "controller"
	// FieldOperation is the standardized structured logging key for lifecycle operation names.
	FieldOperation = "operation"
	// FieldPhase is the standardized structured logging key for hook phase names.
	FieldPhase = "phase"
	// FieldCorrelationID is the standardized structured logging key for per-operation correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

// WithComponent returns a logger tagged with the given component name.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}
