// Package shapes captures and restores controller curve geometry: degree,
// color override state, and control-vertex positions, serialized as a
// versioned JSON blob. Capture is a best-effort service; callers are
// expected to swallow its failures, since not every controller carries
// capturable shape data.
package shapes
