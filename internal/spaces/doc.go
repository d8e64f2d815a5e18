// Package spaces builds parent-space switching for controllers and defines
// the persisted parent-space record. Parent candidate order is semantically
// meaningful and survives the JSON round-trip; decoding is lenient so a
// corrupt blob degrades to "no spaces configured" instead of aborting a
// build. The transform-reset primitive used by reset-pose also lives here.
package spaces
