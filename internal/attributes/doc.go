// Package attributes captures and restores per-attribute editing state
// (lock, keyable, channel-box flags) on controller nodes, serialized as a
// versioned JSON blob. Decoding is lenient: malformed or legacy blobs are
// reported as absent rather than failing, so a single bad controller never
// aborts a rebuild.
package attributes
