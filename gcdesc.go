// ABOUTME: Root gcdesc package providing version information and package documentation
// ABOUTME: The descriptor core lives in gc; space, catalog, analysis and snapshot build on it

// Package gcdesc is a structural type descriptor layer for an exact,
// compacting collector, with a reference space to drive it, heap analysis
// and snapshot formats. See package gc for the descriptor protocol.
package gcdesc

// Version is the semantic version of gcdesc and the gcsim tool
const Version = "0.1.0-dev"
