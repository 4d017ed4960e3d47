// Package refine provides orchestration for one edit-region refinement run.
//
// It wires model files, the region segmentation, component cleanup and the
// adapter sinks (run store, metrics textfile, reports) into a single flow.
// The package does not own domain logic; it delegates to region, voxel and
// the sink packages.
package refine
