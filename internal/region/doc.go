// Package region isolates the edited part of a voxel model by min-cut
// segmentation.
//
// Two attention fields over the same lattice (one for the edit prompt,
// one for the object prompt) seed a 6-connected affinity graph over the
// active voxels. Seeds bind voxels to the edit source or the object sink
// with effectively infinite capacity, pairwise capacities fall off with
// feature distance, and the minimum cut labels every active voxel EDIT or
// OBJECT. The labelling is materialised back into a dense attention-like
// grid that the renderer and refinement loop consume.
//
// The pipeline is one-shot and single-threaded:
//
//	Inputs -> SelectSeeds -> BuildGraph -> Solve -> Materialize
//
// Dependency rule: region may depend on voxel, config and monitoring,
// never on refine, db or report.
package region
