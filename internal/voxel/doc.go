// Package voxel owns the dense voxel-grid data model consumed by the
// edit-region segmentation.
//
// Responsibilities: lattice dimensions and linear indexing, scalar and
// feature grids, 3x3x3 max dilation, the active-voxel bijection, the
// 26-connected lattice graph used for component cleanup, and the model
// file codec.
// Key types: Dims, Coord, ScalarGrid, FeatureGrid, Model, ActiveSet.
//
// Dependency rule: voxel never imports region, refine or storage
// packages. No SQL/database code is allowed in this package.
package voxel
