// Package report renders segmentation output for inspection: PNG heatmaps
// of grid slices (gonum/plot) and an HTML chart of label counts per slice
// (go-echarts). Nothing in the segmentation path depends on it.
package report
