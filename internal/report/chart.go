package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/voxedit/internal/region"
)

// SliceCounts returns the number of EDIT and OBJECT voxels in each Z slice.
func SliceCounts(res *region.Result) (edit, object []int) {
	d := res.Active.Dims
	edit = make([]int, max(d.Z, 0))
	object = make([]int, max(d.Z, 0))
	for n, l := range res.Cut.Labels {
		z := res.Active.Coord(n).Z
		if l == region.LabelEdit {
			edit[z]++
		} else {
			object[z]++
		}
	}
	return edit, object
}

// RenderSliceChart writes an HTML page with a stacked bar chart of label
// counts per Z slice.
func RenderSliceChart(w io.Writer, title string, res *region.Result) error {
	edit, object := SliceCounts(res)
	x := make([]string, len(edit))
	editBars := make([]opts.BarData, len(edit))
	objBars := make([]opts.BarData, len(edit))
	for z := range edit {
		x[z] = strconv.Itoa(z)
		editBars[z] = opts.BarData{Value: edit[z]}
		objBars[z] = opts.BarData{Value: object[z]}
	}

	s := res.Stats
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{
			Title: title,
			Subtitle: fmt.Sprintf("active=%d edit=%d seeds=%d/%d flow=%.4g fallback=%v",
				s.ActiveNodes, s.EditNodes, s.EditSeeds, s.ObjectSeeds, s.Flow, s.Fallback),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Z slice", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "voxels", NameLocation: "middle", NameGap: 40}),
	)
	bar.SetXAxis(x).
		AddSeries("edit", editBars, charts.WithBarChartOpts(opts.BarChart{Stack: "labels"})).
		AddSeries("object", objBars, charts.WithBarChartOpts(opts.BarChart{Stack: "labels"}))

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(bar)
	return page.Render(w)
}

// WriteSliceChart renders the slice chart to path.
func WriteSliceChart(path, title string, res *region.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create chart dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := RenderSliceChart(f, title, res); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}
