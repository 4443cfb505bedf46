// Package plot renders V(s) as a line chart and π(s) as a scatter chart to HTML.
package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/sw965/tabrl"
)

// Number is an action that can be placed on a chart axis.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

func labels[S any](states []S) []string {
	xs := make([]string, len(states))
	for i, s := range states {
		xs[i] = fmt.Sprint(s)
	}
	return xs
}

func Values[S comparable](title string, v tabrl.StateValues[S], states []S) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "s"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "V(s)"}),
	)

	items := make([]opts.LineData, 0, len(states))
	for _, s := range states {
		items = append(items, opts.LineData{Value: v[s]})
	}
	line.SetXAxis(labels(states)).AddSeries("V(s)", items)
	return line
}

// Policy places one point per (state, greedy action); tied actions share a column.
func Policy[S comparable, A Number](title string, pi tabrl.Policy[S, A], states []S) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "s"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "π(s)"}),
	)

	items := []opts.ScatterData{}
	for _, s := range states {
		label := fmt.Sprint(s)
		for _, a := range pi[s] {
			items = append(items, opts.ScatterData{Value: []any{label, a}})
		}
	}
	scatter.SetXAxis(labels(states)).AddSeries("π(s)", items)
	return scatter
}

// Render writes the charts as one HTML page.
func Render(w io.Writer, cs ...components.Charter) error {
	page := components.NewPage()
	page.AddCharts(cs...)
	return page.Render(w)
}

// Save renders the charts to path, creating its directory.
func Save(path string, cs ...components.Charter) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Render(f, cs...)
}
