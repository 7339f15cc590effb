package report

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/fixedkit/internal/workload"
)

const (
	plotWidth  = "100%"
	plotHeight = "520px"
	lineWidth  = 2
)

// BenchChart builds a line chart of nanoseconds per operation against
// capacity, one series per container operation.
func BenchChart(res workload.BenchResult) *charts.Line {
	var capacities []int

	for _, s := range res.Samples {
		if !slices.Contains(capacities, s.Capacity) {
			capacities = append(capacities, s.Capacity)
		}
	}

	slices.Sort(capacities)

	labels := make([]string, len(capacities))
	for i, c := range capacities {
		labels[i] = strconv.Itoa(c)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "fixedkit bench",
			Width:     plotWidth,
			Height:    plotHeight,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Latency by capacity", Subtitle: "ns per operation"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "capacity"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ns/op", Type: "log"}),
	)
	line.SetXAxis(labels)

	type seriesKey struct{ container, op string }

	var order []seriesKey

	perOp := map[seriesKey]map[int]float64{}

	for _, s := range res.Samples {
		k := seriesKey{s.Container, s.Op}
		if _, ok := perOp[k]; !ok {
			perOp[k] = map[int]float64{}
			order = append(order, k)
		}

		perOp[k][s.Capacity] = float64(s.PerOp().Nanoseconds())
	}

	for _, k := range order {
		data := make([]opts.LineData, len(capacities))

		for i, c := range capacities {
			v, ok := perOp[k][c]
			if !ok {
				data[i] = opts.LineData{Value: "-"}

				continue
			}

			data[i] = opts.LineData{Value: v}
		}

		line.AddSeries(k.container+" "+k.op, data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false), ShowSymbol: opts.Bool(true)}),
			charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
		)
	}

	return line
}

// RenderPlot writes the bench chart as an HTML page to w.
func RenderPlot(w io.Writer, res workload.BenchResult) error {
	err := BenchChart(res).Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

// WritePlot writes the bench chart to an HTML file at path.
func WritePlot(path string, res workload.BenchResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}

	defer func() {
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("close plot file: %w", closeErr)
		}
	}()

	return RenderPlot(f, res)
}
