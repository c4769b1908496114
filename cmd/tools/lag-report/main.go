// Command lag-report estimates the inter-hand timing offset from a fused
// sample CSV and renders the cross-correlogram as an HTML chart.
//
// Input CSV columns: t,left,right (header optional). The time column must be
// uniformly spaced; the sample rate is inferred from it.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Jiyounlee0423/HeartSync-Ring/internal/dsp"
)

var (
	inPath  = flag.String("in", "", "fused sample CSV (t,left,right)")
	outPath = flag.String("out", "lag_report.html", "output HTML chart path")
	maxLagS = flag.Float64("max-lag", 0.5, "correlation search half-window in seconds")
)

func main() {
	flag.Parse()

	if *inPath == "" {
		log.Fatal("input CSV is required (-in)")
	}

	times, left, right, err := readFusedCSV(*inPath)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *inPath, err)
	}
	if len(times) < 2 {
		log.Fatalf("need at least 2 samples, got %d", len(times))
	}

	// Infer the sample rate from the grid spacing.
	fs := float64(len(times)-1) / (times[len(times)-1] - times[0])

	leftD := dsp.Detrend(left, fs)
	rightD := dsp.Detrend(right, fs)

	offsetMs, corr, err := dsp.EstimateLag(leftD, rightD, fs, *maxLagS)
	if err != nil {
		log.Fatalf("lag estimation failed: %v", err)
	}

	maxLag := int(*maxLagS * fs)
	points := dsp.Correlogram(leftD, rightD, maxLag)

	fmt.Printf("samples: %d  fs: %.2f Hz\n", len(times), fs)
	fmt.Printf("offset: %+.1f ms  peak correlation: %.3f\n", offsetMs, corr)

	if err := renderChart(*outPath, points, fs, offsetMs, corr); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}
	fmt.Printf("wrote %s\n", *outPath)
}

// readFusedCSV parses the t,left,right columns, skipping a header row if the
// first field does not parse as a number.
func readFusedCSV(path string) (times, left, right []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	for row := 0; ; row++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, nil, err
		}
		t, terr := strconv.ParseFloat(rec[0], 64)
		if terr != nil {
			if row == 0 {
				continue // header
			}
			return nil, nil, nil, fmt.Errorf("row %d: bad time %q", row, rec[0])
		}
		l, lerr := strconv.ParseFloat(rec[1], 64)
		rv, rerr := strconv.ParseFloat(rec[2], 64)
		if lerr != nil || rerr != nil {
			return nil, nil, nil, fmt.Errorf("row %d: bad sample values %q,%q", row, rec[1], rec[2])
		}
		times = append(times, t)
		left = append(left, l)
		right = append(right, rv)
	}
	return times, left, right, nil
}

func renderChart(path string, points []dsp.CorrPoint, fs, offsetMs, corr float64) error {
	xs := make([]string, 0, len(points))
	ys := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		lagMs := float64(p.Lag) / fs * 1000.0
		xs = append(xs, fmt.Sprintf("%.1f", lagMs))
		if p.OK {
			ys = append(ys, opts.LineData{Value: p.Corr})
		} else {
			ys = append(ys, opts.LineData{Value: nil})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "HeartSync Lag Report", Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Inter-hand cross-correlogram",
			Subtitle: fmt.Sprintf("offset=%+.1fms corr=%.3f fs=%.1fHz", offsetMs, corr, fs),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "lag (ms)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "correlation"}),
	)
	line.SetXAxis(xs)
	line.AddSeries("correlation", ys)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}
