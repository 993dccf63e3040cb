package reports

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sort"
)

const (
	plotWidth  = 420
	plotHeight = 300
	plotMargin = 30
	boxWidth   = 80
)

var (
	responderFill    = color.RGBA{R: 0, G: 102, B: 204, A: 255}
	nonResponderFill = color.RGBA{R: 204, G: 85, B: 0, A: 255}
	axisGray         = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

type boxStats struct {
	min, q1, median, q3, max float64
}

// renderBoxPlot draws two box-and-whisker summaries (responders left,
// non-responders right) on a shared vertical scale and returns the PNG bytes.
func renderBoxPlot(responders, nonResponders []float64) ([]byte, error) {
	if len(responders) == 0 || len(nonResponders) == 0 {
		return nil, fmt.Errorf("both groups need at least one observation")
	}
	left := summarize(responders)
	right := summarize(nonResponders)

	lo := math.Min(left.min, right.min)
	hi := math.Max(left.max, right.max)
	if hi == lo {
		// Flat data still renders: pad the scale so the box has height.
		hi = lo + 1
	}

	img := image.NewRGBA(image.Rect(0, 0, plotWidth, plotHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	// y maps a data value to a pixel row, inverted so larger values sit higher.
	y := func(v float64) int {
		span := float64(plotHeight - 2*plotMargin)
		return plotHeight - plotMargin - int(span*(v-lo)/(hi-lo))
	}

	// axis
	fillRect(img, plotMargin, plotMargin, plotMargin+1, plotHeight-plotMargin, axisGray)
	fillRect(img, plotMargin, plotHeight-plotMargin-1, plotWidth-plotMargin, plotHeight-plotMargin, axisGray)

	drawBox(img, plotWidth/3, y, left, responderFill)
	drawBox(img, 2*plotWidth/3, y, right, nonResponderFill)

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawBox(img *image.RGBA, centerX int, y func(float64) int, st boxStats, fill color.RGBA) {
	x0 := centerX - boxWidth/2
	x1 := centerX + boxWidth/2

	// whiskers
	fillRect(img, centerX, y(st.max), centerX+1, y(st.q3), axisGray)
	fillRect(img, centerX, y(st.q1), centerX+1, y(st.min), axisGray)
	fillRect(img, centerX-boxWidth/4, y(st.max), centerX+boxWidth/4, y(st.max)+1, axisGray)
	fillRect(img, centerX-boxWidth/4, y(st.min), centerX+boxWidth/4, y(st.min)+1, axisGray)

	// interquartile box
	fillRect(img, x0, y(st.q3), x1, y(st.q1), fill)

	// median line
	fillRect(img, x0, y(st.median)-1, x1, y(st.median)+1, color.RGBA{A: 255})
}

// fillRect paints the rectangle, clamping so degenerate spans still draw one
// pixel.
func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	draw.Draw(img, image.Rect(x0, y0, x1, y1), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func summarize(data []float64) boxStats {
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	return boxStats{
		min:    sorted[0],
		q1:     quantile(sorted, 0.25),
		median: quantile(sorted, 0.5),
		q3:     quantile(sorted, 0.75),
		max:    sorted[len(sorted)-1],
	}
}

// quantile interpolates linearly between the closest ranks of sorted data.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
