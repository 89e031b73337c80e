package scope

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"
	"github.com/itohio/gomics/pkg/meter"
	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/itohio/gomics/pkg/sample"
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// plotArea maps samples to canvas positions.
type plotArea struct {
	x, y, w, h           float32
	decadeMin, decadeMax float32
	xMin, xMax           time.Time
}

func (p plotArea) xOf(t time.Time) float32 {
	span := p.xMax.Sub(p.xMin).Seconds()
	if span <= 0 {
		return p.x
	}
	return p.x + float32(t.Sub(p.xMin).Seconds()/span)*p.w
}

func (p plotArea) yOf(ppm float32) float32 {
	return p.y + p.h - logFraction(ppm, p.decadeMin, p.decadeMax)*p.h
}

// logFraction places ppm on a log axis spanning 10^lo..10^hi as 0..1.
func logFraction(ppm, lo, hi float32) float32 {
	if ppm < minPPM {
		ppm = minPPM
	}
	f := (math32.Log10(ppm) - lo) / (hi - lo)
	return math32.Max(0, math32.Min(1, f))
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the plot from the widget data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	samples := r.scope.displaySamples
	full := r.scope.samples
	alarms := r.scope.alarms
	heater := r.scope.heater
	thresholds := r.scope.cfg.Measurement.Thresholds
	p := plotArea{
		decadeMin: r.scope.decadeMin,
		decadeMax: r.scope.decadeMax,
		xMin:      r.scope.xMin,
		xMax:      r.scope.xMax,
	}
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	const (
		marginLeft   = 60
		marginRight  = 20
		marginTop    = 20
		marginBottom = 40
	)
	p.x, p.y = marginLeft, marginTop
	p.w = size.Width - marginLeft - marginRight
	p.h = size.Height - marginTop - marginBottom

	r.drawGrid(p)
	r.drawAlarms(p, alarms, full)
	for _, g := range mics6814.Gases {
		if t := thresholds.Get(g); t > 0 {
			r.drawThreshold(p, g, t)
		}
		r.drawTrace(p, g, samples)
	}
	r.drawLegend(p, samples, heater)
}

// drawGrid draws one horizontal line per decade and ten time divisions.
func (r *scopeRenderer) drawGrid(p plotArea) {
	gridColor := color.RGBA{R: 40, G: 40, B: 40, A: 255}
	textColor := color.RGBA{R: 150, G: 150, B: 150, A: 255}

	for d := p.decadeMin; d <= p.decadeMax; d++ {
		ppm := math32.Pow(10, d)
		y := p.yOf(ppm)
		r.addLine(gridColor, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))

		text := canvas.NewText(formatPPM(ppm), textColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	const numVLines = 10
	span := p.xMax.Sub(p.xMin)
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/numVLines
		r.addLine(gridColor, 1, fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h))

		text := canvas.NewText(formatTime(span*time.Duration(i)/numVLines), textColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.h+5))
		r.objects = append(r.objects, text)
	}
}

// drawTrace draws the concentration of g. Invalid readings break the line.
func (r *scopeRenderer) drawTrace(p plotArea, g mics6814.Gas, samples []sample.Sample) {
	var prev *fyne.Position
	for _, s := range samples {
		if !s.Valid(g) {
			prev = nil
			continue
		}
		pos := fyne.NewPos(p.xOf(s.Timestamp), p.yOf(s.Concentration[g]))
		if prev != nil {
			r.addLine(gasColors[g], 1.5, *prev, pos)
		}
		prev = &pos
	}
}

// drawThreshold draws a thin horizontal line at the alarm level of g.
func (r *scopeRenderer) drawThreshold(p plotArea, g mics6814.Gas, ppm float32) {
	c := gasColors[g]
	c.A = 96
	y := p.yOf(ppm)
	r.addLine(c, 1, fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y))
}

// drawAlarms shades every alarm span and labels it with its peak.
func (r *scopeRenderer) drawAlarms(p plotArea, alarms []meter.Alarm, samples []sample.Sample) {
	for _, a := range alarms {
		if a.StartIndex < 0 || a.EndIndex >= len(samples) || a.StartIndex > a.EndIndex {
			continue
		}

		xStart := p.xOf(samples[a.StartIndex].Timestamp)
		xEnd := p.xOf(samples[a.EndIndex].Timestamp)

		c := gasColors[a.Gas]
		c.A = 40
		rect := canvas.NewRectangle(c)
		rect.Move(fyne.NewPos(xStart, p.y))
		rect.Resize(fyne.NewSize(math32.Max(xEnd-xStart, 2), p.h))
		r.objects = append(r.objects, rect)

		label := canvas.NewText(fmt.Sprintf("%s %s", a.Gas, formatPPM(a.Peak)), gasColors[a.Gas])
		label.TextSize = 12
		label.Alignment = fyne.TextAlignCenter
		label.Move(fyne.NewPos((xStart+xEnd)/2-30, p.yOf(a.Peak)-15))
		r.objects = append(r.objects, label)
	}
}

// drawLegend prints the latest value of every gas and the heater state.
func (r *scopeRenderer) drawLegend(p plotArea, samples []sample.Sample, heater bool) {
	x := p.x + 10
	for _, g := range mics6814.Gases {
		value := "--"
		if n := len(samples); n > 0 && samples[n-1].Valid(g) {
			value = formatPPM(samples[n-1].Concentration[g])
		}
		text := canvas.NewText(fmt.Sprintf("%s %s", g, value), gasColors[g])
		text.TextSize = 11
		text.Move(fyne.NewPos(x, p.y+10))
		r.objects = append(r.objects, text)
		x += 110
	}

	if !heater {
		text := canvas.NewText("heater off", color.RGBA{R: 200, G: 200, B: 200, A: 255})
		text.TextSize = 11
		text.Move(fyne.NewPos(x, p.y+10))
		r.objects = append(r.objects, text)
	}
}

func (r *scopeRenderer) addLine(c color.Color, width float32, from, to fyne.Position) {
	line := canvas.NewLine(c)
	line.Position1 = from
	line.Position2 = to
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatPPM(ppm float32) string {
	switch {
	case ppm >= 100:
		return fmt.Sprintf("%.0f ppm", ppm)
	case ppm >= 1:
		return fmt.Sprintf("%.1f ppm", ppm)
	default:
		return fmt.Sprintf("%.2f ppm", ppm)
	}
}

func formatTime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}
