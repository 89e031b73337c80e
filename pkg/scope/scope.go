package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/chewxy/math32"
	"github.com/itohio/gomics/pkg/config"
	"github.com/itohio/gomics/pkg/meter"
	"github.com/itohio/gomics/pkg/mics6814"
	"github.com/itohio/gomics/pkg/sample"
)

// Concentrations below this are drawn on the bottom edge of the log scale.
const minPPM = 0.01

// gasColors are the trace colors of CO, NO2 and NH3.
var gasColors = [mics6814.NumGases]color.RGBA{
	mics6814.CO:  {R: 255, G: 165, B: 0, A: 255},   // Orange
	mics6814.NO2: {R: 220, G: 60, B: 60, A: 255},   // Red
	mics6814.NH3: {R: 100, G: 200, B: 255, A: 255}, // Light blue
}

// ScopeWidget plots the concentration history of all gases on a logarithmic
// ppm axis and marks alarms.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu      sync.RWMutex
	samples []sample.Sample
	alarms  []meter.Alarm
	heater  bool

	// Display buffer (reused for downsampling)
	displaySamples []sample.Sample

	// Auto-scaling, decades of ppm
	decadeMin, decadeMax float32
	xMin, xMax           time.Time

	maxDisplayPoints int
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	s := &ScopeWidget{
		cfg:              cfg,
		displaySamples:   make([]sample.Sample, 0, 1000),
		maxDisplayPoints: 1000, // Limit points for efficient rendering
	}
	s.updateAutoScale()
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// UpdateData updates the widget with new measurement data.
// Alarm indices refer to samples. Call it from the meter callback using fyne.Do().
func (s *ScopeWidget) UpdateData(samples []sample.Sample, alarms []meter.Alarm, heater bool) {
	s.mu.Lock()
	s.displaySamples = sample.DownsampleSamples(s.displaySamples, samples, s.maxDisplayPoints)
	s.samples = samples
	s.alarms = alarms
	s.heater = heater
	s.updateAutoScale()
	s.mu.Unlock()

	s.Refresh()
}

// updateAutoScale calculates axis ranges from current data.
func (s *ScopeWidget) updateAutoScale() {
	s.decadeMin, s.decadeMax = decadeRange(s.displaySamples, s.cfg.Measurement.Thresholds)

	window := time.Duration(s.cfg.Measurement.WindowSeconds * float64(time.Second))
	if len(s.displaySamples) == 0 {
		s.xMin = time.Now()
		s.xMax = s.xMin.Add(window)
		return
	}

	s.xMin = s.displaySamples[0].Timestamp
	s.xMax = s.displaySamples[len(s.displaySamples)-1].Timestamp
	// Ensure minimum window
	if s.xMax.Sub(s.xMin) < window {
		s.xMax = s.xMin.Add(window)
	}
}

// decadeRange returns the whole decades spanning all valid concentrations
// and the enabled thresholds. The range is at least one decade.
func decadeRange(samples []sample.Sample, thresholds config.Thresholds) (lo, hi float32) {
	lo, hi = math32.Inf(1), math32.Inf(-1)
	include := func(ppm float32) {
		if ppm < minPPM {
			ppm = minPPM
		}
		d := math32.Log10(ppm)
		lo = math32.Min(lo, d)
		hi = math32.Max(hi, d)
	}

	for _, s := range samples {
		for _, g := range mics6814.Gases {
			if s.Valid(g) {
				include(s.Concentration[g])
			}
		}
	}
	for _, g := range mics6814.Gases {
		if t := thresholds.Get(g); t > 0 {
			include(t)
		}
	}

	if math32.IsInf(lo, 1) {
		return 0, 1
	}
	// Tolerate rounding of exact decades
	const eps = 1e-4
	lo, hi = math32.Floor(lo+eps), math32.Ceil(hi-eps)
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
