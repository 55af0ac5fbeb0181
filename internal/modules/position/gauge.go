package position

// Gauge statuses.
const (
	GaugeBelowMin    = "below-min"
	GaugeWithinRange = "within-range"
	GaugeAboveMax    = "above-max"
)

// Marker is a target boundary drawn on the gauge track, as a 0-100 position.
type Marker struct {
	Position float64 `json:"position"`
}

// Gauge is the renderable position gauge. Fill never exceeds 100 even when
// the ratio does; the status still reports the real over-invested state.
type Gauge struct {
	Fill    float64  `json:"fill"`
	Status  string   `json:"status"`
	Markers []Marker `json:"markers"`
}

// BuildGauge derives the gauge from the position ratio and target range.
// Markers that coincide with the track edge (min of 0, max of 100) are
// omitted.
func BuildGauge(ratio, targetMin, targetMax float64) Gauge {
	g := Gauge{
		Fill:    clamp(ratio, 0, 100),
		Status:  GaugeWithinRange,
		Markers: []Marker{},
	}
	if ratio < targetMin {
		g.Status = GaugeBelowMin
	} else if ratio > targetMax {
		g.Status = GaugeAboveMax
	}

	if targetMin > 0 {
		g.Markers = append(g.Markers, Marker{Position: clamp(targetMin, 0, 100)})
	}
	if targetMax < 100 {
		g.Markers = append(g.Markers, Marker{Position: clamp(targetMax, 0, 100)})
	}
	return g
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
