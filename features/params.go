package features

import "math"

// Parameter names, in export order.
const (
	KeyEARAvg     = "ear_avg"
	KeyMAR        = "mar"
	KeySmileCoeff = "smile_coeff"
	KeyMouthWidth = "mouth_width"
	KeyBrowDist   = "brow_dist"
)

// Keys lists the five parameter names in a stable order.
var Keys = []string{KeyEARAvg, KeyMAR, KeySmileCoeff, KeyMouthWidth, KeyBrowDist}

// Params is the five-parameter vector computed for every frame.
// All values are dimensionless.
type Params struct {
	EARAvg     float64 `json:"ear_avg" yaml:"ear_avg"`
	MAR        float64 `json:"mar" yaml:"mar"`
	SmileCoeff float64 `json:"smile_coeff" yaml:"smile_coeff"`
	MouthWidth float64 `json:"mouth_width" yaml:"mouth_width"`
	BrowDist   float64 `json:"brow_dist" yaml:"brow_dist"`
}

// Values returns the parameters in Keys order.
func (p Params) Values() [5]float64 {
	return [5]float64{p.EARAvg, p.MAR, p.SmileCoeff, p.MouthWidth, p.BrowDist}
}

// FromValues is the inverse of Values.
func FromValues(v [5]float64) Params {
	return Params{EARAvg: v[0], MAR: v[1], SmileCoeff: v[2], MouthWidth: v[3], BrowDist: v[4]}
}

// Map returns the vector keyed by parameter name.
func (p Params) Map() map[string]float64 {
	v := p.Values()
	m := make(map[string]float64, len(Keys))
	for i, k := range Keys {
		m[k] = v[i]
	}
	return m
}

// Sub returns p - q per parameter.
func (p Params) Sub(q Params) Params {
	a, b := p.Values(), q.Values()
	for i := range a {
		a[i] -= b[i]
	}
	return FromValues(a)
}

// Finite reports whether every parameter is a finite number.
func (p Params) Finite() bool {
	for _, v := range p.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
