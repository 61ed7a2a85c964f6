package galaxy

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

type Bounds struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

// Stats summarizes the shape of a generated cloud.
type Stats struct {
	Count          int     `json:"count"`
	RadialMean     float64 `json:"radialMean"`
	RadialStdDev   float64 `json:"radialStdDev"`
	RadialMedian   float64 `json:"radialMedian"`
	RadialP90      float64 `json:"radialP90"`
	RadialMax      float64 `json:"radialMax"`
	VerticalStdDev float64 `json:"verticalStdDev"`
	Bounds         Bounds  `json:"bounds"`
	MeanColor      Color   `json:"meanColor"`
}

// ComputeStats measures planar distance from the galactic axis and the
// vertical (y) spread.
func ComputeStats(cloud *PointCloud) (Stats, error) {
	n := cloud.Len()
	result := Stats{Count: n}
	if n == 0 {
		return result, nil
	}

	radial := make([]float64, n)
	vertical := make([]float64, n)
	var r, g, b float64
	for i := 0; i < n; i++ {
		p := cloud.Position(i)
		radial[i] = math.Hypot(p.X, p.Z)
		vertical[i] = p.Y

		c := cloud.Color(i)
		r += c.R
		g += c.G
		b += c.B
	}

	if n == 1 {
		result.RadialMean = radial[0]
		result.RadialMedian = radial[0]
		result.RadialP90 = radial[0]
		result.RadialMax = radial[0]
	} else {
		result.RadialMean, result.RadialStdDev = stat.MeanStdDev(radial, nil)
		_, result.VerticalStdDev = stat.MeanStdDev(vertical, nil)

		var err error
		if result.RadialMedian, err = stats.Median(radial); err != nil {
			return Stats{}, err
		}
		if result.RadialP90, err = stats.Percentile(radial, 90); err != nil {
			return Stats{}, err
		}
		if result.RadialMax, err = stats.Max(radial); err != nil {
			return Stats{}, err
		}
	}

	box := cloud.Bounds()
	result.Bounds = Bounds{
		Min: [3]float64{box.Min.X, box.Min.Y, box.Min.Z},
		Max: [3]float64{box.Max.X, box.Max.Y, box.Max.Z},
	}
	result.MeanColor = RGB(r/float64(n), g/float64(n), b/float64(n))

	return result, nil
}
