package analyzer

import (
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/stat"

	"go-smear-analyzer/pkg/models"
)

// Hue-band thresholds in the OpenCV HSV convention (hue 0-180, saturation and
// value 0-255). Red wraps around zero; the purple band covers the violet hues
// of Romanowsky-stained nuclei.
const (
	redHueLow     = 10
	redHueHigh    = 170
	redSatMin     = 50
	redValMin     = 50
	purpleHueLow  = 130
	purpleHueHigh = 160
	purpleSatMin  = 40
	purpleValMin  = 40
)

const ratioEpsilon = 1e-6

// colorSpaceAnalyzer computes per-channel statistics in RGB, HSV and Lab.
type colorSpaceAnalyzer struct{}

// NewColorSpaceAnalyzer creates a colorspace analyzer.
func NewColorSpaceAnalyzer() ColorSpaceAnalyzer {
	return &colorSpaceAnalyzer{}
}

func (a *colorSpaceAnalyzer) Analyze(f *frame) models.ColorAnalysisResult {
	var result models.ColorAnalysisResult
	n := f.pixelCount()
	if n == 0 {
		result.Error = "empty image"
		return result
	}

	result.RGB = a.analyzeRGB(f)
	result.HSV = a.analyzeHSV(f)
	result.Lab = a.analyzeLab(f)
	return result
}

func (a *colorSpaceAnalyzer) analyzeRGB(f *frame) models.RGBStatistics {
	n := f.pixelCount()
	r := make([]float64, n)
	g := make([]float64, n)
	b := make([]float64, n)

	parallelRows(f.height, func(startY, endY int) {
		for i := startY * f.width; i < endY*f.width; i++ {
			pr, pg, pb := f.at(i)
			r[i] = float64(pr)
			g[i] = float64(pg)
			b[i] = float64(pb)
		}
	})

	stats := models.RGBStatistics{
		R: channelStats(r),
		G: channelStats(g),
		B: channelStats(b),
	}
	stats.RatioRG = stats.R.Mean / math.Max(stats.G.Mean, ratioEpsilon)
	stats.RatioRB = stats.R.Mean / math.Max(stats.B.Mean, ratioEpsilon)
	stats.RatioGB = stats.G.Mean / math.Max(stats.B.Mean, ratioEpsilon)
	return stats
}

func (a *colorSpaceAnalyzer) analyzeHSV(f *frame) models.HSVStatistics {
	n := f.pixelCount()
	h := make([]float64, n)
	s := make([]float64, n)
	v := make([]float64, n)

	strips, rowsPerStrip := stripCount(f.height)
	redCounts := make([]int, strips)
	purpleCounts := make([]int, strips)

	parallelRows(f.height, func(startY, endY int) {
		strip := startY / rowsPerStrip
		var red, purple int
		for i := startY * f.width; i < endY*f.width; i++ {
			pr, pg, pb := f.at(i)
			ph, ps, pv := rgbToHSV(pr, pg, pb)
			h[i], s[i], v[i] = ph, ps, pv

			if (ph < redHueLow || ph > redHueHigh) && ps > redSatMin && pv > redValMin {
				red++
			}
			if ph > purpleHueLow && ph < purpleHueHigh && ps > purpleSatMin && pv > purpleValMin {
				purple++
			}
		}
		redCounts[strip] = red
		purpleCounts[strip] = purple
	})

	var red, purple int
	for i := 0; i < strips; i++ {
		red += redCounts[i]
		purple += purpleCounts[i]
	}

	stats := models.HSVStatistics{
		H: channelStats(h),
		S: channelStats(s),
		V: channelStats(v),
	}
	stats.RedPct = float64(red) / float64(n) * 100
	stats.PurplePct = float64(purple) / float64(n) * 100
	stats.BloodHuePct = stats.RedPct + stats.PurplePct
	return stats
}

func (a *colorSpaceAnalyzer) analyzeLab(f *frame) models.LabStatistics {
	n := f.pixelCount()
	l := make([]float64, n)
	la := make([]float64, n)
	lb := make([]float64, n)

	strips, rowsPerStrip := stripCount(f.height)
	aPositive := make([]int, strips)
	bPositive := make([]int, strips)

	parallelRows(f.height, func(startY, endY int) {
		strip := startY / rowsPerStrip
		var aPos, bPos int
		for i := startY * f.width; i < endY*f.width; i++ {
			pr, pg, pb := f.at(i)
			pl, pa, pbb := rgbToLab(pr, pg, pb)
			l[i], la[i], lb[i] = pl, pa, pbb
			if pa > 0 {
				aPos++
			}
			if pbb > 0 {
				bPos++
			}
		}
		aPositive[strip] = aPos
		bPositive[strip] = bPos
	})

	var aPos, bPos int
	for i := 0; i < strips; i++ {
		aPos += aPositive[i]
		bPos += bPositive[i]
	}

	lightness := channelStats(l)
	aStats := channelStats(la)
	bStats := channelStats(lb)

	return models.LabStatistics{
		LightnessMean:       lightness.Mean,
		LightnessStd:        lightness.Std,
		LightnessContrast:   lightness.Max - lightness.Min,
		AMean:               aStats.Mean,
		AStd:                aStats.Std,
		BMean:               bStats.Mean,
		BStd:                bStats.Std,
		ARedDominancePct:    float64(aPos) / float64(n) * 100,
		BYellowDominancePct: float64(bPos) / float64(n) * 100,
	}
}

// channelStats computes the summary statistics for one channel. The slice is
// sorted in place.
func channelStats(data []float64) models.ChannelStatistics {
	if len(data) == 0 {
		return models.ChannelStatistics{}
	}
	mean := stat.Mean(data, nil)
	std := 0.0
	if len(data) > 1 {
		std = stat.StdDev(data, nil)
	}
	sort.Float64s(data)
	return models.ChannelStatistics{
		Mean:   mean,
		Std:    std,
		Median: stat.Quantile(0.5, stat.Empirical, data, nil),
		Min:    data[0],
		Max:    data[len(data)-1],
	}
}

// rgbToHSV converts an 8-bit RGB triple to HSV in the OpenCV convention:
// hue in [0,180), saturation and value in [0,255].
func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)

	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	delta := max - min

	v = max

	if max == 0 {
		s = 0
	} else {
		s = delta / max * 255
	}

	if delta == 0 {
		h = 0
	} else if max == rf {
		h = 30 * (gf - bf) / delta
	} else if max == gf {
		h = 30 * ((bf-rf)/delta + 2)
	} else {
		h = 30 * ((rf-gf)/delta + 4)
	}

	if h < 0 {
		h += 180
	}

	return h, s, v
}

// rgbToLab converts an 8-bit RGB triple to CIE Lab using the sRGB to XYZ to
// Lab transform with the D65 reference white. Lightness is rescaled to the
// 8-bit range; a* and b* are on the standard scale centered at zero.
func rgbToLab(r, g, b uint8) (l, la, lb float64) {
	c := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	cl, ca, cb := c.Lab()
	return cl * 255, ca * 100, cb * 100
}
