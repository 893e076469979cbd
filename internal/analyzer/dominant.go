package analyzer

import (
	"math"
	"math/rand"
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"go-smear-analyzer/pkg/models"
)

const (
	// sampleLimit bounds clustering cost independent of image resolution.
	sampleLimit         = 10000
	clusterCount        = 5
	maxKMeansIterations = 50
)

// dominantColorExtractor clusters sampled pixels into representative colors.
// All randomness (sampling and centroid initialization) comes from the
// caller-supplied seed, so identical input and seed reproduce identical
// clusters.
type dominantColorExtractor struct{}

// NewDominantColorExtractor creates a dominant color extractor.
func NewDominantColorExtractor() DominantColorExtractor {
	return &dominantColorExtractor{}
}

func (e *dominantColorExtractor) Extract(f *frame, seed int64) models.DominantColorResult {
	n := f.pixelCount()
	if n == 0 {
		return models.DominantColorResult{Error: "empty image"}
	}

	rng := rand.New(rand.NewSource(seed))
	samples := e.samplePixels(f, rng)

	k := clusterCount
	if k > len(samples) {
		k = len(samples)
	}

	centroids, assignments := kMeans(samples, k, rng)

	counts := make([]int, k)
	for _, c := range assignments {
		counts[c]++
	}

	colors := make([]models.DominantColor, 0, k)
	for i := 0; i < k; i++ {
		r := int(math.Round(centroids[i][0]))
		g := int(math.Round(centroids[i][1]))
		b := int(math.Round(centroids[i][2]))
		c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
		colors = append(colors, models.DominantColor{
			R:          r,
			G:          g,
			B:          b,
			Hex:        c.Hex(),
			Percentage: float64(counts[i]) / float64(len(samples)) * 100,
			Name:       coarseColorName(r, g, b),
		})
	}

	sort.SliceStable(colors, func(i, j int) bool {
		if colors[i].Percentage != colors[j].Percentage {
			return colors[i].Percentage > colors[j].Percentage
		}
		return colors[i].Hex < colors[j].Hex
	})

	return models.DominantColorResult{Colors: colors}
}

// samplePixels returns every pixel for small images and sampleLimit
// seeded-uniform draws otherwise.
func (e *dominantColorExtractor) samplePixels(f *frame, rng *rand.Rand) [][3]float64 {
	n := f.pixelCount()
	if n <= sampleLimit {
		samples := make([][3]float64, n)
		for i := 0; i < n; i++ {
			r, g, b := f.at(i)
			samples[i] = [3]float64{float64(r), float64(g), float64(b)}
		}
		return samples
	}

	samples := make([][3]float64, sampleLimit)
	for i := 0; i < sampleLimit; i++ {
		r, g, b := f.at(rng.Intn(n))
		samples[i] = [3]float64{float64(r), float64(g), float64(b)}
	}
	return samples
}

// kMeans clusters the samples in RGB space. Assignment ties break toward the
// lowest centroid index, keeping the result independent of iteration order.
func kMeans(samples [][3]float64, k int, rng *rand.Rand) (centroids [][3]float64, assignments []int) {
	centroids = make([][3]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = samples[rng.Intn(len(samples))]
	}

	assignments = make([]int, len(samples))
	sums := make([][3]float64, k)
	counts := make([]int, k)

	for iter := 0; iter < maxKMeansIterations; iter++ {
		changed := false
		for i, s := range samples {
			best := 0
			bestDist := squaredDistance(s, centroids[0])
			for c := 1; c < k; c++ {
				if d := squaredDistance(s, centroids[c]); d < bestDist {
					best = c
					bestDist = d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		for c := 0; c < k; c++ {
			sums[c] = [3]float64{}
			counts[c] = 0
		}
		for i, s := range samples {
			c := assignments[i]
			sums[c][0] += s[0]
			sums[c][1] += s[1]
			sums[c][2] += s[2]
			counts[c]++
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Re-seed empty clusters from a random sample.
				centroids[c] = samples[rng.Intn(len(samples))]
				continue
			}
			centroids[c] = [3]float64{
				sums[c][0] / float64(counts[c]),
				sums[c][1] / float64(counts[c]),
				sums[c][2] / float64(counts[c]),
			}
		}
	}

	return centroids, assignments
}

func squaredDistance(a, b [3]float64) float64 {
	dr := a[0] - b[0]
	dg := a[1] - b[1]
	db := a[2] - b[2]
	return dr*dr + dg*dg + db*db
}
