package analyzer

import (
	"image"
	"runtime"
	"sync"
)

// frame is a compact 8-bit RGB copy of a decoded image. It is built once per
// analysis call and shared read-only by every stage. Grayscale sources end up
// channel-replicated because the conversion goes through color.RGBA.
type frame struct {
	width  int
	height int
	pix    []uint8 // 3 bytes per pixel, row-major
}

func newFrame(img image.Image) *frame {
	bounds := img.Bounds()
	f := &frame{
		width:  bounds.Dx(),
		height: bounds.Dy(),
	}
	if f.width <= 0 || f.height <= 0 {
		return f
	}
	f.pix = make([]uint8, 3*f.width*f.height)

	parallelRows(f.height, func(startY, endY int) {
		for y := startY; y < endY; y++ {
			i := 3 * y * f.width
			for x := 0; x < f.width; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				f.pix[i] = uint8(r >> 8)
				f.pix[i+1] = uint8(g >> 8)
				f.pix[i+2] = uint8(b >> 8)
				i += 3
			}
		}
	})
	return f
}

func (f *frame) pixelCount() int {
	return f.width * f.height
}

// at returns the RGB triple of the i-th pixel in row-major order.
func (f *frame) at(i int) (r, g, b uint8) {
	j := 3 * i
	return f.pix[j], f.pix[j+1], f.pix[j+2]
}

// parallelRows splits [0,height) into horizontal strips, one per worker, and
// runs fn on each concurrently. Strips are disjoint so workers never share
// output cells; callers that accumulate floats must keep per-strip partials
// and reduce them in strip order to stay deterministic.
func parallelRows(height int, fn func(startY, endY int)) {
	workers := runtime.NumCPU()
	if height < workers {
		workers = height
	}
	if workers < 1 {
		workers = 1
	}
	rowsPerWorker := (height + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > height {
			endY = height
		}
		if startY >= endY {
			continue
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			fn(startY, endY)
		}(startY, endY)
	}
	wg.Wait()
}

// stripCount returns the number of strips parallelRows would use for height,
// so callers can pre-size per-strip accumulator slices.
func stripCount(height int) (strips, rowsPerStrip int) {
	if height <= 0 {
		return 0, 0
	}
	workers := runtime.NumCPU()
	if height < workers {
		workers = height
	}
	if workers < 1 {
		workers = 1
	}
	rowsPerStrip = (height + workers - 1) / workers
	strips = (height + rowsPerStrip - 1) / rowsPerStrip
	return strips, rowsPerStrip
}
