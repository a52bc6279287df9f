package infer

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Predictor is the external model forward pass: one tile in, one per-class
// score map of the same spatial size out.
type Predictor interface {
	Predict(tile Image) (Image, error)
}

// SlidingWindow runs multi-scale tiled inference. Each scale is evaluated
// independently (resize, overlapping crop_size tiles, per-pixel averaging of
// tile overlaps), then the per-scale predictions are combined with equal
// weight at the input resolution.
type SlidingWindow struct {
	model  Predictor
	scales []float64
	crop   int
}

// NewSlidingWindow creates an evaluator. Scales and crop size come from the
// test config section and are assumed validated (positive).
func NewSlidingWindow(model Predictor, scales []float64, cropSize int) *SlidingWindow {
	return &SlidingWindow{model: model, scales: scales, crop: cropSize}
}

// Evaluate produces the combined multi-scale prediction for one image.
func (sw *SlidingWindow) Evaluate(img Image) (Image, error) {
	var combined Image
	for _, scale := range sw.scales {
		h := scaledDim(img.H, scale)
		w := scaledDim(img.W, scale)
		resized, err := Resize(img, h, w)
		if err != nil {
			return Image{}, fmt.Errorf("scale %v: %w", scale, err)
		}

		pred, err := sw.evaluateScale(resized)
		if err != nil {
			return Image{}, fmt.Errorf("scale %v: %w", scale, err)
		}

		// bring the per-scale prediction back to input resolution
		full, err := Resize(pred, img.H, img.W)
		if err != nil {
			return Image{}, fmt.Errorf("scale %v: %w", scale, err)
		}

		if combined.Data == nil {
			combined = full
			continue
		}
		if combined.C != full.C {
			return Image{}, fmt.Errorf("scale %v: model produced %d classes, earlier scale produced %d", scale, full.C, combined.C)
		}
		floats.Add(combined.Data, full.Data)
	}
	floats.Scale(1/float64(len(sw.scales)), combined.Data)
	return combined, nil
}

// evaluateScale runs the tiled forward passes for one resized image. When the
// crop covers the whole image this is a single forward pass with no tiling.
func (sw *SlidingWindow) evaluateScale(img Image) (Image, error) {
	if sw.crop >= img.H && sw.crop >= img.W {
		return sw.model.Predict(img)
	}

	var out Image
	counts := make([]float64, img.H*img.W)
	tiles := 0
	for _, y := range tileOffsets(img.H, sw.crop) {
		for _, x := range tileOffsets(img.W, sw.crop) {
			h := min(sw.crop, img.H-y)
			w := min(sw.crop, img.W-x)
			pred, err := sw.model.Predict(img.Crop(y, x, h, w))
			if err != nil {
				return Image{}, fmt.Errorf("tile (%d,%d): %w", y, x, err)
			}
			if pred.H != h || pred.W != w {
				return Image{}, fmt.Errorf("tile (%d,%d): prediction %dx%d, want %dx%d", y, x, pred.H, pred.W, h, w)
			}
			if out.Data == nil {
				out = NewImage(pred.C, img.H, img.W)
			}
			for c := 0; c < pred.C; c++ {
				for ty := 0; ty < h; ty++ {
					row := out.Plane(c)[(y+ty)*img.W+x:]
					floats.Add(row[:w], pred.Plane(c)[ty*w:ty*w+w])
				}
			}
			for ty := 0; ty < h; ty++ {
				row := counts[(y+ty)*img.W+x:]
				floats.AddConst(1, row[:w])
			}
			tiles++
		}
	}
	logrus.Debugf("sliding window: %d tiles at %dx%d", tiles, img.H, img.W)

	// average the overlap regions
	for c := 0; c < out.C; c++ {
		floats.Div(out.Plane(c), counts)
	}
	return out, nil
}

// tileOffsets returns the window start positions covering [0,size) with
// crop-sized tiles and roughly one-third overlap. The final tile is pulled
// back so it ends exactly at the edge.
func tileOffsets(size, crop int) []int {
	if crop >= size {
		return []int{0}
	}
	stride := crop - crop/3
	if stride < 1 {
		stride = 1
	}
	offsets := []int{}
	for pos := 0; ; pos += stride {
		if pos+crop >= size {
			offsets = append(offsets, size-crop)
			break
		}
		offsets = append(offsets, pos)
	}
	return offsets
}

func scaledDim(dim int, scale float64) int {
	d := int(float64(dim)*scale + 0.5)
	if d < 1 {
		return 1
	}
	return d
}
