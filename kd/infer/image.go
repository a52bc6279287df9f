// Package infer provides test-time multi-scale sliding-window inference and
// the submission writer that serializes its output.
package infer

import (
	"fmt"
	"math"
)

// Image is a dense CHW float64 tensor: channel-major planes of H rows by W
// columns. It carries both input images and per-class prediction maps.
type Image struct {
	C, H, W int
	Data    []float64
}

// NewImage allocates a zeroed C×H×W tensor.
func NewImage(c, h, w int) Image {
	return Image{C: c, H: h, W: w, Data: make([]float64, c*h*w)}
}

// At returns the value at (channel, row, col). No bounds checks beyond the
// slice's own.
func (im Image) At(c, y, x int) float64 {
	return im.Data[(c*im.H+y)*im.W+x]
}

// Set stores a value at (channel, row, col).
func (im Image) Set(c, y, x int, v float64) {
	im.Data[(c*im.H+y)*im.W+x] = v
}

// Plane returns channel c's H*W backing slice.
func (im Image) Plane(c int) []float64 {
	return im.Data[c*im.H*im.W : (c+1)*im.H*im.W]
}

// Crop copies the [y0,y0+h)×[x0,x0+w) window across all channels.
func (im Image) Crop(y0, x0, h, w int) Image {
	out := NewImage(im.C, h, w)
	for c := 0; c < im.C; c++ {
		for y := 0; y < h; y++ {
			srcRow := (c*im.H+y0+y)*im.W + x0
			dstRow := (c*h + y) * w
			copy(out.Data[dstRow:dstRow+w], im.Data[srcRow:srcRow+w])
		}
	}
	return out
}

// Resize produces a bilinear resampling of the image at h×w. The identity
// size returns a copy.
func Resize(im Image, h, w int) (Image, error) {
	if h < 1 || w < 1 {
		return Image{}, fmt.Errorf("resize: target %dx%d must be positive", h, w)
	}
	out := NewImage(im.C, h, w)
	if h == im.H && w == im.W {
		copy(out.Data, im.Data)
		return out, nil
	}
	sy := float64(im.H) / float64(h)
	sx := float64(im.W) / float64(w)
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)*sy - 0.5
		y0 := int(math.Floor(fy))
		wy := fy - float64(y0)
		y1 := clamp(y0+1, 0, im.H-1)
		y0 = clamp(y0, 0, im.H-1)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			x0 := int(math.Floor(fx))
			wx := fx - float64(x0)
			x1 := clamp(x0+1, 0, im.W-1)
			x0 = clamp(x0, 0, im.W-1)
			for c := 0; c < im.C; c++ {
				top := im.At(c, y0, x0)*(1-wx) + im.At(c, y0, x1)*wx
				bot := im.At(c, y1, x0)*(1-wx) + im.At(c, y1, x1)*wx
				out.Set(c, y, x, top*(1-wy)+bot*wy)
			}
		}
	}
	return out, nil
}

// Argmax collapses the class dimension: for every pixel, the index of the
// largest channel value. Ties resolve to the lowest class index.
func (im Image) Argmax() []int {
	out := make([]int, im.H*im.W)
	for i := range out {
		best := im.Data[i]
		for c := 1; c < im.C; c++ {
			if v := im.Data[c*im.H*im.W+i]; v > best {
				best = v
				out[i] = c
			}
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
