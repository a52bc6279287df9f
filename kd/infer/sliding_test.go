package infer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// meanPredictor maps every pixel of a tile to two class scores derived from
// the tile's mean intensity. Deterministic and position-independent, so tiled
// and whole-image evaluation agree on uniform inputs.
type meanPredictor struct {
	calls int
}

func (p *meanPredictor) Predict(tile Image) (Image, error) {
	p.calls++
	sum := 0.0
	for _, v := range tile.Data {
		sum += v
	}
	mean := sum / float64(len(tile.Data))
	out := NewImage(2, tile.H, tile.W)
	for i := 0; i < tile.H*tile.W; i++ {
		out.Plane(0)[i] = mean
		out.Plane(1)[i] = 1 - mean
	}
	return out, nil
}

type failingPredictor struct{}

func (failingPredictor) Predict(Image) (Image, error) {
	return Image{}, fmt.Errorf("device lost")
}

func uniformImage(c, h, w int, v float64) Image {
	img := NewImage(c, h, w)
	for i := range img.Data {
		img.Data[i] = v
	}
	return img
}

func TestSlidingWindow_DegeneratesToSingleForwardPass(t *testing.T) {
	// one scale, crop covering the image: output identical to a direct
	// forward pass, exactly one model call
	model := &meanPredictor{}
	img := uniformImage(3, 16, 20, 0.25)

	sw := NewSlidingWindow(model, []float64{1.0}, 32)
	got, err := sw.Evaluate(img)
	require.NoError(t, err)
	assert.Equal(t, 1, model.calls)

	direct, err := (&meanPredictor{}).Predict(img)
	require.NoError(t, err)
	assert.Equal(t, direct.C, got.C)
	assert.Equal(t, direct.H, got.H)
	assert.Equal(t, direct.W, got.W)
	assert.InDeltaSlice(t, direct.Data, got.Data, 1e-12)
}

func TestSlidingWindow_TilesCoverAndAverage(t *testing.T) {
	// uniform input: every tile predicts the same values, so overlap
	// averaging must reproduce the whole-image answer bit-for-bit modulo
	// floating point
	model := &meanPredictor{}
	img := uniformImage(1, 30, 30, 0.5)

	sw := NewSlidingWindow(model, []float64{1.0}, 16)
	got, err := sw.Evaluate(img)
	require.NoError(t, err)
	assert.Greater(t, model.calls, 1, "tiling must run multiple forward passes")

	for i, v := range got.Plane(0) {
		assert.InDelta(t, 0.5, v, 1e-9, "pixel %d", i)
	}
	for i, v := range got.Plane(1) {
		assert.InDelta(t, 0.5, v, 1e-9, "pixel %d", i)
	}
}

func TestSlidingWindow_MultiScaleEqualWeightAverage(t *testing.T) {
	model := &meanPredictor{}
	img := uniformImage(1, 12, 12, 0.8)

	sw := NewSlidingWindow(model, []float64{0.5, 1.0, 2.0}, 64)
	got, err := sw.Evaluate(img)
	require.NoError(t, err)

	// uniform input is scale-invariant: the three per-scale predictions
	// agree, and their equal-weight average equals any one of them
	assert.Equal(t, 3, model.calls)
	for _, v := range got.Plane(0) {
		assert.InDelta(t, 0.8, v, 1e-9)
	}
	assert.Equal(t, 12, got.H)
	assert.Equal(t, 12, got.W)
}

func TestSlidingWindow_ModelErrorPropagates(t *testing.T) {
	sw := NewSlidingWindow(failingPredictor{}, []float64{1.0}, 8)
	_, err := sw.Evaluate(uniformImage(1, 4, 4, 0))
	assert.ErrorContains(t, err, "device lost")
}

func TestTileOffsets_CoverWithOverlap(t *testing.T) {
	offsets := tileOffsets(30, 16)
	require.NotEmpty(t, offsets)
	assert.Equal(t, 0, offsets[0])
	assert.Equal(t, 14, offsets[len(offsets)-1], "last tile ends at the edge")
	for i := 1; i < len(offsets); i++ {
		assert.Less(t, offsets[i]-offsets[i-1], 16, "consecutive tiles overlap")
	}
}

func TestTileOffsets_CropLargerThanAxis(t *testing.T) {
	assert.Equal(t, []int{0}, tileOffsets(10, 16))
}

func TestResize_IdentityAndScaling(t *testing.T) {
	img := uniformImage(2, 8, 8, 0.3)

	same, err := Resize(img, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, img.Data, same.Data)

	up, err := Resize(img, 16, 12)
	require.NoError(t, err)
	assert.Equal(t, 16, up.H)
	assert.Equal(t, 12, up.W)
	for _, v := range up.Data {
		assert.InDelta(t, 0.3, v, 1e-9, "bilinear resampling preserves a constant field")
	}
}

func TestImage_Argmax(t *testing.T) {
	img := NewImage(3, 1, 2)
	img.Set(0, 0, 0, 0.7)
	img.Set(1, 0, 0, 0.2)
	img.Set(2, 0, 0, 0.1)
	img.Set(0, 0, 1, 0.1)
	img.Set(1, 0, 1, 0.3)
	img.Set(2, 0, 1, 0.6)
	assert.Equal(t, []int{0, 2}, img.Argmax())
}
