package infer

import (
	"encoding/csv"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
)

// SubmissionWriter serializes evaluator predictions, one file per test
// sample, named deterministically by sample ID. With saving disabled it is a
// no-op and touches the filesystem not at all. An individual sample's write
// failure is logged and skipped; the remaining samples are unaffected.
type SubmissionWriter struct {
	save    bool
	dir     string
	ext     string
	made    bool
	written int
	skipped int
}

// NewSubmissionWriter creates a writer for the submission config section.
// The ext must be one of "png" or "csv" (enforced at config validation).
func NewSubmissionWriter(save bool, dir, ext string) *SubmissionWriter {
	return &SubmissionWriter{save: save, dir: dir, ext: ext}
}

// Write serializes one prediction. The per-pixel argmax label plane is what
// gets written: a grayscale PNG or a CSV of label rows.
func (w *SubmissionWriter) Write(sampleID string, pred Image) {
	if !w.save {
		return
	}
	if !w.made {
		if err := os.MkdirAll(w.dir, 0o755); err != nil {
			w.skipped++
			logrus.Warnf("submission: create %s: %v; skipping %s", w.dir, err, sampleID)
			return
		}
		w.made = true
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s.%s", sampleID, w.ext))
	var err error
	switch w.ext {
	case "png":
		err = writePNG(path, pred)
	case "csv":
		err = writeCSV(path, pred)
	default:
		err = fmt.Errorf("unsupported ext %q", w.ext)
	}
	if err != nil {
		w.skipped++
		logrus.Warnf("submission: sample %s: %v", sampleID, err)
		return
	}
	w.written++
}

// Written returns how many samples were serialized successfully.
func (w *SubmissionWriter) Written() int { return w.written }

// Skipped returns how many samples failed and were skipped.
func (w *SubmissionWriter) Skipped() int { return w.skipped }

func writePNG(path string, pred Image) error {
	labels := pred.Argmax()
	img := image.NewGray(image.Rect(0, 0, pred.W, pred.H))
	for i, l := range labels {
		img.SetGray(i%pred.W, i/pred.W, color.Gray{Y: uint8(l)})
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(path string, pred Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	labels := pred.Argmax()
	row := make([]string, pred.W)
	for y := 0; y < pred.H; y++ {
		for x := 0; x < pred.W; x++ {
			row[x] = strconv.Itoa(labels[y*pred.W+x])
		}
		if err := cw.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
