// Package result turns raw detections into the two job artifacts: an overlay
// image with the boxes drawn on the input, and a CSV table of the detections.
package result

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/NethraK15/Giza-Global-Eval-Task/pkg/models"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	strokeWidth = 2
	jpegQuality = 95
)

var (
	boxColor   = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	csvHeader  = []string{"Label", "Confidence", "X1", "Y1", "X2", "Y2"}
	mimeByName = map[string]string{"png": "image/png", "jpeg": "image/jpeg"}
)

// ErrImageTooLarge is returned when an image header declares more pixels than
// the configured budget.
var ErrImageTooLarge = errors.New("image too large")

// CheckSize reads only the image header and rejects images whose width*height
// exceeds maxPixels. A maxPixels of zero or less disables the check.
func CheckSize(img []byte, maxPixels int) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return fmt.Errorf("decode image header: %w", err)
	}
	if maxPixels <= 0 {
		return nil
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > int64(maxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}

// Artifacts are the generated outputs for one job.
type Artifacts struct {
	Overlay            []byte
	OverlayContentType string
	CSV                []byte
}

// Generate draws detections on the image and tabulates them. It has no side
// effects; the same input always yields byte-identical output.
func Generate(img []byte, detections []models.Detection) (*Artifacts, error) {
	overlay, contentType, err := Overlay(img, detections)
	if err != nil {
		return nil, err
	}
	table, err := CSV(detections)
	if err != nil {
		return nil, err
	}
	return &Artifacts{Overlay: overlay, OverlayContentType: contentType, CSV: table}, nil
}

// Overlay decodes a PNG or JPEG, draws every box with its caption and encodes
// the result in the source format. Any alpha channel is dropped.
func Overlay(img []byte, detections []models.Detection) ([]byte, string, error) {
	src, name, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	contentType, ok := mimeByName[name]
	if !ok {
		return nil, "", fmt.Errorf("unsupported image format %q", name)
	}
	format, err := imaging.FormatFromExtension("." + name)
	if err != nil {
		return nil, "", fmt.Errorf("resolve format: %w", err)
	}

	canvas := imaging.Clone(src)
	for i := 3; i < len(canvas.Pix); i += 4 {
		canvas.Pix[i] = 0xff
	}

	for _, d := range detections {
		drawDetection(canvas, d)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("encode overlay: %w", err)
	}
	return buf.Bytes(), contentType, nil
}

// CSV renders one row per detection, in input order, below a fixed header.
func CSV(detections []models.Detection) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, d := range detections {
		row := []string{
			d.Label,
			strconv.FormatFloat(d.Confidence, 'f', 2, 64),
			strconv.Itoa(int(d.Box[0])),
			strconv.Itoa(int(d.Box[1])),
			strconv.Itoa(int(d.Box[2])),
			strconv.Itoa(int(d.Box[3])),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func drawDetection(dst *image.NRGBA, d models.Detection) {
	b := dst.Bounds()
	x1, y1 := clamp(int(d.Box[0]), b.Min.X, b.Max.X-1), clamp(int(d.Box[1]), b.Min.Y, b.Max.Y-1)
	x2, y2 := clamp(int(d.Box[2]), b.Min.X, b.Max.X-1), clamp(int(d.Box[3]), b.Min.Y, b.Max.Y-1)
	if x2 < x1 || y2 < y1 {
		return
	}

	for s := 0; s < strokeWidth; s++ {
		for x := x1; x <= x2; x++ {
			setIn(dst, x, y1+s, y1, y2)
			setIn(dst, x, y2-s, y1, y2)
		}
		for y := y1; y <= y2; y++ {
			setIn(dst, x1+s, y, y1, y2)
			setIn(dst, x2-s, y, y1, y2)
		}
	}

	face := basicfont.Face7x13
	caption := fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
	// Baseline above the box; inside it when the box touches the top edge.
	baseline := y1 - 3
	if baseline-face.Ascent < b.Min.Y {
		baseline = y1 + strokeWidth + face.Ascent
	}
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(boxColor),
		Face: face,
		Dot:  fixed.P(x1+strokeWidth, baseline),
	}
	drawer.DrawString(caption)
}

// setIn paints one stroke pixel, keeping thick strokes inside the box rows.
func setIn(dst *image.NRGBA, x, y, minY, maxY int) {
	if y < minY || y > maxY {
		return
	}
	dst.SetNRGBA(x, y, boxColor)
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
