// Package photo prepares image files for oracle analysis: validation,
// loading, metadata extraction, and canonical JPEG payload encoding.
package photo

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"aperture/internal/logging"
)

// ErrUnreadable is returned when a file passes validation but cannot be
// decoded as an image.
var ErrUnreadable = errors.New("photo: image unreadable")

// validExtensions is the accepted extension allow-list. Only JPEG sources are
// graded; RAW and other formats must be converted by the photographer first.
var validExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
}

// Info is the basic descriptive metadata extracted during preparation.
type Info struct {
	Format        string `json:"format"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	ColorMode     string `json:"color_mode"`
	PostProcessed bool   `json:"post_processed"`
	EXIF          *Meta  `json:"exif,omitempty"`
}

// Processor handles loading, validation, and preparation of images.
type Processor struct {
	// MaxDimension caps the longest payload edge; larger images are
	// downscaled before encoding. Zero disables scaling.
	MaxDimension int
	// Quality is the JPEG re-encode quality for the transport payload.
	Quality int

	log *slog.Logger
}

// NewProcessor returns a Processor with transport-friendly defaults.
func NewProcessor() *Processor {
	return &Processor{
		MaxDimension: 2048,
		Quality:      85,
		log:          logging.New("photo"),
	}
}

// Validate reports whether path exists and carries an accepted image
// extension (case-insensitive).
func (p *Processor) Validate(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return validExtensions[strings.ToLower(filepath.Ext(path))]
}

// Load reads and decodes the image at path.
func (p *Processor) Load(path string) (image.Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	return img, nil
}

// ExtractInfo builds the descriptive metadata for a decoded image. The raw
// bytes are consulted for EXIF; raw may be nil when unavailable.
func (p *Processor) ExtractInfo(img image.Image, raw []byte) *Info {
	bounds := img.Bounds()
	info := &Info{
		Format:    "JPEG",
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		ColorMode: colorMode(img),
	}
	if meta := ExtractMeta(raw); meta != nil {
		info.EXIF = meta
		info.PostProcessed = meta.EditedBySoftware()
	}
	return info
}

// Encode re-encodes the image as a canonical JPEG, downscaled to
// MaxDimension if needed, and returns it base64-encoded for transport.
func (p *Processor) Encode(img image.Image) (string, error) {
	img = p.scale(img)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality()}); err != nil {
		return "", fmt.Errorf("photo: encode payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Prepare composes validation, loading, metadata extraction, and encoding.
// It never returns an error: failure is signaled by ("", nil).
func (p *Processor) Prepare(path string) (string, *Info) {
	if !p.Validate(path) {
		p.log.Warn("validation failed", "path", path)
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		p.log.Warn("read failed", "path", path, "error", err)
		return "", nil
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		p.log.Warn("decode failed", "path", path, "error", err)
		return "", nil
	}
	info := p.ExtractInfo(img, raw)
	payload, err := p.Encode(img)
	if err != nil {
		p.log.Warn("encode failed", "path", path, "error", err)
		return "", nil
	}
	return payload, info
}

func (p *Processor) quality() int {
	if p.Quality <= 0 || p.Quality > 100 {
		return 85
	}
	return p.Quality
}

// scale downscales img so its longest edge fits MaxDimension. Images at or
// under the cap are returned as-is.
func (p *Processor) scale(img image.Image) image.Image {
	if p.MaxDimension <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= p.MaxDimension {
		return img
	}

	ratio := float64(p.MaxDimension) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*ratio), int(float64(h)*ratio)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// colorMode names the decoded color model the way photographers expect to
// read it in metadata exports.
func colorMode(img image.Image) string {
	switch img.(type) {
	case *image.YCbCr:
		return "YCbCr"
	case *image.Gray, *image.Gray16:
		return "Grayscale"
	case *image.CMYK:
		return "CMYK"
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64:
		return "RGB"
	default:
		return "Unknown"
	}
}
