// Package imageproc prepares uploaded images for the vision model.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"net/http"

	"github.com/disintegration/imaging"
)

const (
	MaxDimension      = 1024
	FallbackDimension = 768
	// MaxEncodedBytes is the ceiling on the first-pass PNG before a smaller,
	// harder-compressed second pass is attempted.
	MaxEncodedBytes = 3900 * 1024
)

// Result is the buffer to forward. Degraded means normalization failed and
// Data holds the original upload unchanged.
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Degraded    bool
	Err         error
}

// Normalize fits the image inside MaxDimension without upscaling, converts it
// to 8-bit RGBA and re-encodes it as PNG. It never fails: on decode or encode
// errors the original bytes come back flagged as degraded.
func Normalize(data []byte) Result {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return degraded(data, fmt.Errorf("decode image: %w", err))
	}

	fitted := imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	encoded, err := encodePNG(fitted, png.DefaultCompression)
	if err != nil {
		return degraded(data, fmt.Errorf("encode png: %w", err))
	}

	result := Result{
		Data:        encoded,
		ContentType: "image/png",
		Width:       fitted.Bounds().Dx(),
		Height:      fitted.Bounds().Dy(),
	}
	if len(encoded) <= MaxEncodedBytes {
		return result
	}

	smaller := imaging.Fit(fitted, FallbackDimension, FallbackDimension, imaging.Lanczos)
	reencoded, err := encodePNG(smaller, png.BestCompression)
	if err != nil {
		result.Err = fmt.Errorf("second pass encode: %w", err)
		return result
	}
	result.Data = reencoded
	result.Width = smaller.Bounds().Dx()
	result.Height = smaller.Bounds().Dy()
	return result
}

func encodePNG(img image.Image, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, withAlpha{toNRGBA(img)}, imaging.PNG, imaging.PNGCompressionLevel(level)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toNRGBA forces RGB with an alpha channel regardless of the source model
// (grayscale, paletted, CMYK JPEGs).
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	return imaging.Clone(img)
}

// withAlpha reports itself as non-opaque so the PNG encoder writes an RGBA
// color type even for fully opaque pictures.
type withAlpha struct {
	*image.NRGBA
}

func (withAlpha) Opaque() bool { return false }

func degraded(data []byte, err error) Result {
	return Result{
		Data:        data,
		ContentType: http.DetectContentType(data),
		Degraded:    true,
		Err:         err,
	}
}
