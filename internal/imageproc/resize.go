// Package imageproc bounds uploaded photos before they are sent to the
// generation model: the longest edge is clamped to MaxEdge and the image is
// re-encoded as JPEG at a fixed quality, which caps both payload size and
// model input resolution.
package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	_ "image/gif" // register GIF decoder
	_ "image/png" // register PNG decoder

	_ "golang.org/x/image/webp" // register WebP decoder

	"headshot/internal/domain"
)

const (
	// MaxEdge is the upper bound for either image dimension.
	MaxEdge = 1024

	// JPEGQuality is the fixed re-encoding quality.
	JPEGQuality = 85

	// MIMEJPEG is the MIME type of every resizer output.
	MIMEJPEG = "image/jpeg"
)

// Downscale decodes src, scales it so that its longest edge is at most
// MaxEdge (aspect ratio preserved), and re-encodes it as JPEG at JPEGQuality.
// Images already within bounds keep their dimensions but still go through the
// lossy re-encode.
func Downscale(src *domain.EncodedImage) (*domain.EncodedImage, error) {
	if src == nil || len(src.Data) == 0 {
		return nil, domain.ErrNoSourceImage
	}
	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := TargetDimensions(bounds.Dx(), bounds.Dy())
	if width != bounds.Dx() || height != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return &domain.EncodedImage{Data: buf.Bytes(), MIME: MIMEJPEG}, nil
}

// TargetDimensions scales (width, height) uniformly so the longest edge is at
// most MaxEdge. Dimensions already within bounds are returned unchanged.
func TargetDimensions(width, height int) (int, int) {
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= MaxEdge {
		return width, height
	}
	scale := float64(MaxEdge) / float64(longest)
	if width >= height {
		width = MaxEdge
		height = int(float64(height)*scale + 0.5)
	} else {
		height = MaxEdge
		width = int(float64(width)*scale + 0.5)
	}
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}
