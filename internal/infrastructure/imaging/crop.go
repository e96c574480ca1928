// Package imaging fetches post images and prepares them for OCR.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Region is the band of the image kept for OCR.
type Region struct {
	// TopRatio is the fraction of the height kept from the top; outside (0,1) keeps everything.
	TopRatio float64
	// MaxWidth caps the output width; zero disables resizing.
	MaxWidth int
}

// CropAndResize keeps the top band of the image, scales it down to MaxWidth and encodes PNG.
func CropAndResize(data []byte, region Region) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	height := bounds.Dy()
	if region.TopRatio > 0 && region.TopRatio < 1 {
		height = int(float64(height) * region.TopRatio)
	}
	if height < 1 {
		height = 1
	}
	crop := image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+height)

	width := crop.Dx()
	outW, outH := width, crop.Dy()
	if region.MaxWidth > 0 && width > region.MaxWidth {
		outW = region.MaxWidth
		outH = crop.Dy() * region.MaxWidth / width
		if outH < 1 {
			outH = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Cropper returns a CropAndResize bound to region.
func Cropper(region Region) func([]byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		return CropAndResize(data, region)
	}
}
