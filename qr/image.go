package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Format is an output image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
)

var (
	moduleColor     = color.Gray{Y: 0x00}
	backgroundColor = color.Gray{Y: 0xFF}
)

// FormatForPath picks the encoding from the file extension. Unknown or
// missing extensions get PNG.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return FormatBMP
	case ".tif", ".tiff":
		return FormatTIFF
	default:
		return FormatPNG
	}
}

// Rasterize draws sym black on white with border quiet-zone modules on every
// side. Each module becomes a boxSize x boxSize square, so the image edge is
// (sym.Size() + 2*border) * boxSize pixels.
func Rasterize(sym *Symbol, boxSize, border int) *image.Gray {
	if boxSize <= 0 {
		boxSize = DefaultBoxSize
	}
	if border < 0 {
		border = DefaultBorder
	}

	// One pixel per module first, then a nearest-neighbour scale keeps the
	// module edges sharp.
	n := sym.Size() + 2*border
	grid := image.NewGray(image.Rect(0, 0, n, n))
	for i := range grid.Pix {
		grid.Pix[i] = backgroundColor.Y
	}
	for y, row := range sym.Modules {
		for x, dark := range row {
			if dark {
				grid.SetGray(x+border, y+border, moduleColor)
			}
		}
	}

	if boxSize == 1 {
		return grid
	}

	out := image.NewGray(image.Rect(0, 0, n*boxSize, n*boxSize))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), grid, grid.Bounds(), xdraw.Src, nil)
	return out
}

// EncodeImage serializes img in the given format.
func EncodeImage(img image.Image, format Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case FormatPNG, "":
		err = png.Encode(&buf, img)
	case FormatBMP:
		err = bmp.Encode(&buf, img)
	case FormatTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
