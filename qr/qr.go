// Package qr renders QR codes to image files. Encoding is done by go-qrcode;
// this package only lays out the module matrix and writes the result.
package qr

import (
	"errors"
	"fmt"
	"os"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultOutputPath = "qr.png"
	DefaultBoxSize    = 10
	DefaultBorder     = 4
)

var (
	// ErrCapacityExceeded is returned when the content does not fit the
	// largest QR version at error-correction level M.
	ErrCapacityExceeded = errors.New("content exceeds QR capacity")

	// ErrOutputWrite is returned when the rendered image cannot be
	// serialized or written to its output path.
	ErrOutputWrite = errors.New("write QR image")

	ErrEmptyContent = errors.New("content is empty")
)

// Request describes one QR image to generate.
type Request struct {
	Content    string
	OutputPath string
	BoxSize    int // pixels per module edge
	Border     int // quiet zone width in modules
}

func (r Request) withDefaults() Request {
	if r.OutputPath == "" {
		r.OutputPath = DefaultOutputPath
	}
	if r.BoxSize <= 0 {
		r.BoxSize = DefaultBoxSize
	}
	if r.Border < 0 {
		r.Border = DefaultBorder
	}
	return r
}

// Result reports what Generate wrote.
type Result struct {
	Path    string
	Version int
	Modules int
	Pixels  int
	Format  Format
}

// Symbol is an encoded QR matrix without its quiet zone.
type Symbol struct {
	Version int
	Modules [][]bool

	code *qrcode.QRCode
}

// Size returns the number of modules per side.
func (s *Symbol) Size() int {
	return len(s.Modules)
}

// Encode builds the smallest symbol that holds content at level M.
func Encode(content string) (*Symbol, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		// go-qrcode only fails here when no version can hold the data.
		return nil, fmt.Errorf("%w: %d bytes: %v", ErrCapacityExceeded, len(content), err)
	}
	code.DisableBorder = true

	return &Symbol{
		Version: code.VersionNumber,
		Modules: code.Bitmap(),
		code:    code,
	}, nil
}

// Generate encodes req.Content, rasterizes it and writes the image to
// req.OutputPath, replacing any existing file. Nothing is written when
// encoding fails.
func Generate(req Request) (*Result, error) {
	req = req.withDefaults()

	sym, err := Encode(req.Content)
	if err != nil {
		return nil, err
	}

	img := Rasterize(sym, req.BoxSize, req.Border)
	format := FormatForPath(req.OutputPath)

	data, err := EncodeImage(img, format)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", ErrOutputWrite, format, err)
	}
	if err := os.WriteFile(req.OutputPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutputWrite, err)
	}

	return &Result{
		Path:    req.OutputPath,
		Version: sym.Version,
		Modules: sym.Size(),
		Pixels:  img.Bounds().Dx(),
		Format:  format,
	}, nil
}

// PNG renders content as PNG bytes without touching the filesystem. The
// returned Result has an empty Path.
func PNG(content string, boxSize, border int) ([]byte, *Result, error) {
	req := Request{Content: content, BoxSize: boxSize, Border: border}.withDefaults()

	sym, err := Encode(req.Content)
	if err != nil {
		return nil, nil, err
	}
	img := Rasterize(sym, req.BoxSize, req.Border)
	data, err := EncodeImage(img, FormatPNG)
	if err != nil {
		return nil, nil, err
	}
	return data, &Result{
		Version: sym.Version,
		Modules: sym.Size(),
		Pixels:  img.Bounds().Dx(),
		Format:  FormatPNG,
	}, nil
}
