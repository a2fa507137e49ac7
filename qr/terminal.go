package qr

import (
	"fmt"
	"io"
)

// RenderTerminal prints content as a level-M QR code made of half-block
// characters. The symbol is the same one Generate would rasterize. A border
// of 0 drops the quiet zone, any other value keeps the standard four-module
// zone.
func RenderTerminal(w io.Writer, content string, border int) error {
	sym, err := Encode(content)
	if err != nil {
		return err
	}

	sym.code.DisableBorder = border == 0

	_, err = fmt.Fprint(w, sym.code.ToSmallString(false))
	return err
}
