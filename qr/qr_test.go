package qr

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePicksSmallestVersion(t *testing.T) {
	sym, err := Encode("hi")
	require.NoError(t, err)
	assert.Equal(t, 1, sym.Version)
	assert.Equal(t, 21, sym.Size())

	sym, err = Encode("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 17+4*sym.Version, sym.Size())
	assert.Greater(t, sym.Version, 1)
}

func TestEncodeRejectsOversizedContent(t *testing.T) {
	_, err := Encode(strings.Repeat("a", 3000))
	require.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestEncodeRejectsEmptyContent(t *testing.T) {
	_, err := Encode("")
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestGenerateRoundTrip(t *testing.T) {
	contents := []string{
		"https://example.com",
		"hello, world",
		"0123456789",
		strings.Repeat("long payload ", 40),
	}
	dir := t.TempDir()

	for i, content := range contents {
		out := filepath.Join(dir, "qr"+string(rune('a'+i))+".png")
		res, err := Generate(Request{Content: content, OutputPath: out})
		require.NoError(t, err)
		assert.Equal(t, out, res.Path)
		assert.Equal(t, FormatPNG, res.Format)

		got, err := DecodeFile(out)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	}
}

func TestGenerateWritesValidPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "code.png")
	res, err := Generate(Request{Content: "https://example.com", OutputPath: out})
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, res.Pixels, img.Bounds().Dx())
	assert.Equal(t, res.Pixels, img.Bounds().Dy())
	assert.Equal(t, (res.Modules+2*DefaultBorder)*DefaultBoxSize, res.Pixels)
}

func TestGenerateDefaultsOutputPath(t *testing.T) {
	chdir(t, t.TempDir())

	res, err := Generate(Request{Content: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputPath, res.Path)
	assert.FileExists(t, DefaultOutputPath)
}

func TestGenerateOverwritesExistingFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "qr.png")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	_, err := Generate(Request{Content: "fresh", OutputPath: out})
	require.NoError(t, err)

	got, err := DecodeFile(out)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestGenerateCapacityExceededWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "qr.png")
	_, err := Generate(Request{Content: strings.Repeat("x", 4000), OutputPath: out})
	require.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NoFileExists(t, out)
}

func TestGenerateUnwritablePath(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing", "dir", "qr.png")
	_, err := Generate(Request{Content: "hello", OutputPath: out})
	require.ErrorIs(t, err, ErrOutputWrite)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestBoxSizeScalesImageNotModules(t *testing.T) {
	dir := t.TempDir()
	small, err := Generate(Request{Content: "scale me", OutputPath: filepath.Join(dir, "s.png"), BoxSize: 5})
	require.NoError(t, err)
	large, err := Generate(Request{Content: "scale me", OutputPath: filepath.Join(dir, "l.png"), BoxSize: 15})
	require.NoError(t, err)

	assert.Equal(t, small.Modules, large.Modules)
	assert.Equal(t, small.Pixels*3, large.Pixels)
}

func TestRasterizeBorderIsWhite(t *testing.T) {
	sym, err := Encode("border")
	require.NoError(t, err)

	const box, border = 3, 2
	img := Rasterize(sym, box, border)
	edge := (sym.Size() + 2*border) * box
	require.Equal(t, image.Rect(0, 0, edge, edge), img.Bounds())

	quiet := border * box
	for y := 0; y < edge; y++ {
		for x := 0; x < edge; x++ {
			inside := x >= quiet && x < edge-quiet && y >= quiet && y < edge-quiet
			if !inside {
				require.Equal(t, backgroundColor, img.GrayAt(x, y), "pixel %d,%d", x, y)
			}
		}
	}

	// Top-left finder pattern corner is always dark.
	assert.Equal(t, moduleColor, img.GrayAt(quiet, quiet))
	assert.Equal(t, moduleColor, img.GrayAt(quiet+box-1, quiet+box-1))
}

func TestRasterizeZeroBorder(t *testing.T) {
	sym, err := Encode("no border")
	require.NoError(t, err)

	img := Rasterize(sym, 1, 0)
	assert.Equal(t, sym.Size(), img.Bounds().Dx())
	assert.Equal(t, moduleColor, img.GrayAt(0, 0))
}

func TestFormatForPath(t *testing.T) {
	cases := map[string]Format{
		"qr.png":     FormatPNG,
		"qr":         FormatPNG,
		"qr.jpeg":    FormatPNG,
		"out/QR.BMP": FormatBMP,
		"scan.tif":   FormatTIFF,
		"scan.tiff":  FormatTIFF,
	}
	for path, want := range cases {
		assert.Equal(t, want, FormatForPath(path), path)
	}
}

func TestGenerateOtherFormatsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"code.bmp", "code.tiff"} {
		out := filepath.Join(dir, name)
		res, err := Generate(Request{Content: "https://example.com/" + name, OutputPath: out})
		require.NoError(t, err)
		assert.Equal(t, FormatForPath(name), res.Format)

		got, err := DecodeFile(out)
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/"+name, got)
	}
}

func TestPNGBytes(t *testing.T) {
	data, res, err := PNG("in memory", 4, 2)
	require.NoError(t, err)
	assert.Empty(t, res.Path)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, res.Pixels, img.Bounds().Dx())
	assert.Equal(t, (res.Modules+4)*4, res.Pixels)

	got, err := Decode(img)
	require.NoError(t, err)
	assert.Equal(t, "in memory", got)
}

func TestRenderTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTerminal(&buf, "https://example.com", 2))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.GreaterOrEqual(t, len(lines), 10)

	err := RenderTerminal(&buf, "", 2)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestRenderTerminalBorderToggle(t *testing.T) {
	var framed, bare bytes.Buffer
	require.NoError(t, RenderTerminal(&framed, "quiet zone", 4))
	require.NoError(t, RenderTerminal(&bare, "quiet zone", 0))

	assert.Greater(t, strings.Count(framed.String(), "\n"), strings.Count(bare.String(), "\n"))
}

func TestRenderTerminalMixedSegments(t *testing.T) {
	// Long digit runs are packed numerically, so this fits at level M even
	// though it would not fit as a single byte-mode segment.
	content := strings.Repeat("1", 3000) + "a"
	_, err := Encode(content)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NotPanics(t, func() {
		require.NoError(t, RenderTerminal(&buf, content, DefaultBorder))
	})
	assert.NotEmpty(t, buf.String())
}

func TestRenderTerminalCapacityExceeded(t *testing.T) {
	var buf bytes.Buffer
	err := RenderTerminal(&buf, strings.Repeat("x", 4000), DefaultBorder)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Empty(t, buf.String())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
