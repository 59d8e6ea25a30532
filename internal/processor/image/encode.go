package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/bytepress/bytepress/internal/format"
	"github.com/bytepress/bytepress/internal/processor"
	"github.com/disintegration/imaging"
)

// EncoderParams holds the per-format encoder settings beyond the quality
// knob. Selection is a static table, not a search.
type EncoderParams struct {
	Quality        int
	Progressive    bool
	OptimizeCoding bool

	// PNG only.
	CompressionLevel int
	PaletteReduction bool

	// WebP only.
	Effort int
}

// ParamsFor returns the encoder parameters for a format at a given quality.
// JPEG output is always 4:2:0 subsampled YCbCr; the scan and Huffman flags
// are applied by a lossless jpegtran pass after the baseline encode.
func ParamsFor(f format.Format, quality int) EncoderParams {
	switch f {
	case format.PNG:
		return EncoderParams{
			CompressionLevel: CompressionLevel(quality),
			PaletteReduction: true,
		}
	case format.WEBP:
		return EncoderParams{Quality: quality, Effort: 4}
	default:
		return EncoderParams{
			Quality:        quality,
			Progressive:    true,
			OptimizeCoding: true,
		}
	}
}

// CompressionLevel maps the 1-100 quality knob onto the 0-9 PNG compression
// level. Quality is not a native PNG concept; this inverse mapping exists so
// the same search loop drives every format.
func CompressionLevel(quality int) int {
	level := int(math.Round(float64(100-quality) / 11.0))
	if level < 0 {
		return 0
	}
	if level > 9 {
		return 9
	}
	return level
}

// codec encodes decoded images into the closed set of output formats. JPEG
// and PNG are encoded in-process; the jpegtran post-pass and cwebp are
// shelled out to the same way the video path shells out to ffmpeg.
type codec struct {
	cfg *processor.Config
}

func newCodec(cfg *processor.Config) *codec {
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}
	return &codec{cfg: cfg}
}

func (c *codec) encode(ctx context.Context, img image.Image, f format.Format, quality int) ([]byte, error) {
	params := ParamsFor(f, quality)

	switch f {
	case format.JPEG:
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(params.Quality)); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return finishJPEG(ctx, buf.Bytes(), params), nil

	case format.PNG:
		src := img
		if params.PaletteReduction {
			if p := reduceToPalette(img); p != nil {
				src = p
			}
		}
		var buf bytes.Buffer
		enc := png.Encoder{CompressionLevel: pngLevel(params.CompressionLevel)}
		if err := enc.Encode(&buf, src); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return buf.Bytes(), nil

	case format.WEBP:
		return c.encodeWebP(ctx, img, params)

	default:
		return nil, fmt.Errorf("%w: cannot encode to %s", processor.ErrInvalidConfig, f)
	}
}

// finishJPEG reruns the entropy coding through jpegtran when the params ask
// for a progressive scan script or optimized Huffman tables. The transform is
// lossless; when the binary is absent the baseline output stands.
func finishJPEG(ctx context.Context, data []byte, params EncoderParams) []byte {
	args := jpegtranArgs(params)
	if len(args) == 0 {
		return data
	}
	if _, err := exec.LookPath("jpegtran"); err != nil {
		return data
	}

	cmd := exec.CommandContext(ctx, "jpegtran", args...)
	cmd.Stdin = bytes.NewReader(data)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil || out.Len() == 0 {
		return data
	}
	return out.Bytes()
}

func jpegtranArgs(params EncoderParams) []string {
	var args []string
	if params.Progressive {
		args = append(args, "-progressive")
	}
	if params.OptimizeCoding {
		args = append(args, "-optimize")
	}
	if len(args) > 0 {
		args = append(args, "-copy", "none")
	}
	return args
}

// reduceToPalette re-draws the image as an 8-bit paletted image when it uses
// at most 256 distinct colors. The conversion is exact, so it only ever
// shrinks the encoded output. Images with more colors are left untouched.
func reduceToPalette(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	seen := make(map[color.Color]struct{})
	var pal color.Palette
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			if _, ok := seen[c]; ok {
				continue
			}
			if len(pal) == 256 {
				return nil
			}
			seen[c] = struct{}{}
			pal = append(pal, c)
		}
	}

	out := image.NewPaletted(bounds, pal)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)
	return out
}

// pngLevel collapses the 0-9 scale onto the encoder's discrete levels.
func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= 2:
		return png.BestSpeed
	case level >= 7:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

func cwebpAvailable() bool {
	_, err := exec.LookPath("cwebp")
	return err == nil
}

func (c *codec) encodeWebP(ctx context.Context, img image.Image, params EncoderParams) ([]byte, error) {
	if !cwebpAvailable() {
		return nil, fmt.Errorf("%w: cwebp binary not available", processor.ErrProcessingFailed)
	}

	tempDir := c.cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	inputFile, err := os.CreateTemp(tempDir, "webp-input-*.png")
	if err != nil {
		return nil, fmt.Errorf("create input temp file: %w", err)
	}
	inputPath := inputFile.Name()
	defer func() { _ = os.Remove(inputPath) }()

	if err := png.Encode(inputFile, img); err != nil {
		_ = inputFile.Close()
		return nil, fmt.Errorf("write cwebp input: %w", err)
	}
	_ = inputFile.Close()

	outputPath := filepath.Join(tempDir, filepath.Base(inputPath)+".webp")
	defer func() { _ = os.Remove(outputPath) }()

	args := []string{
		"-q", strconv.Itoa(params.Quality),
		"-m", strconv.Itoa(params.Effort),
		inputPath,
		"-o", outputPath,
	}

	cmd := exec.CommandContext(ctx, "cwebp", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("cwebp failed: %w, stderr: %s", err, stderr.String())
	}

	return os.ReadFile(outputPath)
}
