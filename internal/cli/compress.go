package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bytepress/bytepress/internal/format"
	"github.com/bytepress/bytepress/internal/output"
	"github.com/bytepress/bytepress/internal/presets"
	"github.com/bytepress/bytepress/internal/processor"
	imgproc "github.com/bytepress/bytepress/internal/processor/image"
	"github.com/spf13/cobra"
)

var compressCmd = &cobra.Command{
	Use:   "compress [file...]",
	Short: "Compress images to a target size",
	Long: `Compress one or more images so each lands under a byte budget.

Examples:
  bp compress photo.jpg --size 200kb
  bp compress *.png --preset email
  bp compress photo.jpg --size 150kb --format webp -o small.webp`,
	RunE: runCompress,
}

var (
	compressSize    string
	compressPreset  string
	compressPercent float64
	compressQuality int
	compressFormat  string
	compressOutput  string
)

func init() {
	compressCmd.Flags().StringVarP(&compressSize, "size", "s", "", "Target size (e.g. 200kb, 1.5mb)")
	compressCmd.Flags().StringVarP(&compressPreset, "preset", "p", "", "Size preset (email, web, chat, hd, print)")
	compressCmd.Flags().Float64Var(&compressPercent, "percent", 0, "Target size as percent of the original")
	compressCmd.Flags().IntVarP(&compressQuality, "quality", "q", 0, "Starting quality (1-100)")
	compressCmd.Flags().StringVarP(&compressFormat, "format", "f", "", "Output format (jpeg, png, webp)")
	compressCmd.Flags().StringVarP(&compressOutput, "output", "o", "", "Output path (single file only)")
}

func runCompress(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no input files specified")
	}
	if compressOutput != "" && len(args) > 1 {
		return fmt.Errorf("--output only works with a single input file")
	}

	opts, err := buildCompressOptions()
	if err != nil {
		return err
	}

	proc := imgproc.NewCompressProcessor(processor.DefaultConfig())

	progress := output.NewProgress(len(args), "Compressing",
		output.ProgressWithQuiet(quietMode || jsonOutput || len(args) == 1))
	defer progress.Finish()

	var successful, failed int
	var results []map[string]interface{}

	for _, path := range args {
		result, err := compressFile(cmd.Context(), proc, path, opts)
		progress.Increment()
		if err != nil {
			printer.FileFailed(path, err)
			results = append(results, map[string]interface{}{"file": path, "error": err.Error()})
			failed++
			continue
		}

		printer.Success("%s %s %s (%s, quality %d, %d attempts)",
			path, "→", result.outPath,
			formatBytes(result.size), result.quality, result.attempts)
		if !result.targetMet {
			printer.Warn("%s: target missed, best effort %s", path, formatBytes(result.size))
		}

		results = append(results, map[string]interface{}{
			"file":       path,
			"output":     result.outPath,
			"size":       result.size,
			"quality":    result.quality,
			"attempts":   result.attempts,
			"target_met": result.targetMet,
		})
		successful++
	}

	if jsonOutput {
		return printer.JSON(map[string]interface{}{
			"results":    results,
			"total":      len(args),
			"successful": successful,
			"failed":     failed,
		})
	}

	if len(args) > 1 {
		printer.Summary(successful, failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d files failed", failed)
	}
	return nil
}

func buildCompressOptions() (*processor.Options, error) {
	opts := &processor.Options{}

	if compressPreset != "" {
		preset, ok := presets.Get(compressPreset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q (available: %s)", compressPreset, strings.Join(presets.Names, ", "))
		}
		opts.TargetSizeBytes = preset.TargetSizeKB * 1024
		opts.Quality = preset.Quality
	}
	if compressSize != "" {
		size, err := parseSize(compressSize)
		if err != nil {
			return nil, err
		}
		opts.TargetSizeBytes = size
	}
	if compressPercent != 0 {
		if compressPercent <= 0 || compressPercent >= 100 {
			return nil, fmt.Errorf("percent must be between 0 and 100")
		}
		opts.TargetPercent = compressPercent
	}
	if opts.TargetSizeBytes == 0 && opts.TargetPercent == 0 {
		return nil, fmt.Errorf("no target specified (use --size, --preset, or --percent)")
	}

	if compressQuality != 0 {
		if compressQuality < 1 || compressQuality > 100 {
			return nil, fmt.Errorf("quality must be between 1 and 100")
		}
		opts.Quality = compressQuality
	}
	if compressFormat != "" {
		f, err := format.Parse(compressFormat)
		if err != nil {
			return nil, err
		}
		opts.Format = f
	}

	return opts, nil
}

type compressResult struct {
	outPath   string
	size      int64
	quality   int
	attempts  int
	targetMet bool
}

func compressFile(ctx context.Context, proc processor.Processor, path string, opts *processor.Options) (*compressResult, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = in.Close() }()

	result, err := proc.Process(ctx, opts, in)
	if err != nil {
		return nil, err
	}

	outPath := compressOutput
	if outPath == "" {
		outPath = derivedOutputPath(path, result.Filename)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = out.Close() }()

	size, err := io.Copy(out, result.Data)
	if err != nil {
		return nil, err
	}

	return &compressResult{
		outPath:   outPath,
		size:      size,
		quality:   result.Metadata.Quality,
		attempts:  result.Metadata.Attempts,
		targetMet: result.Metadata.TargetMet,
	}, nil
}

// derivedOutputPath keeps the result next to the input, never overwriting it.
func derivedOutputPath(inPath, resultName string) string {
	dir := filepath.Dir(inPath)
	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	ext := filepath.Ext(resultName)
	if ext == "" {
		ext = filepath.Ext(inPath)
	}
	return filepath.Join(dir, base+".bp"+ext)
}

func parseSize(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "mb"):
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "mb")
	case strings.HasSuffix(s, "kb"):
		multiplier = 1024
		s = strings.TrimSuffix(s, "kb")
	case strings.HasSuffix(s, "b"):
		s = strings.TrimSuffix(s, "b")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid size %q (use e.g. 200kb, 1.5mb)", s)
	}
	return int64(v * float64(multiplier)), nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
