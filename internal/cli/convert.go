package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytepress/bytepress/internal/format"
	"github.com/bytepress/bytepress/internal/processor"
	imgproc "github.com/bytepress/bytepress/internal/processor/image"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert [file...]",
	Short: "Convert images to another format",
	Long: `Convert images between JPEG, PNG, and WebP. SVG inputs are rasterized.

Examples:
  bp convert photo.png --to webp
  bp convert logo.svg --to png -q 90`,
	RunE: runConvert,
}

var (
	convertTo      string
	convertQuality int
)

func init() {
	convertCmd.Flags().StringVarP(&convertTo, "to", "t", "", "Target format (jpeg, png, webp)")
	convertCmd.Flags().IntVarP(&convertQuality, "quality", "q", 0, "Encode quality (1-100)")
	_ = convertCmd.MarkFlagRequired("to")
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no input files specified")
	}

	f, err := format.Parse(convertTo)
	if err != nil {
		return err
	}
	opts := &processor.Options{Format: f, Quality: convertQuality}

	proc := imgproc.NewConvertProcessor(processor.DefaultConfig())

	var successful, failed int
	for _, path := range args {
		outPath := strings.TrimSuffix(path, filepath.Ext(path)) + "." + f.Ext()
		if err := convertFile(cmd, proc, path, outPath, opts); err != nil {
			printer.FileFailed(path, err)
			failed++
			continue
		}
		printer.Success("%s → %s", path, outPath)
		successful++
	}

	if len(args) > 1 {
		printer.Summary(successful, failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d files failed", failed)
	}
	return nil
}

func convertFile(cmd *cobra.Command, proc processor.Processor, inPath, outPath string, opts *processor.Options) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	result, err := proc.Process(cmd.Context(), opts, in)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, result.Data)
	return err
}
