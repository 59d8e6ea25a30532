package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytepress/bytepress/internal/output"
	"github.com/bytepress/bytepress/internal/processor"
	"github.com/bytepress/bytepress/internal/processor/video"
	"github.com/spf13/cobra"
)

var videoCmd = &cobra.Command{
	Use:   "video",
	Short: "Compress, trim, and inspect videos",
}

var videoCompressCmd = &cobra.Command{
	Use:   "compress [file]",
	Short: "Compress a video to a target size",
	Long: `Transcode a video so it lands under a byte budget at a chosen resolution.

Examples:
  bp video compress clip.mp4 --size 8mb --resolution 720p
  bp video compress clip.mov --size 25mb --resolution 480p --to webm`,
	Args: cobra.ExactArgs(1),
	RunE: runVideoCompress,
}

var videoTrimCmd = &cobra.Command{
	Use:   "trim [file]",
	Short: "Cut a time window out of a video without re-encoding",
	Args:  cobra.ExactArgs(1),
	RunE:  runVideoTrim,
}

var videoProbeCmd = &cobra.Command{
	Use:   "probe [file]",
	Short: "Print a video's stream metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runVideoProbe,
}

var (
	videoSize       string
	videoResolution string
	videoFormat     string
	videoStart      float64
	videoEnd        float64
	videoOutput     string
)

func init() {
	videoCompressCmd.Flags().StringVarP(&videoSize, "size", "s", "", "Target size (e.g. 8mb)")
	videoCompressCmd.Flags().StringVarP(&videoResolution, "resolution", "r", "", "Output resolution (240p, 360p, 480p, 720p)")
	videoCompressCmd.Flags().StringVar(&videoFormat, "to", "", "Container format (mp4, webm)")
	videoCompressCmd.Flags().StringVarP(&videoOutput, "output", "o", "", "Output path")
	_ = videoCompressCmd.MarkFlagRequired("size")
	_ = videoCompressCmd.MarkFlagRequired("resolution")

	videoTrimCmd.Flags().Float64Var(&videoStart, "start", 0, "Start offset in seconds")
	videoTrimCmd.Flags().Float64Var(&videoEnd, "end", 0, "End offset in seconds")
	videoTrimCmd.Flags().StringVarP(&videoOutput, "output", "o", "", "Output path")
	_ = videoTrimCmd.MarkFlagRequired("end")

	videoCmd.AddCommand(videoCompressCmd)
	videoCmd.AddCommand(videoTrimCmd)
	videoCmd.AddCommand(videoProbeCmd)
}

func newVideoEngine() (*video.Engine, error) {
	engine, err := video.NewEngine(video.DefaultVideoConfig())
	if err != nil {
		return nil, fmt.Errorf("video support requires ffmpeg and ffprobe on PATH: %w", err)
	}
	return engine, nil
}

func runVideoCompress(cmd *cobra.Command, args []string) error {
	engine, err := newVideoEngine()
	if err != nil {
		return err
	}

	size, err := parseSize(videoSize)
	if err != nil {
		return err
	}
	res, err := video.ParseResolution(videoResolution)
	if err != nil {
		return err
	}
	switch videoFormat {
	case "", "mp4", "webm":
	default:
		return fmt.Errorf("unsupported container %q (supported: mp4, webm)", videoFormat)
	}

	opts := &video.Options{
		TargetSizeKB: size / 1024,
		Resolution:   res,
		OutputFormat: videoFormat,
	}

	path := args[0]
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	spinner := output.NewSpinner(fmt.Sprintf("Transcoding %s...", filepath.Base(path)), quietMode || jsonOutput)
	result, err := engine.Compress(cmd.Context(), opts, in)
	spinner.Finish()
	if err != nil {
		return err
	}

	return writeVideoResult(path, result)
}

func runVideoTrim(cmd *cobra.Command, args []string) error {
	engine, err := newVideoEngine()
	if err != nil {
		return err
	}

	opts := &video.Options{
		StartSeconds: videoStart,
		EndSeconds:   videoEnd,
	}

	path := args[0]
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	spinner := output.NewSpinner(fmt.Sprintf("Trimming %s...", filepath.Base(path)), quietMode || jsonOutput)
	result, err := engine.Trim(cmd.Context(), opts, in)
	spinner.Finish()
	if err != nil {
		return err
	}

	return writeVideoResult(path, result)
}

func runVideoProbe(cmd *cobra.Command, args []string) error {
	engine, err := newVideoEngine()
	if err != nil {
		return err
	}

	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	meta, err := engine.Probe(cmd.Context(), in)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printer.JSON(meta)
	}

	printer.KeyValue("duration", fmt.Sprintf("%.2fs", meta.Duration))
	printer.KeyValue("dimensions", fmt.Sprintf("%dx%d", meta.Width, meta.Height))
	printer.KeyValue("bitrate", fmt.Sprintf("%.0f kbps", meta.BitrateKbps))
	printer.KeyValue("video codec", meta.VideoCodec)
	if meta.HasAudio {
		printer.KeyValue("audio codec", meta.AudioCodec)
	}
	printer.KeyValue("size", formatBytes(meta.SizeBytes))
	printer.KeyValue("container", meta.Container)
	return nil
}

func writeVideoResult(inPath string, result *processor.Result) error {
	outPath := videoOutput
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
		ext := filepath.Ext(result.Filename)
		if ext == "" {
			ext = filepath.Ext(inPath)
		}
		outPath = filepath.Join(filepath.Dir(inPath), base+".bp"+ext)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	size, err := io.Copy(out, result.Data)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printer.JSON(map[string]interface{}{
			"output": outPath,
			"size":   size,
		})
	}
	printer.Success("%s → %s (%s)", inPath, outPath, formatBytes(size))
	return nil
}
