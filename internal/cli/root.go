package cli

import (
	"github.com/bytepress/bytepress/internal/output"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	quietMode  bool
	printer    *output.Printer
)

var rootCmd = &cobra.Command{
	Use:   "bp",
	Short: "bytepress CLI - compress media to a target size",
	Long: `bp compresses images and videos down to a byte budget, locally.

Get started:
  bp compress photo.jpg --size 200kb
  bp compress photo.png --preset email
  bp video compress clip.mp4 --size 8mb --resolution 720p
  bp plan --size 5000 --duration 60 --resolution 360p`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		printer = output.New(
			output.WithJSON(jsonOutput),
			output.WithQuiet(quietMode),
		)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON (for scripting)")
	rootCmd.PersistentFlags().BoolVar(&quietMode, "quiet", false, "Suppress non-error output")

	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(videoCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(presetsCmd)
}
