package cli

import (
	"fmt"

	"github.com/bytepress/bytepress/internal/processor/video"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the bitrate plan for a target size without transcoding",
	Long: `Compute the bitrate a video compression would use, and whether the
resolution's quality floor makes the target unreachable.

Example:
  bp plan --size 5000 --duration 60 --resolution 360p`,
	RunE: runPlan,
}

var (
	planSizeKB     int64
	planDuration   float64
	planResolution string
)

func init() {
	planCmd.Flags().Int64VarP(&planSizeKB, "size", "s", 0, "Target size in KB")
	planCmd.Flags().Float64VarP(&planDuration, "duration", "d", 0, "Video duration in seconds")
	planCmd.Flags().StringVarP(&planResolution, "resolution", "r", "", "Output resolution (240p, 360p, 480p, 720p)")
	_ = planCmd.MarkFlagRequired("size")
	_ = planCmd.MarkFlagRequired("duration")
	_ = planCmd.MarkFlagRequired("resolution")
}

func runPlan(cmd *cobra.Command, args []string) error {
	res, err := video.ParseResolution(planResolution)
	if err != nil {
		return err
	}

	plan, err := video.Plan(planSizeKB, planDuration, res)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printer.JSON(plan)
	}

	printer.KeyValue("video bitrate", fmt.Sprintf("%.2f kbps", plan.VideoBitrateKbps))
	printer.KeyValue("audio bitrate", fmt.Sprintf("%d kbps", plan.AudioBitrateKbps))
	printer.KeyValue("final bitrate", fmt.Sprintf("%.2f kbps", plan.FinalBitrateKbps))
	printer.KeyValue("floor size", formatBytes(plan.FloorSizeBytes))
	if plan.FloorDominated() {
		printer.Warn("target %dKB is below the %s quality floor; expect about %s",
			plan.TargetSizeKB, planResolution, formatBytes(plan.FloorSizeBytes))
	} else {
		printer.Success("target %dKB is reachable at %s", plan.TargetSizeKB, planResolution)
	}
	return nil
}
