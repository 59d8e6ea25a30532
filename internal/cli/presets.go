package cli

import (
	"fmt"

	"github.com/bytepress/bytepress/internal/output"
	"github.com/bytepress/bytepress/internal/presets"
	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in size presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printer.JSON(presets.All)
		}

		table := output.NewTable([]string{"NAME", "TARGET", "QUALITY"}, quietMode)
		for _, name := range presets.Names {
			p := presets.All[name]
			table.Append([]string{
				name,
				fmt.Sprintf("%dKB", p.TargetSizeKB),
				fmt.Sprintf("%d", p.Quality),
			})
		}
		table.Render()
		return nil
	},
}
