/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allbin/cleanroom/internal/logging"
	"github.com/allbin/cleanroom/internal/plot"
)

// plotCmd represents the plot command
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render the day files as PNG charts",
	Long: `Render temperature, humidity, pressure and 0.5 um particle counts as a
2x2 grid of scatter plots.`,
}

var plotDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Render one image per day file",
	Long: `Write <day>.png next to every day file that does not have one yet.
Existing images are never redrawn.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		written, err := plot.Daily(cfg.DataDir, logging.Component(logger, "plot"))
		for _, path := range written {
			fmt.Println(path)
		}
		if err != nil {
			fail("%v", err)
		}
		if len(written) == 0 {
			fmt.Println("All day files already plotted")
		}
	},
}

var plotRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Render the most recent days into one image",
	Long: `Plot the newest day files (14 by default) into a single image with the
0.5 um reference lines at 6 and 60 particles.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out, _ := cmd.Flags().GetString("out")

		path, err := plot.Recent(cfg.DataDir, cfg.Plot.BiweeklyDays, out)
		if errors.Is(err, plot.ErrNoData) {
			fail("no readings in %s", cfg.DataDir)
		}
		if err != nil {
			fail("%v", err)
		}
		fmt.Println(path)
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.AddCommand(plotDailyCmd)
	plotCmd.AddCommand(plotRecentCmd)

	plotRecentCmd.Flags().Int("days", 0, "day files to include (default 14)")
	plotRecentCmd.Flags().StringP("out", "o", "", "output image (default <data-dir>/biweekly_plot.png)")

	_ = v.BindPFlag("plot.biweekly_days", plotRecentCmd.Flags().Lookup("days"))
}
