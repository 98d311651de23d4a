/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/allbin/cleanroom/internal/tui/models"
)

// dashboardCmd represents the dashboard command
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live charts of the recorded readings",
	Long: `Open a terminal dashboard over the day files.

While running, the newest day files are reloaded every refresh interval and
temperature, humidity, pressure and 0.5 um particle counts are charted over
the last 24 hours or the last 30 days.

Keys:
  s/space  start or stop refreshing
  r        refresh now
  tab      switch between 24 hours and 30 days
  q        quit`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		m := models.NewDashboard(cfg.DataDir,
			models.DirLoader(cfg.DataDir, cfg.Dashboard.Days),
			cfg.Dashboard.Refresh)

		p := tea.NewProgram(m, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			fail("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)

	dashboardCmd.Flags().Duration("refresh", 0, "reload interval (default 3s)")
	dashboardCmd.Flags().Int("days", 0, "day files to load (default 30)")

	_ = v.BindPFlag("dashboard.refresh", dashboardCmd.Flags().Lookup("refresh"))
	_ = v.BindPFlag("dashboard.days", dashboardCmd.Flags().Lookup("days"))
}
