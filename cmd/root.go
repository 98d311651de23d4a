/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/allbin/cleanroom/internal/config"
	"github.com/allbin/cleanroom/internal/logging"
)

var (
	cfgFile string
	envFile string

	v      = viper.New()
	cfg    *config.Config
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cleanroom",
	Short: "Cleanroom environment monitor",
	Long: `Sample cleanroom instruments and keep a day-by-day record of the readings.

A cycle reads temperature and humidity (DHT22), pressure (BMP180) and
particle counts (Dylos DC1700 over RS-232), classifies the air by ISO 14644-1
and appends one line to the day file in the data directory. The same files
feed the batch plots and the live dashboard.

Configuration is read from ./cleanroom.yaml or ~/.config/cleanroom/cleanroom.yaml,
CLEANROOM_* environment variables and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		config.Setup(v, cfgFile)

		c, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = c

		l, err := logging.New(cfg.Logging)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./cleanroom.yaml or ~/.config/cleanroom/cleanroom.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file exported before reading the configuration")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the day files (default logs)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	_ = v.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
