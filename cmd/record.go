/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/allbin/cleanroom/datalog"
	"github.com/allbin/cleanroom/instrument"
	"github.com/allbin/cleanroom/internal/httpapi"
	"github.com/allbin/cleanroom/internal/logging"
	"github.com/allbin/cleanroom/internal/metrics"
	"github.com/allbin/cleanroom/internal/publish"
	"github.com/allbin/cleanroom/monitor"
	"github.com/allbin/cleanroom/reading"
)

// recordCmd represents the record command
var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Sample the instruments and append readings to the day files",
	Long: `Run sampling cycles until interrupted.

Every cycle samples the enabled instruments, classifies the particle counts
and appends one line to <data-dir>/YYYY_MM_DD.txt. A failing instrument only
blanks its own fields; the cycle is still recorded.

Ctrl+C stops the recorder once the running cycle is written. A second Ctrl+C
exits immediately.

Examples:
  cleanroom record
  cleanroom record --once
  cleanroom record --interval 30s --data-dir /var/lib/cleanroom`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printReadings, _ := cmd.Flags().GetBool("print")

		enabled := cfg.Instruments.Enabled()
		if len(enabled) == 0 {
			logger.Warn("no instruments enabled, every reading will be blank")
		}

		instruments, err := instrument.FromConfig(cfg.Instruments, logging.Component(logger, "instrument"))
		if err != nil {
			fail("building instruments: %v", err)
		}

		agg := monitor.NewAggregator(instruments, monitor.WithLogger(logging.Component(logger, "aggregator")))
		defer agg.Close()

		exporter := metrics.NewExporter()
		sinks := []monitor.Sink{
			datalog.NewWriter(cfg.DataDir, datalog.WithLogger(logging.Component(logger, "datalog"))),
			exporter,
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if cfg.HTTP.Enabled {
			hub := httpapi.NewHub(logging.Component(logger, "websocket"))
			sinks = append(sinks, hub)
			srv := httpapi.NewServer(cfg.HTTP.Addr, hub, exporter.Handler(), agg.Instruments(), logging.Component(logger, "http"))
			go func() {
				if err := srv.Run(ctx); err != nil {
					logger.Error("HTTP server failed", zap.Error(err))
				}
			}()
		}

		if cfg.Influx.Enabled {
			influx := publish.NewInfluxSink(cfg.Influx, logging.Component(logger, "publish"))
			defer influx.Close()
			sinks = append(sinks, influx)
		}

		if cfg.Redis.Enabled {
			rdb := publish.NewRedisSink(cfg.Redis, logging.Component(logger, "publish"))
			defer rdb.Close()
			if err := rdb.Ping(ctx); err != nil {
				logger.Warn("redis not reachable, will retry every cycle", zap.Error(err))
			}
			sinks = append(sinks, rdb)
		}

		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			fmt.Println("\nKeyboard interrupt.")
			cancel()
			<-sigChan
			os.Exit(130)
		}()

		opts := []monitor.RecorderOption{
			monitor.WithInterval(cfg.Interval),
			monitor.WithOnce(cfg.Once),
			monitor.WithRecorderLogger(logging.Component(logger, "recorder")),
		}
		if printReadings {
			fmt.Println(reading.Header)
			opts = append(opts, monitor.OnReading(func(r reading.Reading) {
				fmt.Println(r.Format())
			}))
		}

		logger.Info("recording",
			zap.Strings("instruments", enabled),
			zap.String("data_dir", cfg.DataDir),
			zap.Duration("interval", cfg.Interval),
			zap.Bool("once", cfg.Once))

		err = monitor.NewRecorder(agg, sinks, opts...).Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			fail("%v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().Bool("once", false, "run a single cycle and exit")
	recordCmd.Flags().Duration("interval", 0, "pause between cycles (default 10s)")
	recordCmd.Flags().Bool("print", true, "print every reading to stdout")

	_ = v.BindPFlag("once", recordCmd.Flags().Lookup("once"))
	_ = v.BindPFlag("interval", recordCmd.Flags().Lookup("interval"))
}
