/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/allbin/cleanroom/instrument"
	"github.com/allbin/cleanroom/internal/logging"
	"github.com/allbin/cleanroom/reading"
	"github.com/allbin/cleanroom/serial"
)

// particlesCmd represents the particles command
var particlesCmd = &cobra.Command{
	Use:   "particles <port>",
	Short: "Take one reading from a Dylos DC1700 particle counter",
	Long: `Query a DC1700 once and print its two particle counts and the resulting
ISO 14644-1 class.

The counter needs the full integration time before it answers, one minute by
default.

Examples:
  cleanroom particles /dev/ttyUSB0
  cleanroom particles /dev/ttyUSB0 --integration 10s`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		baudRate, _ := cmd.Flags().GetInt("baud")
		settle, _ := cmd.Flags().GetDuration("settle")
		integration, _ := cmd.Flags().GetDuration("integration")

		port, err := serial.New(args[0],
			serial.WithBaudRate(baudRate),
			serial.WithTermination("\r\n"),
		)
		if err != nil {
			fail("%v", err)
		}

		dc, err := instrument.NewDC1700(port,
			instrument.WithSettleDelay(settle),
			instrument.WithIntegrationTime(integration),
			instrument.WithDC1700Logger(logging.Component(logger, "instrument")),
		)
		if err != nil {
			fail("%v", err)
		}
		defer dc.Close()

		fmt.Printf("Integrating for %v...\n", integration)
		counts, err := dc.Counts()
		if err != nil {
			dc.Close()
			fail("%v", err)
		}

		class := reading.Classify(reading.Some(counts.Small), reading.Some(counts.Large))
		fmt.Printf("> 0.5 um: %.0f\n", counts.Small)
		fmt.Printf("> 2.5 um: %.0f\n", counts.Large)
		fmt.Printf("ISO %d (class %d)\n", class.ISO, class.FedStd)
	},
}

func init() {
	rootCmd.AddCommand(particlesCmd)

	particlesCmd.Flags().IntP("baud", "b", 9600, "Baud rate")
	particlesCmd.Flags().Duration("settle", instrument.DefaultSettleDelay, "Pause after opening the port")
	particlesCmd.Flags().Duration("integration", instrument.DefaultIntegrationTime, "Counting time before the reply is read (at least 1s)")
}
