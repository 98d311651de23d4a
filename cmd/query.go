/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allbin/cleanroom/internal/logging"
	"github.com/allbin/cleanroom/protocol"
	"github.com/allbin/cleanroom/serial"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query <port> <command>",
	Short: "Send a command to a prompt-driven RS-232 instrument",
	Long: `Send one command and wait for the instrument's prompt.

The command is written with the line terminator appended. Input is polled
until a line containing the prompt marker arrives or the timeout elapses.
In query mode the lines between the echoed command and the prompt are
printed; with --write only success or failure is reported.

Examples:
  cleanroom query /dev/ttyUSB0 "*IDN?"
  cleanroom query /dev/ttyUSB1 "OUTP ON" --write
  cleanroom query /dev/ttyS0 "MEAS?" --baud 19200 --parity even --timeout 2s --debug`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath, command := args[0], args[1]

		baudRate, _ := cmd.Flags().GetInt("baud")
		parityName, _ := cmd.Flags().GetString("parity")
		dataBits, _ := cmd.Flags().GetInt("data-bits")
		stopBits, _ := cmd.Flags().GetInt("stop-bits")
		termination, _ := cmd.Flags().GetString("termination")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		prompt, _ := cmd.Flags().GetString("prompt")
		writeOnly, _ := cmd.Flags().GetBool("write")
		debug, _ := cmd.Flags().GetBool("debug")

		parity, err := serial.ParseParity(parityName)
		if err != nil {
			fail("invalid parity %q", parityName)
		}
		term := unescape(termination)

		port, err := serial.Open(portPath,
			serial.WithBaudRate(baudRate),
			serial.WithDataBits(dataBits),
			serial.WithStopBits(stopBits),
			serial.WithParity(parity),
			serial.WithTermination(term),
		)
		if err != nil {
			fail("opening port: %v", err)
		}
		defer port.Close()

		session, err := protocol.NewSession(port,
			protocol.WithTermination(term),
			protocol.WithTimeout(timeout),
			protocol.WithPromptDetector(protocol.ContainsMarker(prompt)),
			protocol.WithDebug(debug),
			protocol.WithLogger(logging.Component(logger, "protocol")),
		)
		if err != nil {
			fail("%v", err)
		}

		if writeOnly {
			err = session.Write(command)
		} else {
			var lines []string
			lines, err = session.Query(command)
			for _, line := range lines {
				fmt.Println(line)
			}
		}

		if debug {
			for _, line := range session.LastLines() {
				fmt.Fprintf(os.Stderr, "  %q\n", line)
			}
		}

		if errors.Is(err, protocol.ErrTimeout) {
			port.Close()
			fail("no %q prompt within %v", prompt, timeout)
		}
		if err != nil {
			port.Close()
			fail("%v", err)
		}
		if writeOnly {
			fmt.Println("OK")
		}
	},
}

// unescape turns the literal \r and \n a shell passes through into control characters
func unescape(s string) string {
	return strings.NewReplacer(`\r`, "\r", `\n`, "\n").Replace(s)
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().IntP("baud", "b", 9600, "Baud rate")
	queryCmd.Flags().String("parity", "none", "Parity: none, odd, even, mark, space")
	queryCmd.Flags().Int("data-bits", 8, "Data bits (5-8)")
	queryCmd.Flags().Int("stop-bits", 1, "Stop bits (1 or 2)")
	queryCmd.Flags().String("termination", `\r\n`, `Line terminator appended to the command (\r\n or \n)`)
	queryCmd.Flags().DurationP("timeout", "t", protocol.DefaultTimeout, "How long to wait for the prompt")
	queryCmd.Flags().String("prompt", protocol.DefaultPrompt, "Marker that ends a response")
	queryCmd.Flags().BoolP("write", "w", false, "Only report whether the prompt arrived")
	queryCmd.Flags().BoolP("debug", "d", false, "Log the raw lines of every exchange")
}
