/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/allbin/cleanroom/reading"
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <count-0.5um> <count-2.5um>",
	Short: "Classify particle counts by ISO 14644-1",
	Long: `Print the ISO 14644-1 class and the FED-STD-209E class for a pair of
particle counts. A count of -1 means "no reading" and classifies as ISO 9.

Examples:
  cleanroom classify 45 1023
  cleanroom classify 352000 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c05, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			fail("invalid count %q", args[0])
		}
		c25, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			fail("invalid count %q", args[1])
		}

		class := reading.Classify(reading.FromSentinel(c05), reading.FromSentinel(c25))
		fmt.Printf("ISO %d (class %d)\n", class.ISO, class.FedStd)
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
