/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/allbin/cleanroom/serial"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List serial ports an instrument could be attached to",
	Long: `List the serial ports present on the system.

USB adapters (ttyUSB*, ttyACM*) are shown with their vendor and product IDs,
which is usually the quickest way to tell which port the particle counter
is on. Virtual terminals and pseudo-terminals are excluded.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := serial.ListPorts()
		if err != nil {
			fail("listing ports: %v", err)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filtered := filterPorts(ports, filterType)
		if len(filtered) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		if tableFormat {
			renderTable(filtered)
		} else {
			for _, port := range filtered {
				fmt.Println(port)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []string, filterType string) []string {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return ports
	}

	prefixes := map[string][]string{
		"usb":      {"ttyusb", "ttyacm"},
		"standard": {"ttys"},
		"arm":      {"ttyama"},
	}[filterType]

	var filtered []string
	for _, port := range ports {
		name := strings.ToLower(port[strings.LastIndex(port, "/")+1:])
		for _, prefix := range prefixes {
			// ttys would otherwise also match ttysac
			if strings.HasPrefix(name, prefix) && !(prefix == "ttys" && strings.HasPrefix(name, "ttysac")) {
				filtered = append(filtered, port)
				break
			}
		}
	}
	return filtered
}

// renderTable renders the port list in a styled static table format
func renderTable(ports []string) {
	fmt.Printf("Found %d serial port(s):\n\n", len(ports))

	const (
		portWidth = 12
		descWidth = 22
		usbWidth  = 10
	)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("240"))

	cellStyle := lipgloss.NewStyle().
		PaddingRight(2)

	header := fmt.Sprintf("%-*s %-*s %-*s %s",
		portWidth, "Port",
		descWidth, "Type",
		usbWidth, "VID:PID",
		"Device")
	fmt.Println(headerStyle.Render(header))

	for _, port := range ports {
		info, err := serial.GetPortInfo(port)
		if err != nil {
			fmt.Fprintln(os.Stderr, cellStyle.Render(fmt.Sprintf("%-*s Error: %v", portWidth, port, err)))
			continue
		}

		usb, device := "-", ""
		if info.VendorID != "" {
			usb = info.VendorID + ":" + info.ProductID
			device = strings.TrimSpace(info.Manufacturer + " " + info.Product)
			if info.SerialNumber != "" {
				device += " (" + info.SerialNumber + ")"
			}
		}

		row := fmt.Sprintf("%-*s %-*s %-*s %s",
			portWidth, info.Name,
			descWidth, info.Description,
			usbWidth, usb,
			device)
		fmt.Println(cellStyle.Render(row))
	}
}
