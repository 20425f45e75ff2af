package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "jtagtrace",
	Short: "Replay a captured USB/FTDI JTAG bridge session into an OpenOCD transcript",
	Long: `jtagtrace decodes a captured USB-to-JTAG bridge session (an FTDI MPSSE
byte stream exported as Wireshark JSON) and replays it against simulated
ARM DAP and Zynq UltraScale+ PS/PL TAP models, emitting an OpenOCD-style
TCL transcript of every DP/AP register access and MEM-AP memory
transaction the capture performed.

Examples:
  jtagtrace run --json_pcap capture.json --openocd_script out.tcl
  jtagtrace run --json_pcap capture.json --openocd_script out.tcl -v`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
