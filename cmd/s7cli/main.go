// Command s7cli is a small demo/inspection binary around the s7 client
// library: connect to a PLC from a config file, read or write one tag, or
// watch the declared tag table's value stream.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "s7cli",
	Short: "Inspect and exercise a Siemens S7 PLC connection",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "s7.ini", "path to the connection/tag config file")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
