package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Connect and print the PLC's identity (SZL 0x0011/0x001C)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := waitConnected(ctx, c); err != nil {
			return err
		}

		info, err := c.GetCPUInfo(ctx)
		if err != nil {
			return err
		}
		for _, line := range info.Lines() {
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
