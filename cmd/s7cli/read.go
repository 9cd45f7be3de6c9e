package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read <tag>",
	Short: "Connect and read one declared tag's current value",
	Args:  cobra.ExactArgs(1),
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

		v, err := c.ReadValue(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s = %v\n", args[0], v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
}
