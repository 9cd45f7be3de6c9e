package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect and print every tag value change until interrupted",
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

		events, cancelSub := c.ObserveAll()
		defer cancelSub()

		errs, cancelErrs := c.ObserveLastError()
		defer cancelErrs()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case ev := <-events:
				fmt.Printf("%s = %v\n", ev.Name, ev.Value)
			case e := <-errs:
				fmt.Fprintf(os.Stderr, "error: %v\n", e)
			case <-sig:
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
