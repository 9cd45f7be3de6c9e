package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/s7gopher/s7/pkg/s7type"
)

var writeCmd = &cobra.Command{
	Use:   "write <tag> <value>",
	Short: "Connect and write one declared tag's value",
	Args:  cobra.ExactArgs(2),
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

		tag, ok := c.GetTag(args[0])
		if !ok {
			return fmt.Errorf("s7cli: unknown tag %q", args[0])
		}
		v, err := parseScalar(tag.Kind, args[1])
		if err != nil {
			return err
		}
		if err := c.WriteValue(ctx, args[0], v); err != nil {
			return err
		}
		fmt.Printf("%s <- %v\n", args[0], v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(writeCmd)
}

// parseScalar converts a single command-line argument into the Go value
// type writeTag expects for kind. Timer, DateTime and TimeSpan values are
// not parsed and return an error. Only scalars are produced, so a write to
// a tag declared with array_length > 1 fails the later type assertion
// inside the library with a clear error.
func parseScalar(kind s7type.Kind, s string) (any, error) {
	switch kind {
	case s7type.KindBool:
		return strconv.ParseBool(s)
	case s7type.KindByte:
		n, err := strconv.ParseUint(s, 10, 8)
		return byte(n), err
	case s7type.KindWord:
		n, err := strconv.ParseUint(s, 10, 16)
		return uint16(n), err
	case s7type.KindInt:
		n, err := strconv.ParseInt(s, 10, 16)
		return int16(n), err
	case s7type.KindDWord:
		n, err := strconv.ParseUint(s, 10, 32)
		return uint32(n), err
	case s7type.KindDInt:
		n, err := strconv.ParseInt(s, 10, 32)
		return int32(n), err
	case s7type.KindReal:
		n, err := strconv.ParseFloat(s, 32)
		return float32(n), err
	case s7type.KindLReal:
		return strconv.ParseFloat(s, 64)
	case s7type.KindS7String:
		return s, nil
	case s7type.KindCounter:
		return strconv.Atoi(s)
	default:
		return nil, fmt.Errorf("s7cli: write of kind %s is not supported from the command line", kind)
	}
}
