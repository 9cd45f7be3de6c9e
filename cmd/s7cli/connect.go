package main

import (
	"context"
	"fmt"

	"github.com/s7gopher/s7"
	"github.com/s7gopher/s7/pkg/config"
)

// newClient loads configPath and starts a Client from it, declaring every
// tag the file names.
func newClient() (*s7.Client, error) {
	connOpts, decls, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	tags, err := config.ResolveTags(decls)
	if err != nil {
		return nil, err
	}

	c, err := s7.NewClient(s7.Options{
		CPUType:           connOpts.CPUType,
		IP:                connOpts.IP,
		Rack:              connOpts.Rack,
		Slot:              connOpts.Slot,
		PollIntervalMS:    connOpts.PollIntervalMS,
		WatchdogAddress:   connOpts.WatchdogAddress,
		WatchdogValue:     connOpts.WatchdogValue,
		WatchdogIntervalS: connOpts.WatchdogIntervalS,
	})
	if err != nil {
		return nil, err
	}
	for _, t := range tags {
		if err := c.DeclareTag(t.Name, t.Address.Raw, t.Kind, t.ArrayLength, t.DoNotPoll); err != nil {
			c.Close()
			return nil, fmt.Errorf("declare tag %q: %w", t.Name, err)
		}
	}
	return c, nil
}

func waitConnected(ctx context.Context, c *s7.Client) error {
	ch, cancel := c.ObserveConnected()
	defer cancel()
	if c.Connected() {
		return nil
	}
	select {
	case v := <-ch:
		if v {
			return nil
		}
		return fmt.Errorf("s7cli: connection dropped before becoming ready")
	case <-ctx.Done():
		return ctx.Err()
	}
}
