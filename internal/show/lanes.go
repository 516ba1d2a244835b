// Package show plays light sequences over a DMX output.
package show

import (
	"fmt"

	"dmxpro/internal/config"
	"dmxpro/internal/dmx"
)

// Lane is an ordered list of fixture start channels.
type Lane []int

// Lanes is the channel table of a rig.
type Lanes []Lane

// InterleavedLanes places lights fixtures of width channels from first on,
// deals them round-robin into count lanes and reverses every lane.
func InterleavedLanes(first, lights, width, count int) (Lanes, error) {
	if count < 1 || width < 1 || lights < 0 {
		return nil, fmt.Errorf("show: invalid layout lights=%d width=%d lanes=%d", lights, width, count)
	}
	lanes := make(Lanes, count)
	for i := 0; i < lights; i++ {
		n := i % count
		lanes[n] = append(lanes[n], first+i*width)
	}
	for _, l := range lanes {
		for i, j := 0, len(l)-1; i < j; i, j = i+1, j-1 {
			l[i], l[j] = l[j], l[i]
		}
	}
	return lanes, lanes.Validate(width)
}

// Validate checks that every fixture fits in the universe.
func (ls Lanes) Validate(width int) error {
	for n, l := range ls {
		for _, ch := range l {
			if ch < 1 || ch+width-1 > dmx.Channels {
				return fmt.Errorf("show: lane %d: fixture at channel %d: %w", n, ch, dmx.ErrOutOfRange)
			}
		}
	}
	return nil
}

// LanesFromConfig returns the explicit lane table if configured, the interleaved layout otherwise.
func LanesFromConfig(cfg config.ShowConf) (Lanes, error) {
	if len(cfg.Lane) == 0 {
		return InterleavedLanes(cfg.FirstChannel, cfg.Lights, cfg.Width, cfg.LaneCount)
	}
	lanes := make(Lanes, 0, len(cfg.Lane))
	for _, l := range cfg.Lane {
		lanes = append(lanes, append(Lane(nil), l.Channels...))
	}
	return lanes, lanes.Validate(cfg.Width)
}
