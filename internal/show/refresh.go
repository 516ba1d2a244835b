package show

import (
	"context"
	"time"

	"dmxpro/internal/logger"
)

// Sender transmits the current frame.
type Sender interface {
	Send() error
}

// Refresher re-sends the frame at a fixed rate so the fixtures keep the last state.
type Refresher struct {
	log      logger.Logger
	out      Sender
	interval time.Duration
}

// maxRate caps the refresh rate.
const maxRate = 1000

// NewRefresher returns nil if rate is not positive. Rates above maxRate are capped.
func NewRefresher(log logger.Logger, out Sender, rate int) *Refresher {
	if rate <= 0 {
		return nil
	}
	if rate > maxRate {
		rate = maxRate
	}
	return &Refresher{
		log:      log,
		out:      out,
		interval: time.Second / time.Duration(rate),
	}
}

// Run sends until ctx is done. Send errors are logged and the loop goes on.
func (r *Refresher) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	failed := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			err := r.out.Send()
			switch {
			case err != nil && !failed:
				r.log.With(logger.Fields{"module": "refresh"}).Errorf("send frame: %v", err)
				failed = true
			case err == nil && failed:
				r.log.With(logger.Fields{"module": "refresh"}).Info("send frame recovered")
				failed = false
			}
		}
	}
}
