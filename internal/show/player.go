package show

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dmxpro/internal/config"
	"dmxpro/internal/dmx"
	"dmxpro/internal/logger"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownLane is returned for a lane index outside the table.
var ErrUnknownLane = errors.New("show: unknown lane")

// fixtureChannels is the number of channels the player drives per fixture (R, G, B).
const fixtureChannels = 3

// Output is the part of the DMX encoder the player drives.
type Output interface {
	Apply(vals []dmx.ChannelValue, send bool) error
}

// Timing of a lane sequence.
type Timing struct {
	Step time.Duration // Step - время на прибор.
	Hold time.Duration // Hold - удержание последнего прибора.
	Tail time.Duration // Tail - пауза после дорожки.
}

// Player fades fixtures of three channels (R, G, B) in and out lane by lane.
type Player struct {
	log     logger.Logger
	out     Output
	lanes   Lanes
	opacity []byte
	timing  Timing
	after   func(time.Duration) <-chan time.Time
}

// NewPlayer конструктор.
func NewPlayer(log logger.Logger, out Output, lanes Lanes, opacity []byte, timing Timing) (*Player, error) {
	if len(opacity) == 0 {
		return nil, errors.New("show: empty opacity scale")
	}
	if err := lanes.Validate(fixtureChannels); err != nil {
		return nil, err
	}
	return &Player{
		log:     log,
		out:     out,
		lanes:   lanes,
		opacity: opacity,
		timing:  timing,
		after:   time.After,
	}, nil
}

// NewPlayerFromConfig builds the lane table, opacity scale and timing from cfg.
func NewPlayerFromConfig(log logger.Logger, out Output, cfg config.ShowConf) (*Player, error) {
	if cfg.Width != fixtureChannels {
		return nil, fmt.Errorf("show: fixture width %d, the player drives %d channels", cfg.Width, fixtureChannels)
	}
	lanes, err := LanesFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	opacity := make([]byte, len(cfg.Opacity))
	for i, v := range cfg.Opacity {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("show: opacity %d out of byte range", v)
		}
		opacity[i] = byte(v)
	}
	return NewPlayer(log, out, lanes, opacity, Timing{
		Step: cfg.Step.Duration,
		Hold: cfg.Hold.Duration,
		Tail: cfg.Tail.Duration,
	})
}

// Lanes returns the number of lanes.
func (p *Player) Lanes() int {
	return len(p.lanes)
}

// FadeIn lights the fixture at start with the opacity of step.
// The last step of the scale lights the first channel only.
func (p *Player) FadeIn(start, step int) error {
	if step >= len(p.opacity) {
		step = len(p.opacity) - 1
	}
	v := p.opacity[step]
	gb := v
	if step == len(p.opacity)-1 {
		gb = 0
	}
	p.log.With(logger.Fields{"module": "show"}).Debugf("fade in channel %d step %d value %d", start, step, v)
	return p.apply(start, v, gb, gb)
}

// FadeOut turns the fixture at start off.
func (p *Player) FadeOut(start int) error {
	p.log.With(logger.Fields{"module": "show"}).Debugf("fade out channel %d", start)
	return p.apply(start, 0, 0, 0)
}

// Reset sets the first fixture to full white.
func (p *Player) Reset() error {
	return p.apply(1, 255, 255, 255)
}

func (p *Player) apply(start int, r, g, b byte) error {
	return p.out.Apply([]dmx.ChannelValue{
		{Channel: start, Value: r},
		{Channel: start + 1, Value: g},
		{Channel: start + 2, Value: b},
	}, true)
}

// PlayLane runs the sequence of lane n and returns when it has finished or ctx is done.
func (p *Player) PlayLane(ctx context.Context, n int) error {
	if n < 0 || n >= len(p.lanes) {
		return fmt.Errorf("%w: %d", ErrUnknownLane, n)
	}
	lane := p.lanes[n]
	p.log.With(logger.Fields{"module": "show"}).Infof("play lane %d (%d fixtures)", n, len(lane))

	for i, ch := range lane {
		if err := p.FadeIn(ch, i); err != nil {
			return err
		}
		if err := p.wait(ctx, p.timing.Step); err != nil {
			return err
		}
		if i == len(lane)-1 {
			if err := p.wait(ctx, p.timing.Hold); err != nil {
				return err
			}
		}
		if err := p.FadeOut(ch); err != nil {
			return err
		}
	}
	return p.wait(ctx, p.timing.Tail)
}

// PlayAll runs every lane at the same time.
func (p *Player) PlayAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for n := range p.lanes {
		n := n
		g.Go(func() error {
			return p.PlayLane(ctx, n)
		})
	}
	return g.Wait()
}

func (p *Player) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.after(d):
		return nil
	}
}
