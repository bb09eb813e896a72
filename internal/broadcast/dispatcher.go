package broadcast

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tgadmin/pkg/logx"
)

// Deliverer submits one message to one recipient via the external
// provider. A single attempt; any failure is returned as an error and
// absorbed by the dispatcher, never propagated.
type Deliverer interface {
	Send(ctx context.Context, recipientID, text string, markdown bool) error
}

// Config tunes the dispatch loop.
type Config struct {
	// RatePerSec paces outbound sends. Default 10. Sends remain
	// strictly sequential; this never introduces concurrency.
	RatePerSec int
}

// Dispatcher orchestrates one broadcast: resolve, render, deliver,
// tally, stream progress.
type Dispatcher struct {
	resolver *Resolver
	deliver  Deliverer
	rps      int
	log      logx.Logger
}

func NewDispatcher(resolver *Resolver, deliver Deliverer, cfg Config, log logx.Logger) *Dispatcher {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{resolver: resolver, deliver: deliver, rps: rps, log: log}
}

// Run validates and resolves the request, then streams events from a
// single producer goroutine. The returned channel carries zero or more
// progress events and, unless the consumer goes away first, exactly one
// terminal result, after which it is closed.
//
// Validation and resolution failures are returned directly; no channel
// is opened and no delivery is attempted.
func (d *Dispatcher) Run(ctx context.Context, req Request) (<-chan Event, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: empty message", ErrInvalidRequest)
	}
	typ, err := ParseRecipientType(string(req.Selector.Type))
	if err != nil {
		return nil, err
	}
	req.Selector.Type = typ

	recipients, err := d.resolver.Resolve(ctx, req.Selector)
	if err != nil {
		return nil, err
	}

	// Unbuffered: each emission waits for the consumer, so a gone
	// consumer is noticed at the next emission point.
	out := make(chan Event)
	go d.run(ctx, req, recipients, out)
	return out, nil
}

func (d *Dispatcher) run(ctx context.Context, req Request, recipients []Recipient, out chan<- Event) {
	defer close(out)

	start := time.Now()
	total := len(recipients)
	res := Result{Total: total, Errors: []string{}}

	if total == 0 {
		d.log.Info("broadcast finished", logx.String("type", string(req.Selector.Type)), logx.Int("total", 0))
		emit(ctx, out, Event{Kind: EventResult, Result: &res})
		return
	}

	// Personalization mode is decided once on the raw template.
	personalized := NeedsPersonalization(req.Message)
	shared := req.Message

	lim := rate.NewLimiter(rate.Limit(d.rps), 1)

	d.log.Info("broadcast started",
		logx.String("type", string(req.Selector.Type)),
		logx.Int("total", total),
		logx.Bool("personalized", personalized),
	)

	for i, rcp := range recipients {
		if err := lim.Wait(ctx); err != nil {
			d.log.Debug("broadcast interrupted", logx.Int("sent", i), logx.Int("total", total))
			return
		}

		body := shared
		if personalized {
			body = Render(req.Message, rcp)
		}

		if err := d.deliver.Send(ctx, rcp.ID, body, req.Markdown); err != nil {
			res.Failed++
			if len(res.Errors) < maxRecordedErrors {
				res.Errors = append(res.Errors, fmt.Sprintf("failed to send to user %s: %v", rcp.ID, err))
			}
			d.log.Debug("delivery failed", logx.String("recipient", rcp.ID), logx.Err(err))
		} else {
			res.Success++
		}

		sent := i + 1
		p := Progress{
			Sent:    sent,
			Total:   total,
			Percent: int(math.Round(float64(sent) / float64(total) * 100)),
		}
		if !emit(ctx, out, Event{Kind: EventProgress, Progress: &p}) {
			d.log.Debug("broadcast consumer gone", logx.Int("sent", sent), logx.Int("total", total))
			return
		}
	}

	fields := []logx.Field{
		logx.String("type", string(req.Selector.Type)),
		logx.Int("total", res.Total),
		logx.Int("failed", res.Failed),
		logx.Duration("dur", time.Since(start)),
	}
	if res.Failed > 0 {
		d.log.Warn("broadcast finished with failures", fields...)
	} else {
		d.log.Info("broadcast finished", fields...)
	}

	emit(ctx, out, Event{Kind: EventResult, Result: &res})
}

func emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
