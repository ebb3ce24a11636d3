// Package output delivers rendered crash records to the human-facing
// channels: the console, a modal dialog, a text viewer, a shell window and
// a desktop notification.
//
// A Dispatcher renders each record once per style and hands every selected
// channel its payload, the terse rendering for the notification and the
// full rendering for everything else. Channels are independent: a failure
// on one does not skip the rest, but any failure is returned so the caller
// can stop.
package output

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/crashwatch/internal/config"
	"github.com/blackwell-systems/crashwatch/internal/metrics"
	"github.com/blackwell-systems/crashwatch/internal/record"
)

// Sink delivers one payload to one channel.
type Sink interface {
	Deliver(payload string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(payload string) error

func (f SinkFunc) Deliver(payload string) error { return f(payload) }

// Dispatcher fans each record out to the selected channels in channel
// order.
type Dispatcher struct {
	channels config.ChannelSet
	style    config.Style
	sinks    map[config.Channel]Sink
	log      zerolog.Logger
}

// NewDispatcher returns a Dispatcher for channels. Every selected channel
// must have a sink.
func NewDispatcher(channels config.ChannelSet, style config.Style, sinks map[config.Channel]Sink, log zerolog.Logger) (*Dispatcher, error) {
	for _, ch := range channels.Channels() {
		if sinks[ch] == nil {
			return nil, fmt.Errorf("no sink for channel %s", ch)
		}
	}
	return &Dispatcher{
		channels: channels,
		style:    style,
		sinks:    sinks,
		log:      log,
	}, nil
}

// Channels returns the selected channels.
func (d *Dispatcher) Channels() config.ChannelSet {
	return d.channels
}

// Dispatch renders r and delivers it to every selected channel. A record
// that cannot be rendered is not delivered anywhere.
func (d *Dispatcher) Dispatch(r record.Record) error {
	rendered, err := record.Render(r, d.style)
	if err != nil {
		return fmt.Errorf("failed to render record: %w", err)
	}

	var errs []error
	for _, ch := range d.channels.Channels() {
		payload := rendered.Full
		if ch == config.ChannelToast {
			payload = rendered.Terse
		}
		if err := d.sinks[ch].Deliver(payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
			continue
		}
		metrics.ObserveDelivery(ch.String())
		d.log.Debug().Str("channel", ch.String()).Int("bytes", len(payload)).Msg("delivered")
	}
	return errors.Join(errs...)
}
