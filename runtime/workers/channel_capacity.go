package workers

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"chat-relay/observability"
)

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically reports the current channel capacity and
// length. Reading len(channel) and cap(channel) is non-blocking, so this won't
// interfere with other goroutines. The fan-out drops events once its inbox is
// full, so a channel that stays near capacity here shows up before drops do.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	metrics        *observability.Metrics
	metricInterval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel,
	metrics *observability.Metrics, metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:            log,
		channels:       channels,
		metrics:        metrics,
		metricInterval: metricInterval,
	}
}

func (w ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel sampling")
			return nil
		case <-ticker.C:
			for _, nc := range w.channels {
				w.sample(nc)
			}
		}
	}
}

func (w ChannelCapacityWorker) sample(nc NamedChannel) {
	v := reflect.ValueOf(nc.Channel)
	// Verify if this is a channel
	if v.Kind() != reflect.Chan {
		w.log.Error("Provided object is not a channel", "name", nc.Name)
		return
	}
	capacity := v.Cap()
	length := v.Len()
	w.metrics.SetChannelFill(nc.Name, length, capacity)

	if capacity > 0 && length*10 >= capacity*8 {
		w.log.Warn("Channel almost full", "name", nc.Name, "length", length, "capacity", capacity)
	}
}
