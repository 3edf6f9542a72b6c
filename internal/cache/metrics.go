package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Instrumented wraps a Store and counts operations by outcome.
type Instrumented struct {
	next Store
	ops  *prometheus.CounterVec // labels: op, result
}

func Instrument(next Store, ops *prometheus.CounterVec) *Instrumented {
	return &Instrumented{next: next, ops: ops}
}

func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok, err := c.next.Get(ctx, key)

	switch {
	case err != nil:
		c.ops.WithLabelValues("get", "error").Inc()
	case ok:
		c.ops.WithLabelValues("get", "hit").Inc()
	default:
		c.ops.WithLabelValues("get", "miss").Inc()
	}

	return val, ok, err
}

func (c *Instrumented) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	err := c.next.Set(ctx, key, val, ttl)

	if err != nil {
		c.ops.WithLabelValues("set", "error").Inc()
	} else {
		c.ops.WithLabelValues("set", "ok").Inc()
	}

	return err
}

func (c *Instrumented) DeletePrefix(ctx context.Context, prefix string) error {
	err := c.next.DeletePrefix(ctx, prefix)

	if err != nil {
		c.ops.WithLabelValues("delete_prefix", "error").Inc()
	} else {
		c.ops.WithLabelValues("delete_prefix", "ok").Inc()
	}

	return err
}

func (c *Instrumented) Close() error {
	return c.next.Close()
}
