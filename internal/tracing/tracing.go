// Package tracing wraps AWS X-Ray so every call site can stay unconditional.
// Until Configure enables tracing, every helper is a no-op.
package tracing

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/aws/aws-xray-sdk-go/strategy/ctxmissing"
	"github.com/aws/aws-xray-sdk-go/xray"
)

var enabled atomic.Bool

// Config controls the X-Ray integration.
type Config struct {
	Enabled        bool
	DaemonAddr     string
	ServiceVersion string
}

// Configure applies cfg. Disabled configs only reset the toggle.
func Configure(cfg Config) error {
	if !cfg.Enabled {
		enabled.Store(false)
		return nil
	}
	if err := xray.Configure(xray.Config{
		DaemonAddr:             cfg.DaemonAddr,
		ServiceVersion:         cfg.ServiceVersion,
		ContextMissingStrategy: ctxmissing.NewDefaultLogErrorStrategy(),
	}); err != nil {
		return fmt.Errorf("configure xray: %w", err)
	}
	enabled.Store(true)
	return nil
}

// Enabled reports whether spans are recorded.
func Enabled() bool {
	return enabled.Load()
}

// StartSegment opens a root segment, e.g. for one reminder sweep.
func StartSegment(ctx context.Context, name string) (context.Context, func(error)) {
	if !Enabled() {
		return ctx, func(error) {}
	}
	ctx, seg := xray.BeginSegment(ctx, name)
	return ctx, closer(seg)
}

// StartSubsegment opens a child of the segment carried by ctx.
func StartSubsegment(ctx context.Context, name string) (context.Context, func(error)) {
	if !Enabled() {
		return ctx, func(error) {}
	}
	ctx, seg := xray.BeginSubsegment(ctx, name)
	return ctx, closer(seg)
}

// OpenDB opens a database handle, instrumented when tracing is enabled.
func OpenDB(driver, dsn string) (*sql.DB, error) {
	if Enabled() {
		return xray.SQLContext(driver, dsn)
	}
	return sql.Open(driver, dsn)
}

func closer(seg *xray.Segment) func(error) {
	return func(err error) {
		if seg != nil {
			seg.Close(err)
		}
	}
}
