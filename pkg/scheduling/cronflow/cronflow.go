// Package cronflow turns time into a flow source: cron expressions and
// fixed intervals become cold flows of fire times, composable with the
// whole flow operator set.
//
//	ticks, err := cronflow.Schedule("*/5 * * * *")
//	if err != nil {
//		return err
//	}
//	err = ticks.Take(3).Collect(ctx, func(t time.Time) error {
//		return runReport(t)
//	})
//
// A collection stops when its context is cancelled or a truncating
// operator stops it; until then the flow keeps firing. Because emission
// backpressure applies, a handler still running when the next fire time
// arrives delays that fire rather than overlapping it.
package cronflow

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vnykmshr/coflow/pkg/flow"
)

// Schedule returns a flow that emits the fire times of a standard cron
// expression. Supports the five-field format ("30 14 * * 1-5") and
// descriptors like "@hourly" or "@every 90s". The expression is parsed
// once, eagerly, so an invalid expression fails here rather than at
// collection time.
func Schedule(expr string) (*flow.Flow[time.Time], error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("cronflow: parse %q: %w", expr, err)
	}
	return fromSchedule(schedule), nil
}

// ScheduleIn is like Schedule but evaluates the expression in the given
// time zone instead of the local one.
func ScheduleIn(expr string, loc *time.Location) (*flow.Flow[time.Time], error) {
	schedule, err := cron.ParseStandard(fmt.Sprintf("CRON_TZ=%s %s", loc.String(), expr))
	if err != nil {
		return nil, fmt.Errorf("cronflow: parse %q in %v: %w", expr, loc, err)
	}
	return fromSchedule(schedule), nil
}

// Every returns a flow that fires at the given interval, starting one
// interval after collection begins. Unlike cron expressions it supports
// sub-minute intervals. Panics if interval is not positive.
func Every(interval time.Duration) *flow.Flow[time.Time] {
	if interval <= 0 {
		panic(fmt.Sprintf("cronflow: interval must be positive, got %v", interval))
	}
	return flow.New(func(ctx context.Context, out flow.Collector[time.Time]) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case t := <-ticker.C:
				if err := out.Emit(ctx, t); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}

func fromSchedule(schedule cron.Schedule) *flow.Flow[time.Time] {
	return flow.New(func(ctx context.Context, out flow.Collector[time.Time]) error {
		timer := time.NewTimer(0)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		for {
			next := schedule.Next(time.Now())
			timer.Reset(time.Until(next))

			select {
			case <-timer.C:
				if err := out.Emit(ctx, next); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})
}
