/*
Package scheduling provides time-driven flow sources.

  - cronflow: cron expressions and fixed intervals as cold flows

Cron-driven flow:

	ticks, err := cronflow.Schedule("0 9 * * MON-FRI") // weekdays at 9 AM
	if err != nil {
		return err
	}

	err = ticks.Collect(ctx, func(t time.Time) error {
		return sendDigest(t)
	})

Interval flow:

	err := cronflow.Every(time.Minute).Take(10).Collect(ctx, poll)

Because fire times are flow emissions, collection backpressure applies: a
handler still running when the next fire time arrives delays that fire
instead of overlapping it, and cancelling the collection context stops
the schedule.
*/
package scheduling
