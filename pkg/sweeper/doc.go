// Package sweeper moves subscription accounts along their lifecycle when no
// billing event arrives to do it.
//
// A sweep pages through the accounts due at the current time, ordered by
// billing date and ID, and for each one:
//
//   - resumes paused accounts whose resume date has passed
//   - expires past-due accounts beyond the grace period and canceled
//     accounts past their paid period
//   - marks active or trialing accounts past due once their billing date
//     passes without a renewal
//   - resets the monthly design counter when a new calendar month started
//
// Every transition goes through account.Service, so it is validated by the
// same transition table and saved with the same optimistic locking as
// changes made by request handlers or webhooks. A failure on one account is
// logged and counted; the sweep continues with the rest. Past-due accounts
// still inside their grace period are not listed, so they never crowd out
// accounts that need work.
//
// Sweeps are scheduled with github.com/robfig/cron/v3:
//
//	s := sweeper.New(store, accounts, accountant, projector,
//		sweeper.WithLogger(log),
//		sweeper.WithMetrics(sweeper.NewMetrics(prometheus.DefaultRegisterer)),
//	)
//	c, err := s.Scheduler(cfg)
//	if err != nil {
//		return err
//	}
//	c.Start()
//	defer func() { <-c.Stop().Done() }()
package sweeper
