package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/canvascue/accounting/pkg/account"
	"github.com/canvascue/accounting/pkg/billingcycle"
	"github.com/canvascue/accounting/pkg/logger"
	"github.com/canvascue/accounting/pkg/usage"
)

// Action names what a sweep did to an account.
type Action string

const (
	ActionNone    Action = "none"
	ActionResume  Action = "resume"
	ActionExpire  Action = "expire"
	ActionPastDue Action = "past_due"
	ActionReset   Action = "usage_reset"
)

// Result summarizes one sweep.
type Result struct {
	Scanned int
	Actions map[Action]int
	Failed  int
	// Truncated is set when the page limit was reached with the last page
	// full, so more accounts may be due.
	Truncated bool
}

// Sweeper applies time-driven lifecycle changes to due accounts.
type Sweeper struct {
	store      account.Store
	accounts   *account.Service
	accountant *usage.Accountant
	projector  *billingcycle.Projector

	now      func() time.Time
	logger   *slog.Logger
	metrics  *Metrics
	batch    int
	maxPages int
}

// New creates a Sweeper. Panics if a dependency is nil.
func New(store account.Store, accounts *account.Service, accountant *usage.Accountant, projector *billingcycle.Projector, opts ...Option) *Sweeper {
	if store == nil || accounts == nil || accountant == nil || projector == nil {
		panic("sweeper: store, accounts, accountant and projector are required")
	}
	s := &Sweeper{
		store:      store,
		accounts:   accounts,
		accountant: accountant,
		projector:  projector,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     slog.New(slog.DiscardHandler),
		metrics:    NewMetrics(nil),
		batch:      200,
		maxPages:   50,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one sweep, paging through due accounts in batches until a
// short page or the page limit. Per-account failures do not stop the sweep;
// they are reported through ErrSweepIncomplete once every account was visited.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	began := time.Now()
	defer func() { s.metrics.Duration.Observe(time.Since(began).Seconds()) }()

	now := s.now()
	q := account.DueQuery{
		Now:           now,
		PastDueBefore: now.Add(-s.projector.GracePeriod()),
		Limit:         s.batch,
	}

	res := Result{Actions: make(map[Action]int)}
	var errs []error
	for page := 0; ; page++ {
		if page == s.maxPages {
			res.Truncated = true
			break
		}

		due, err := s.store.ListDue(ctx, q)
		if err != nil {
			if page == 0 {
				return Result{}, errors.Join(ErrFailedToListDue, err)
			}
			errs = append(errs, errors.Join(ErrFailedToListDue, err))
			break
		}
		res.Scanned += len(due)

		if !s.sweepPage(ctx, due, &res, &errs) || len(due) < s.batch {
			break
		}
		q.After = account.CursorAt(due[len(due)-1])
	}
	s.metrics.Runs.Inc()

	s.logger.InfoContext(ctx, "billing sweep finished",
		slog.Int("scanned", res.Scanned),
		slog.Int("failed", res.Failed),
		slog.Bool("truncated", res.Truncated),
		logger.Duration(time.Since(began)),
	)
	if len(errs) > 0 {
		return res, errors.Join(append([]error{ErrSweepIncomplete}, errs...)...)
	}
	return res, nil
}

// sweepPage handles one page of due accounts. It returns false when the
// context ended before the page was done.
func (s *Sweeper) sweepPage(ctx context.Context, due []*account.Account, res *Result, errs *[]error) bool {
	for _, acct := range due {
		if ctx.Err() != nil {
			*errs = append(*errs, ctx.Err())
			return false
		}

		actions, err := s.sweepAccount(ctx, acct)
		for _, a := range actions {
			res.Actions[a]++
			s.metrics.Transitions.WithLabelValues(string(a)).Inc()
		}
		if err != nil {
			res.Failed++
			s.metrics.Failures.Inc()
			s.logger.ErrorContext(ctx, "failed to sweep account",
				logger.AccountID(acct.ID),
				logger.Status(string(acct.Status)),
				logger.Error(err),
			)
			*errs = append(*errs, fmt.Errorf("account %s: %w", acct.ID, err))
		}
	}
	return true
}

// Decide returns the lifecycle action the account needs now, if any.
func (s *Sweeper) Decide(acct *account.Account) Action {
	switch {
	case s.projector.ShouldResume(acct):
		return ActionResume
	case s.projector.ShouldExpire(acct):
		return ActionExpire
	case acct.IsActive() && s.projector.IsOverdue(acct):
		return ActionPastDue
	default:
		return ActionNone
	}
}

func (s *Sweeper) sweepAccount(ctx context.Context, acct *account.Account) ([]Action, error) {
	ctx = logger.ContextWithAccountID(ctx, acct.ID)
	var actions []Action

	action := s.Decide(acct)
	var err error
	switch action {
	case ActionResume:
		_, err = s.accounts.Resume(ctx, acct.ID)
	case ActionExpire:
		_, err = s.accounts.Expire(ctx, acct.ID)
	case ActionPastDue:
		_, err = s.accounts.MarkPastDue(ctx, acct.ID)
	}
	switch {
	case errors.Is(err, account.ErrInvalidTransition):
		// A webhook moved the account after it was listed.
		s.logger.DebugContext(ctx, "sweep action no longer applies",
			logger.Event(string(action)), logger.Error(err))
	case err != nil:
		return actions, err
	case action != ActionNone:
		actions = append(actions, action)
	}

	reset, err := s.accountant.ResetMonthlyUsageIfDue(ctx, acct.ID)
	if err != nil {
		return actions, err
	}
	if reset {
		actions = append(actions, ActionReset)
	}
	return actions, nil
}
