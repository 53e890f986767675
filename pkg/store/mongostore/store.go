// Package mongostore implements account.Store on MongoDB.
//
// Every conditional operation is a single filtered update, so the quota and
// version checks are evaluated by the server against the current document.
// A partial unique index on user_id over documents holding the active slot
// enforces one active account per user.
package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/canvascue/accounting/pkg/account"
)

const (
	// DefaultCollection holds subscription accounts.
	DefaultCollection = "subscription_accounts"

	activeUserIndex = "accounts_active_user_unique"
)

// Store implements account.Store.
type Store struct {
	coll *mongo.Collection
}

var _ account.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithCollection overrides the collection name.
func WithCollection(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.coll = s.coll.Database().Collection(name)
		}
	}
}

// New returns a store over db. Call EnsureIndexes before first use.
func New(db *mongo.Database, opts ...Option) *Store {
	if db == nil {
		panic("mongostore: database is required")
	}
	s := &Store{coll: db.Collection(DefaultCollection)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the indexes the store relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName(activeUserIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"holds_active_slot": true}),
		},
		{
			Keys:    bson.D{{Key: "next_billing_at", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("accounts_due"),
		},
	})
	if err != nil {
		return errors.Join(ErrFailedToCreateIndexes, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

func (s *Store) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	return s.findOne(ctx, bson.M{"user_id": userID.String(), "holds_active_slot": true})
}

func (s *Store) Create(ctx context.Context, acct *account.Account) error {
	doc := toDocument(acct)
	doc.Version = 1
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), activeUserIndex) {
				return account.ErrActiveAccountExists
			}
			return account.ErrInvalidAccount
		}
		return errors.Join(account.ErrFailedToCreateAccount, err)
	}
	acct.Version = 1
	return nil
}

func (s *Store) Save(ctx context.Context, acct *account.Account) error {
	doc := toDocument(acct)

	var saved accountDocument
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": doc.ID, "version": acct.Version},
		bson.M{"$set": lifecycleFields(doc), "$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&saved)
	switch {
	case err == nil:
	case errors.Is(err, mongo.ErrNoDocuments):
		if _, getErr := s.Get(ctx, acct.ID); getErr != nil {
			return getErr
		}
		return account.ErrConcurrentUpdate
	case mongo.IsDuplicateKeyError(err):
		return account.ErrActiveAccountExists
	default:
		return errors.Join(account.ErrFailedToSaveAccount, err)
	}

	acct.Version = saved.Version
	acct.Usage = account.Usage{
		DesignsUsedThisMonth: saved.Usage.DesignsUsedThisMonth,
		ActiveDesignRequests: saved.Usage.ActiveDesignRequests,
		LastResetAt:          saved.Usage.LastResetAt.UTC(),
	}
	return nil
}

func (s *Store) ResetUsageIfDue(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	start, next := account.MonthWindow(now)
	res, err := s.coll.UpdateOne(ctx,
		bson.M{
			"_id": id.String(),
			"$or": bson.A{
				bson.M{"usage.last_reset_at": bson.M{"$lt": start}},
				bson.M{"usage.last_reset_at": bson.M{"$gte": next}},
			},
		},
		bson.M{"$set": bson.M{
			"usage.designs_used_this_month": 0,
			"usage.last_reset_at":           now.UTC(),
		}},
	)
	if err != nil {
		return false, errors.Join(account.ErrFailedToSaveAccount, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) IncrementDesignsUsed(ctx context.Context, id uuid.UUID, limit int64) (int64, error) {
	var updated accountDocument
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{
			"_id":                           id.String(),
			"holds_active_slot":             true,
			"usage.designs_used_this_month": bson.M{"$lt": limit},
		},
		bson.M{"$inc": bson.M{"usage.designs_used_this_month": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		return updated.Usage.DesignsUsedThisMonth, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, errors.Join(account.ErrFailedToSaveAccount, err)
	}

	// The filter did not match; find out which condition failed.
	acct, getErr := s.Get(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	if !acct.IsActive() {
		return acct.Usage.DesignsUsedThisMonth, account.ErrAccountInactive
	}
	return acct.Usage.DesignsUsedThisMonth, account.ErrUsageLimitReached
}

func (s *Store) CompareAndSetActiveRequests(ctx context.Context, id uuid.UUID, expected, count int64) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id.String(), "usage.active_design_requests": expected},
		bson.M{"$set": bson.M{"usage.active_design_requests": count}},
	)
	if err != nil {
		return errors.Join(account.ErrFailedToSaveAccount, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return account.ErrConcurrentUpdate
}

func (s *Store) ListDue(ctx context.Context, q account.DueQuery) ([]*account.Account, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{
			"status":          bson.M{"$in": bson.A{string(account.StatusActive), string(account.StatusTrialing)}},
			"next_billing_at": bson.M{"$lte": q.Now},
		},
		bson.M{
			"status":          string(account.StatusPastDue),
			"next_billing_at": bson.M{"$lte": q.PastDueCutoff()},
		},
		bson.M{
			"status":             string(account.StatusCanceled),
			"current_period_end": bson.M{"$lte": q.Now},
		},
		bson.M{
			"status":    string(account.StatusPaused),
			"resume_at": bson.M{"$lte": q.Now},
		},
	}}
	if q.After != nil {
		// Hex UUID strings sort in the same order as the raw bytes.
		filter = bson.M{"$and": bson.A{filter, bson.M{"$or": bson.A{
			bson.M{"next_billing_at": bson.M{"$gt": q.After.NextBillingAt}},
			bson.M{"next_billing_at": q.After.NextBillingAt, "_id": bson.M{"$gt": q.After.ID.String()}},
		}}}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "next_billing_at", Value: 1}, {Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Join(account.ErrFailedToLoadAccount, err)
	}
	defer cur.Close(ctx)

	var docs []accountDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Join(account.ErrFailedToLoadAccount, err)
	}

	due := make([]*account.Account, 0, len(docs))
	for _, d := range docs {
		acct, err := d.toAccount()
		if err != nil {
			return nil, errors.Join(account.ErrFailedToLoadAccount, err)
		}
		due = append(due, acct)
	}
	return due, nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*account.Account, error) {
	var doc accountDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, account.ErrAccountNotFound
		}
		return nil, errors.Join(account.ErrFailedToLoadAccount, err)
	}
	acct, err := doc.toAccount()
	if err != nil {
		return nil, errors.Join(account.ErrFailedToLoadAccount, err)
	}
	return acct, nil
}
