package tier

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultCollection is the collection holding seeded tiers.
const DefaultCollection = "tiers"

// MongoCatalog reads tiers from a MongoDB collection and upserts them during seeding.
type MongoCatalog struct {
	coll *mongo.Collection
}

// NewMongoCatalog returns a catalog over db.Collection(DefaultCollection).
func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{coll: db.Collection(DefaultCollection)}
}

// tierDocument is the stored form; prices are kept as decimal strings to avoid
// float rounding in the database.
type tierDocument struct {
	ID                    string    `bson:"_id"`
	Name                  string    `bson:"name"`
	Level                 int       `bson:"level"`
	MonthlyPrice          string    `bson:"monthly_price"`
	QuarterlyPrice        string    `bson:"quarterly_price"`
	Currency              string    `bson:"currency"`
	MonthlyDesignQuota    int64     `bson:"monthly_design_quota"`
	ConcurrentDesignQuota int64     `bson:"concurrent_design_quota"`
	Features              []Feature `bson:"features"`
	Active                bool      `bson:"active"`
}

func toDocument(t Tier) tierDocument {
	return tierDocument{
		ID:                    t.ID,
		Name:                  t.Name,
		Level:                 t.Level,
		MonthlyPrice:          t.MonthlyPrice.String(),
		QuarterlyPrice:        t.QuarterlyPrice.String(),
		Currency:              t.Currency,
		MonthlyDesignQuota:    t.MonthlyDesignQuota,
		ConcurrentDesignQuota: t.ConcurrentDesignQuota,
		Features:              t.Features,
		Active:                t.Active,
	}
}

func (d tierDocument) toTier() (Tier, error) {
	monthly, err := decimal.NewFromString(d.MonthlyPrice)
	if err != nil {
		return Tier{}, fmt.Errorf("tier %s monthly price: %w", d.ID, err)
	}
	quarterly, err := decimal.NewFromString(d.QuarterlyPrice)
	if err != nil {
		return Tier{}, fmt.Errorf("tier %s quarterly price: %w", d.ID, err)
	}
	return Tier{
		ID:                    d.ID,
		Name:                  d.Name,
		Level:                 d.Level,
		MonthlyPrice:          monthly,
		QuarterlyPrice:        quarterly,
		Currency:              d.Currency,
		MonthlyDesignQuota:    d.MonthlyDesignQuota,
		ConcurrentDesignQuota: d.ConcurrentDesignQuota,
		Features:              d.Features,
		Active:                d.Active,
	}, nil
}

// EnsureIndexes creates the unique level index that backs the level invariant.
func (c *MongoCatalog) EnsureIndexes(ctx context.Context) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "level", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("tiers_level_unique"),
	})
	if err != nil {
		return errors.Join(ErrFailedToCreateIndexes, err)
	}
	return nil
}

func (c *MongoCatalog) GetTierByID(ctx context.Context, id string) (Tier, error) {
	var doc tierDocument
	if err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Tier{}, fmt.Errorf("%w: %s", ErrTierNotFound, id)
		}
		return Tier{}, errors.Join(ErrFailedToLoadTiers, err)
	}
	return doc.toTier()
}

func (c *MongoCatalog) GetActiveTiers(ctx context.Context) ([]Tier, error) {
	cur, err := c.coll.Find(ctx, bson.M{"active": true}, options.Find().SetSort(bson.D{{Key: "level", Value: 1}}))
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}
	defer cur.Close(ctx)

	var docs []tierDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Join(ErrFailedToLoadTiers, err)
	}

	tiers := make([]Tier, 0, len(docs))
	for _, d := range docs {
		t, err := d.toTier()
		if err != nil {
			return nil, errors.Join(ErrFailedToLoadTiers, err)
		}
		tiers = append(tiers, t)
	}
	return tiers, nil
}

// Seed validates tiers as a whole and upserts each of them by ID.
func (c *MongoCatalog) Seed(ctx context.Context, tiers []Tier) error {
	if err := Validate(tiers); err != nil {
		return err
	}
	for _, t := range tiers {
		_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": t.ID}, toDocument(t), options.Replace().SetUpsert(true))
		if err != nil {
			return errors.Join(ErrFailedToPersistTier, fmt.Errorf("tier %s: %w", t.ID, err))
		}
	}
	return nil
}
