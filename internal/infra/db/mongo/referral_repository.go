package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainreferral "stayride/internal/domain/referral"
)

type ReferralRepository struct {
	col *mongo.Collection
}

func NewReferralRepository(db *mongo.Database) *ReferralRepository {
	return &ReferralRepository{col: db.Collection("agg_referral")}
}

func (r *ReferralRepository) ByGuest(ctx context.Context, guestID string) (*domainreferral.Account, error) {
	var doc referralDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": guestID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreferral.ErrAccountNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReferralRepository) Save(ctx context.Context, a *domainreferral.Account) error {
	doc := referralDocument{
		ID:         a.GuestID,
		ReferrerID: a.ReferrerID,
		Rewarded:   a.Rewarded,
		PromoCode:  a.PromoCode,
		RewardedAt: optionalMilli(a.RewardedAt),
		CreatedAt:  a.CreatedAt.UnixMilli(),
	}
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type referralDocument struct {
	ID         string `bson:"_id"`
	ReferrerID string `bson:"referrer_id"`
	Rewarded   bool   `bson:"rewarded"`
	PromoCode  string `bson:"promo_code,omitempty"`
	RewardedAt int64  `bson:"rewarded_at,omitempty"`
	CreatedAt  int64  `bson:"created_at"`
}

func (d referralDocument) toAggregate() *domainreferral.Account {
	return &domainreferral.Account{
		GuestID:    d.ID,
		ReferrerID: d.ReferrerID,
		Rewarded:   d.Rewarded,
		PromoCode:  d.PromoCode,
		RewardedAt: optionalTime(d.RewardedAt),
		CreatedAt:  timestampToTime(d.CreatedAt),
	}
}
