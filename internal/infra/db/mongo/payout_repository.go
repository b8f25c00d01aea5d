package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainpayout "stayride/internal/domain/payout"
)

var ErrPayoutExists = errors.New("mongo: payout already recorded")

type PayoutRepository struct {
	col *mongo.Collection
}

func NewPayoutRepository(db *mongo.Database) *PayoutRepository {
	col := db.Collection("ledger_payout")
	// One entry per booking and role. The unique index backs the
	// exactly-once guarantee at the storage level as well.
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "booking_id", Value: 1}, {Key: "role", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "role", Value: 1}},
	})
	return &PayoutRepository{col: col}
}

// Add appends a ledger entry. Entries are never replaced.
func (r *PayoutRepository) Add(ctx context.Context, p *domainpayout.Payout) error {
	_, err := r.col.InsertOne(ctx, newPayoutDocument(p))
	if mongo.IsDuplicateKeyError(err) {
		return ErrPayoutExists
	}
	return err
}

func (r *PayoutRepository) ByID(ctx context.Context, id domainpayout.PayoutID) (*domainpayout.Payout, error) {
	var doc payoutDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainpayout.ErrPayoutNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PayoutRepository) ListPending(ctx context.Context, role domainpayout.PayeeRole) ([]*domainpayout.Payout, error) {
	filter := bson.M{"status": string(domainpayout.StatusPending)}
	if role != "" {
		filter["role"] = string(role)
	}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	return decodePayouts(ctx, cur)
}

func (r *PayoutRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domainpayout.Payout, error) {
	cur, err := r.col.Find(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, err
	}
	return decodePayouts(ctx, cur)
}

// Update only moves the settlement fields; the monetary split is immutable.
func (r *PayoutRepository) Update(ctx context.Context, p *domainpayout.Payout) error {
	update := bson.M{"$set": bson.M{
		"status":  string(p.Status),
		"method":  p.Method,
		"paid_at": optionalMilli(p.PaidAt),
	}}
	res, err := r.col.UpdateByID(ctx, string(p.ID), update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainpayout.ErrPayoutNotFound
	}
	return nil
}

func decodePayouts(ctx context.Context, cur *mongo.Cursor) ([]*domainpayout.Payout, error) {
	defer cur.Close(ctx)
	var out []*domainpayout.Payout
	for cur.Next(ctx) {
		var doc payoutDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type payoutDocument struct {
	ID        string        `bson:"_id"`
	BookingID string        `bson:"booking_id"`
	TripID    string        `bson:"trip_id,omitempty"`
	PayeeID   string        `bson:"payee_id"`
	Role      string        `bson:"role"`
	Gross     moneyDocument `bson:"gross"`
	Fee       moneyDocument `bson:"fee"`
	VAT       moneyDocument `bson:"vat"`
	Net       moneyDocument `bson:"net"`
	Status    string        `bson:"status"`
	Method    string        `bson:"method,omitempty"`
	CreatedAt int64         `bson:"created_at"`
	PaidAt    int64         `bson:"paid_at,omitempty"`
}

func newPayoutDocument(p *domainpayout.Payout) payoutDocument {
	return payoutDocument{
		ID:        string(p.ID),
		BookingID: p.BookingID,
		TripID:    p.TripID,
		PayeeID:   p.PayeeID,
		Role:      string(p.Role),
		Gross:     newMoneyDocument(p.Gross),
		Fee:       newMoneyDocument(p.Fee),
		VAT:       newMoneyDocument(p.VAT),
		Net:       newMoneyDocument(p.Net),
		Status:    string(p.Status),
		Method:    p.Method,
		CreatedAt: p.CreatedAt.UnixMilli(),
		PaidAt:    optionalMilli(p.PaidAt),
	}
}

func (d payoutDocument) toAggregate() *domainpayout.Payout {
	return &domainpayout.Payout{
		ID:        domainpayout.PayoutID(d.ID),
		BookingID: d.BookingID,
		TripID:    d.TripID,
		PayeeID:   d.PayeeID,
		Role:      domainpayout.PayeeRole(d.Role),
		Gross:     d.Gross.toMoney(),
		Fee:       d.Fee.toMoney(),
		VAT:       d.VAT.toMoney(),
		Net:       d.Net.toMoney(),
		Status:    domainpayout.Status(d.Status),
		Method:    d.Method,
		CreatedAt: timestampToTime(d.CreatedAt),
		PaidAt:    optionalTime(d.PaidAt),
	}
}
