package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "stayride/internal/domain/booking"
	"stayride/internal/domain/listings"
	domainrange "stayride/internal/domain/shared/daterange"
	"stayride/internal/domain/shared/money"
	domaintrip "stayride/internal/domain/trip"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col   *mongo.Collection
	locks *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("agg_booking")
	// Gateway callbacks carry only a transaction id, so both ids are
	// indexed for the reverse lookup.
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "transaction_id", Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "extra.transaction_id", Value: 1}},
		Options: options.Index().SetSparse(true),
	})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "range.check_in", Value: 1}},
	})
	return &BookingRepository{col: col, locks: db.Collection("calendar_locks")}
}

// LockCalendar bumps a per-listing lock document inside the current session.
// The availability query alone reads a snapshot, so two concurrent creates
// for overlapping ranges would each see a free calendar and both insert;
// writing the shared lock document makes the transactions collide and aborts
// one of them with a transient error the client retries.
func (r *BookingRepository) LockCalendar(ctx context.Context, listingID listings.ListingID) error {
	_, err := r.locks.UpdateByID(ctx, string(listingID),
		bson.M{"$inc": bson.M{"version": 1}},
		options.Update().SetUpsert(true))
	return err
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) ByTransactionID(ctx context.Context, transactionID string) (*domainbooking.Booking, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"transaction_id": transactionID},
		bson.M{"extra.transaction_id": transactionID},
	}}
	var doc bookingDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) ActiveOverlapping(ctx context.Context, listingID listings.ListingID, dr domainrange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	// Half-open ranges: [a,b) overlaps [c,d) iff a < d && c < b.
	filter := bson.M{
		"listing_id":      string(listingID),
		"status":          bson.M{"$in": bson.A{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}},
		"range.check_in":  bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"range.check_out": bson.M{"$gt": dr.CheckIn.UnixMilli()},
	}
	if exclude != "" {
		filter["_id"] = bson.M{"$ne": string(exclude)}
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *BookingRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"status":         string(domainbooking.StatusPending),
		"payment_status": bson.M{"$ne": string(domainbooking.PaymentPaid)},
		"created_at":     bson.M{"$lt": cutoff.UnixMilli()},
	}
	return r.find(ctx, filter)
}

func (r *BookingRepository) ListRefundPending(ctx context.Context) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"extra.status": string(domainbooking.ExtraRefundPending)})
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*domainbooking.Booking
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type extraPaymentDocument struct {
	Required      bool          `bson:"required"`
	Amount        moneyDocument `bson:"amount"`
	Status        string        `bson:"status"`
	TransactionID string        `bson:"transaction_id,omitempty"`
	Claimed       bool          `bson:"claimed"`
}

type modificationDocument struct {
	Status      string        `bson:"status"`
	Range       rangeDocument `bson:"range"`
	RequestedBy string        `bson:"requested_by,omitempty"`
	RequestedAt int64         `bson:"requested_at,omitempty"`
}

type bookingDocument struct {
	ID            string               `bson:"_id"`
	ListingID     string               `bson:"listing_id"`
	GuestID       string               `bson:"guest_id"`
	HostID        string               `bson:"host_id"`
	TripID        string               `bson:"trip_id,omitempty"`
	Range         rangeDocument        `bson:"range"`
	Guests        int                  `bson:"guests"`
	Nightly       moneyDocument        `bson:"nightly"`
	Total         moneyDocument        `bson:"total"`
	PaidAmount    moneyDocument        `bson:"paid_amount"`
	Status        string               `bson:"status"`
	PaymentStatus string               `bson:"payment_status"`
	TransactionID string               `bson:"transaction_id,omitempty"`
	ValidationID  string               `bson:"validation_id,omitempty"`
	PaidAt        int64                `bson:"paid_at,omitempty"`
	Extra         extraPaymentDocument `bson:"extra"`
	Modification  modificationDocument `bson:"modification"`
	CheckInAt     int64                `bson:"check_in_at,omitempty"`
	CheckOutAt    int64                `bson:"check_out_at,omitempty"`
	PayoutIssued  bool                 `bson:"payout_issued"`
	ReferralDone  bool                 `bson:"referral_rewarded"`
	CreatedAt     int64                `bson:"created_at"`
	UpdatedAt     int64                `bson:"updated_at"`
	Version       int64                `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:            string(b.ID),
		ListingID:     string(b.ListingID),
		GuestID:       b.GuestID,
		HostID:        b.HostID,
		TripID:        string(b.TripID),
		Range:         rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Guests:        b.Guests,
		Nightly:       newMoneyDocument(b.Nightly),
		Total:         newMoneyDocument(b.Total),
		PaidAmount:    newMoneyDocument(b.PaidAmount),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		TransactionID: b.TransactionID,
		ValidationID:  b.ValidationID,
		PaidAt:        optionalMilli(b.PaidAt),
		Extra: extraPaymentDocument{
			Required:      b.Extra.Required,
			Amount:        newMoneyDocument(b.Extra.Amount),
			Status:        string(b.Extra.Status),
			TransactionID: b.Extra.TransactionID,
			Claimed:       b.Extra.Claimed,
		},
		Modification: modificationDocument{
			Status:      string(b.Modification.Status),
			Range:       rangeDocument{CheckIn: optionalMilli(b.Modification.Requested.CheckIn), CheckOut: optionalMilli(b.Modification.Requested.CheckOut)},
			RequestedBy: b.Modification.RequestedBy,
			RequestedAt: optionalMilli(b.Modification.RequestedAt),
		},
		CheckInAt:    optionalMilli(b.CheckInAt),
		CheckOutAt:   optionalMilli(b.CheckOutAt),
		PayoutIssued: b.PayoutIssued,
		ReferralDone: b.ReferralRewarded,
		CreatedAt:    b.CreatedAt.UnixMilli(),
		UpdatedAt:    b.UpdatedAt.UnixMilli(),
		Version:      b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:            domainbooking.BookingID(d.ID),
		ListingID:     listings.ListingID(d.ListingID),
		GuestID:       d.GuestID,
		HostID:        d.HostID,
		TripID:        domaintrip.TripID(d.TripID),
		Range:         domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)},
		Guests:        d.Guests,
		Nightly:       d.Nightly.toMoney(),
		Total:         d.Total.toMoney(),
		PaidAmount:    d.PaidAmount.toMoney(),
		Status:        domainbooking.Status(d.Status),
		PaymentStatus: domainbooking.PaymentStatus(d.PaymentStatus),
		TransactionID: d.TransactionID,
		ValidationID:  d.ValidationID,
		PaidAt:        optionalTime(d.PaidAt),
		Extra: domainbooking.ExtraPayment{
			Required:      d.Extra.Required,
			Amount:        d.Extra.Amount.toMoney(),
			Status:        domainbooking.ExtraPaymentStatus(d.Extra.Status),
			TransactionID: d.Extra.TransactionID,
			Claimed:       d.Extra.Claimed,
		},
		Modification: domainbooking.ModificationRequest{
			Status:      domainbooking.ModificationStatus(d.Modification.Status),
			Requested:   domainrange.DateRange{CheckIn: optionalTime(d.Modification.Range.CheckIn), CheckOut: optionalTime(d.Modification.Range.CheckOut)},
			RequestedBy: d.Modification.RequestedBy,
			RequestedAt: optionalTime(d.Modification.RequestedAt),
		},
		CheckInAt:        optionalTime(d.CheckInAt),
		CheckOutAt:       optionalTime(d.CheckOutAt),
		PayoutIssued:     d.PayoutIssued,
		ReferralRewarded: d.ReferralDone,
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
		Version:          d.Version,
	}
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func optionalMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func optionalTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
