package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaintrip "stayride/internal/domain/trip"
)

type TripRepository struct {
	col *mongo.Collection
}

func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{col: db.Collection("agg_trip")}
}

func (r *TripRepository) ByID(ctx context.Context, id domaintrip.TripID) (*domaintrip.Trip, error) {
	var doc tripDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaintrip.ErrTripNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save uses the same version filter as bookings: seat math must never race.
func (r *TripRepository) Save(ctx context.Context, t *domaintrip.Trip) error {
	doc := newTripDocument(t)
	filter := bson.M{"_id": doc.ID, "version": t.Version}
	doc.Version = t.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	t.Version = doc.Version
	return nil
}

type passengerDocument struct {
	UserID    string `bson:"user_id"`
	BookingID string `bson:"booking_id"`
	Seats     int    `bson:"seats"`
	Status    string `bson:"status"`
	JoinedAt  int64  `bson:"joined_at"`
}

type tripDocument struct {
	ID          string              `bson:"_id"`
	DriverID    string              `bson:"driver_id"`
	Origin      string              `bson:"origin"`
	Destination string              `bson:"destination"`
	DepartsAt   int64               `bson:"departs_at"`
	TotalSeats  int                 `bson:"total_seats"`
	FarePerSeat moneyDocument       `bson:"fare_per_seat"`
	Passengers  []passengerDocument `bson:"passengers,omitempty"`
	CreatedAt   int64               `bson:"created_at"`
	UpdatedAt   int64               `bson:"updated_at"`
	Version     int64               `bson:"version"`
}

func newTripDocument(t *domaintrip.Trip) tripDocument {
	doc := tripDocument{
		ID:          string(t.ID),
		DriverID:    t.DriverID,
		Origin:      t.Origin,
		Destination: t.Destination,
		DepartsAt:   t.DepartsAt.UnixMilli(),
		TotalSeats:  t.TotalSeats,
		FarePerSeat: newMoneyDocument(t.FarePerSeat),
		CreatedAt:   t.CreatedAt.UnixMilli(),
		UpdatedAt:   t.UpdatedAt.UnixMilli(),
		Version:     t.Version,
	}
	for _, p := range t.Passengers {
		doc.Passengers = append(doc.Passengers, passengerDocument{
			UserID:    p.UserID,
			BookingID: p.BookingID,
			Seats:     p.Seats,
			Status:    string(p.Status),
			JoinedAt:  p.JoinedAt.UnixMilli(),
		})
	}
	return doc
}

func (d tripDocument) toAggregate() *domaintrip.Trip {
	t := &domaintrip.Trip{
		ID:          domaintrip.TripID(d.ID),
		DriverID:    d.DriverID,
		Origin:      d.Origin,
		Destination: d.Destination,
		DepartsAt:   timestampToTime(d.DepartsAt),
		TotalSeats:  d.TotalSeats,
		FarePerSeat: d.FarePerSeat.toMoney(),
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
		Version:     d.Version,
	}
	for _, p := range d.Passengers {
		t.Passengers = append(t.Passengers, domaintrip.Passenger{
			UserID:    p.UserID,
			BookingID: p.BookingID,
			Seats:     p.Seats,
			Status:    domaintrip.PassengerStatus(p.Status),
			JoinedAt:  timestampToTime(p.JoinedAt),
		})
	}
	return t
}
