package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "stayride/internal/domain/listings"
	domainrange "stayride/internal/domain/shared/daterange"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection("agg_listing")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrListingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := newListingDocument(l)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type listingDocument struct {
	ID          string          `bson:"_id"`
	HostID      string          `bson:"host_id"`
	Title       string          `bson:"title"`
	City        string          `bson:"city,omitempty"`
	NightlyRate moneyDocument   `bson:"nightly_rate"`
	MaxGuests   int             `bson:"max_guests"`
	Blocked     []rangeDocument `bson:"blocked,omitempty"`
	CreatedAt   int64           `bson:"created_at"`
	UpdatedAt   int64           `bson:"updated_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	doc := listingDocument{
		ID:          string(l.ID),
		HostID:      l.HostID,
		Title:       l.Title,
		City:        l.City,
		NightlyRate: newMoneyDocument(l.NightlyRate),
		MaxGuests:   l.MaxGuests,
		CreatedAt:   l.CreatedAt.UnixMilli(),
		UpdatedAt:   l.UpdatedAt.UnixMilli(),
	}
	for _, b := range l.Blocked {
		doc.Blocked = append(doc.Blocked, rangeDocument{CheckIn: b.CheckIn.UnixMilli(), CheckOut: b.CheckOut.UnixMilli()})
	}
	return doc
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	l := &domainlistings.Listing{
		ID:          domainlistings.ListingID(d.ID),
		HostID:      d.HostID,
		Title:       d.Title,
		City:        d.City,
		NightlyRate: d.NightlyRate.toMoney(),
		MaxGuests:   d.MaxGuests,
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
	}
	for _, b := range d.Blocked {
		l.Blocked = append(l.Blocked, domainrange.DateRange{CheckIn: timestampToTime(b.CheckIn), CheckOut: timestampToTime(b.CheckOut)})
	}
	return l
}
