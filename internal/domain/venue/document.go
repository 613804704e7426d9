package venue

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/domain/geo"
)

// Document is the denormalized projection of a venue stored in the search
// index. It is regenerable from the relational row at any time.
type Document struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	Address     string         `json:"address"`
	Description string         `json:"description"`
	Location    geo.Point      `json:"location"`
	Geo         string         `json:"geo"`
	Published   bool           `json:"published"`
	OwnerID     string         `json:"ownerId"`
	Price       float64        `json:"price"`
	Rating      float64        `json:"rating"`
	CreatedAt   int64          `json:"createdAt"`
	UpdatedAt   int64          `json:"updatedAt"`
	Courts      []CourtSummary `json:"courts"`
}

// CourtSummary is a court as embedded in the venue document.
type CourtSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Indoor   bool   `json:"indoor"`
	Active   bool   `json:"active"`
}

// ToDocument maps a venue row (with its courts loaded) to its index document.
// A venue missing a required field fails with domain.ErrDocumentInvalid.
func ToDocument(v Venue) (Document, error) {
	switch {
	case v.ID == "":
		return Document{}, fmt.Errorf("%w: id is required", domain.ErrDocumentInvalid)
	case strings.TrimSpace(v.Name) == "":
		return Document{}, fmt.Errorf("%w: name is required", domain.ErrDocumentInvalid)
	case v.Location == nil:
		return Document{}, fmt.Errorf("%w: location is required", domain.ErrDocumentInvalid)
	case !v.Location.Valid():
		return Document{}, fmt.Errorf("%w: location out of range", domain.ErrDocumentInvalid)
	}

	slug := v.Slug
	if slug == "" {
		slug = Slugify(v.Name)
	}

	courts := make([]CourtSummary, 0, len(v.Courts))
	for _, c := range v.Courts {
		courts = append(courts, CourtSummary(c))
	}
	slices.SortFunc(courts, func(a, b CourtSummary) int { return strings.Compare(a.ID, b.ID) })

	return Document{
		ID:          v.ID,
		Name:        v.Name,
		Slug:        slug,
		Address:     v.Address,
		Description: v.Description,
		Location:    *v.Location,
		Geo:         GeoValue(*v.Location),
		Published:   v.Published,
		OwnerID:     v.OwnerID,
		Price:       v.Price,
		Rating:      v.Rating,
		CreatedAt:   v.CreatedAt.UnixMilli(),
		UpdatedAt:   v.UpdatedAt.UnixMilli(),
		Courts:      courts,
	}, nil
}

// GeoValue renders a point as the "lon,lat" string a GEO index field expects.
func GeoValue(p geo.Point) string {
	return strconv.FormatFloat(p.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lat, 'f', -1, 64)
}

// Marshal encodes the document. Equal documents encode to identical bytes.
func (d Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalDocument decodes a stored document.
func UnmarshalDocument(b []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return Document{}, fmt.Errorf("decode venue document: %w", err)
	}
	if d.Courts == nil {
		d.Courts = []CourtSummary{}
	}
	return d, nil
}

// WithoutRelations returns a copy with the court list emptied.
func (d Document) WithoutRelations() Document {
	d.Courts = []CourtSummary{}
	return d
}

// Position returns the venue location.
func (d Document) Position() geo.Point { return d.Location }

