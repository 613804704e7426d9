// Package venue is the listing entity: a venue (facility) owning courts.
package venue

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/kailas-cloud/venuedex/internal/domain/geo"
)

// Field limits.
const (
	MaxNameLength        = 200
	MaxDescriptionLength = 4000
	MaxRating            = 5
)

var (
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	idRegex   = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
)

// Venue is the system-of-record row for a facility.
type Venue struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Address     string     `json:"address,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    *geo.Point `json:"location,omitempty"`
	Published   bool       `json:"published"`
	Price       float64    `json:"price"`
	Rating      float64    `json:"rating"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Courts      []Court    `json:"courts,omitempty"`
}

// Court is a bookable unit of a venue.
type Court struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Indoor   bool   `json:"indoor"`
	Active   bool   `json:"active"`
}

// Validate checks a venue before it is written.
func (v *Venue) Validate() error {
	if !idRegex.MatchString(v.ID) {
		return fmt.Errorf("venue id must be 1-64 alphanumeric, underscore or hyphen characters")
	}
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("venue name is required")
	}
	if len(v.Name) > MaxNameLength {
		return fmt.Errorf("venue name too long (max %d)", MaxNameLength)
	}
	if len(v.Description) > MaxDescriptionLength {
		return fmt.Errorf("venue description too long (max %d)", MaxDescriptionLength)
	}
	if v.Slug != "" && !slugRegex.MatchString(v.Slug) {
		return fmt.Errorf("invalid slug %q", v.Slug)
	}
	if v.Location != nil && !v.Location.Valid() {
		return fmt.Errorf("location out of range")
	}
	if v.Price < 0 {
		return fmt.Errorf("price must be >= 0")
	}
	if v.Rating < 0 || v.Rating > MaxRating {
		return fmt.Errorf("rating must be between 0 and %d", MaxRating)
	}
	seen := make(map[string]bool, len(v.Courts))
	for _, c := range v.Courts {
		if !idRegex.MatchString(c.ID) {
			return fmt.Errorf("invalid court id %q", c.ID)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate court id %q", c.ID)
		}
		seen[c.ID] = true
		if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Category) == "" {
			return fmt.Errorf("court %q requires name and category", c.ID)
		}
	}
	return nil
}

// Slugify derives a URL slug from a display name.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
