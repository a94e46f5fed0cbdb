package models

import (
	"time"

	"github.com/google/uuid"
)

// Restaurant is a row of the shared restaurants catalog.
type Restaurant struct {
	Base
	Name         string     `json:"name" validate:"required,min=1,max=200"`
	Category     string     `json:"category" validate:"max=80"`
	Cuisine      string     `json:"cuisine" validate:"max=80"`
	IsTour       bool       `json:"is_tour"`
	PriceRange   int        `json:"price_range" validate:"min=0,max=4"`
	GoogleRating *float64   `json:"google_rating" validate:"omitempty,min=0,max=5"`
	Visited      bool       `json:"visited"`
	Locations    []Location `json:"locations" validate:"dive"`
	Reviews      []Review   `json:"reviews" validate:"dive"`
	ImageURL     string     `json:"image_url"`
	Website      string     `json:"website" validate:"omitempty,url"`
	Instagram    string     `json:"instagram"`
	Notes        string     `json:"notes"`
	CreatedBy    *uuid.UUID `json:"created_by"`
}

type Location struct {
	Label        string   `json:"label"`
	Address      string   `json:"address" validate:"max=300"`
	Neighborhood string   `json:"neighborhood"`
	Lat          *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng          *float64 `json:"lng" validate:"omitempty,longitude"`
}

func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lng != nil
}

type Review struct {
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    float64   `json:"rating" validate:"min=0,max=5"`
	Comment   string    `json:"comment" validate:"max=2000"`
	CreatedAt time.Time `json:"created_at"`
}

// OurRating is the mean of the couple's review ratings. ok is false when
// nobody reviewed the restaurant yet.
func (r *Restaurant) OurRating() (rating float64, ok bool) {
	if len(r.Reviews) == 0 {
		return 0, false
	}
	var sum float64
	for _, review := range r.Reviews {
		sum += review.Rating
	}
	return sum / float64(len(r.Reviews)), true
}

// UpsertReview replaces the review written by review.UserID, if any, and
// appends the new one. A user has at most one review per restaurant.
func (r *Restaurant) UpsertReview(review Review) {
	kept := make([]Review, 0, len(r.Reviews)+1)
	for _, existing := range r.Reviews {
		if existing.UserID != review.UserID {
			kept = append(kept, existing)
		}
	}
	r.Reviews = append(kept, review)
}

// RemoveReview drops the review written by userID and reports whether one existed.
func (r *Restaurant) RemoveReview(userID uuid.UUID) bool {
	kept := make([]Review, 0, len(r.Reviews))
	for _, existing := range r.Reviews {
		if existing.UserID != userID {
			kept = append(kept, existing)
		}
	}
	removed := len(kept) != len(r.Reviews)
	r.Reviews = kept
	return removed
}

// CoupleRestaurant holds per-couple state for a catalog restaurant.
type CoupleRestaurant struct {
	Base
	CoupleID     uuid.UUID `json:"couple_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	IsFavorite   bool      `json:"is_favorite"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CuratedList is an editorial list of catalog restaurants.
type CuratedList struct {
	Base
	Title         string      `json:"title" validate:"required,max=200"`
	Description   string      `json:"description"`
	RestaurantIDs []uuid.UUID `json:"restaurant_ids"`
	CreatedBy     *uuid.UUID  `json:"created_by"`
}

func (l *CuratedList) SetOwner(userID uuid.UUID) {
	if l.CreatedBy == nil {
		l.CreatedBy = &userID
	}
}

type RestaurantRequest struct {
	Name         string     `json:"name" validate:"required,min=1,max=200"`
	Category     string     `json:"category" validate:"max=80"`
	Cuisine      string     `json:"cuisine" validate:"max=80"`
	IsTour       bool       `json:"is_tour"`
	PriceRange   int        `json:"price_range" validate:"min=0,max=4"`
	GoogleRating *float64   `json:"google_rating" validate:"omitempty,min=0,max=5"`
	Visited      bool       `json:"visited"`
	Locations    []Location `json:"locations" validate:"dive"`
	ImageURL     string     `json:"image_url"`
	Website      string     `json:"website" validate:"omitempty,url"`
	Instagram    string     `json:"instagram"`
	Notes        string     `json:"notes"`
}

// Apply copies the editable fields onto r, leaving reviews and ownership alone.
func (req RestaurantRequest) Apply(r *Restaurant) {
	r.Name = req.Name
	r.Category = req.Category
	r.Cuisine = req.Cuisine
	r.IsTour = req.IsTour
	r.PriceRange = req.PriceRange
	r.GoogleRating = req.GoogleRating
	r.Visited = req.Visited
	r.Locations = req.Locations
	r.ImageURL = req.ImageURL
	r.Website = req.Website
	r.Instagram = req.Instagram
	r.Notes = req.Notes
}

type ReviewRequest struct {
	Rating  float64 `json:"rating" validate:"min=0,max=5"`
	Comment string  `json:"comment" validate:"max=2000"`
}

type FavoriteRequest struct {
	IsFavorite bool `json:"is_favorite"`
}
