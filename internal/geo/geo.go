// Package geo holds the distance math and the couple's fixed reference
// coordinates used for proximity filtering.
package geo

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"organizer/internal/models"
)

const earthRadiusKm = 6371.0

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Home is a named fixed coordinate ("casa", "trabalho").
type Home struct {
	Name string `json:"name"`
	Coordinate
}

// HaversineKm is the great-circle distance between a and b.
func HaversineKm(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// MinDistanceKm returns the distance from origin to the closest location
// with coordinates. ok is false when no location has coordinates.
func MinDistanceKm(origin Coordinate, locations []models.Location) (km float64, ok bool) {
	for _, loc := range locations {
		if !loc.HasCoordinates() {
			continue
		}
		d := HaversineKm(origin, Coordinate{Lat: *loc.Lat, Lng: *loc.Lng})
		if !ok || d < km {
			km, ok = d, true
		}
	}
	return km, ok
}

// Homes resolves home names case-insensitively.
type Homes []Home

func (h Homes) Find(name string) (Home, error) {
	for _, home := range h {
		if strings.EqualFold(home.Name, name) {
			return home, nil
		}
	}
	return Home{}, fmt.Errorf("unknown home %q", name)
}

// Geocoder turns a street address into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinate, error)
}

// FillCoordinates geocodes every location that has an address but no
// coordinates, at most limit at a time. A failed lookup leaves the location
// untouched. It returns how many locations were filled.
func FillCoordinates(ctx context.Context, geocoder Geocoder, locations []models.Location, limit int, logger *zap.Logger) int {
	if limit <= 0 {
		limit = 1
	}
	filled := make([]bool, len(locations))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range locations {
		loc := &locations[i]
		if loc.HasCoordinates() || strings.TrimSpace(loc.Address) == "" {
			continue
		}
		g.Go(func() error {
			coord, err := geocoder.Geocode(ctx, loc.Address)
			if err != nil {
				logger.Warn("geocoding failed", zap.String("address", loc.Address), zap.Error(err))
				return nil
			}
			lat, lng := coord.Lat, coord.Lng
			loc.Lat, loc.Lng = &lat, &lng
			filled[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range filled {
		if ok {
			n++
		}
	}
	return n
}
