package service

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"organizer/internal/ai"
	"organizer/internal/collection"
	"organizer/internal/geo"
	"organizer/internal/models"
	"organizer/internal/ranking"
	"organizer/internal/store"
)

// RestaurantAI is the enrichment the restaurant catalog uses.
type RestaurantAI interface {
	DiscoverRestaurants(ctx context.Context, query, neighborhood string) ([]ai.RestaurantSuggestion, error)
	EnrichRestaurant(ctx context.Context, name, address string) (ai.RestaurantSuggestion, error)
}

// geocodeLimit bounds concurrent lookups per restaurant.
const geocodeLimit = 4

// ListOptions are ranking options plus the name of the home to measure
// distances from.
type ListOptions struct {
	ranking.Options
	Home string
}

// Restaurants manages the shared catalog and each couple's favorites. The
// favorites of a couple are cached in a collection that is updated
// optimistically on toggle and re-fetched after realtime changes.
type Restaurants struct {
	restaurants *store.Table[models.Restaurant]
	couples     *store.Table[models.CoupleRestaurant]
	blobs       store.Blobs
	ai          RestaurantAI
	geocoder    geo.Geocoder
	homes       geo.Homes
	radiusKm    float64
	logger      *zap.Logger

	mu        sync.Mutex
	favorites map[uuid.UUID]*collection.Collection[models.CoupleRestaurant]
}

type RestaurantsConfig struct {
	Homes           geo.Homes
	DefaultRadiusKm float64
}

// NewRestaurants wires the catalog. enrich and geocoder may be nil when AI
// is not configured.
func NewRestaurants(backend store.Backend, blobs store.Blobs, enrich RestaurantAI, geocoder geo.Geocoder, cfg RestaurantsConfig, logger *zap.Logger) *Restaurants {
	return &Restaurants{
		restaurants: store.NewTable[models.Restaurant](backend, store.TableRestaurants),
		couples:     store.NewTable[models.CoupleRestaurant](backend, store.TableCoupleRestaurants),
		blobs:       blobs,
		ai:          enrich,
		geocoder:    geocoder,
		homes:       cfg.Homes,
		radiusKm:    cfg.DefaultRadiusKm,
		logger:      logger,
		favorites:   make(map[uuid.UUID]*collection.Collection[models.CoupleRestaurant]),
	}
}

func (s *Restaurants) favoritesOf(coupleID uuid.UUID) *collection.Collection[models.CoupleRestaurant] {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.favorites[coupleID]
	if !ok {
		c = collection.New(func(ctx context.Context) ([]models.CoupleRestaurant, error) {
			return s.couples.List(ctx, store.Where("couple_id", coupleID))
		})
		s.favorites[coupleID] = c
	}
	return c
}

// OnChange invalidates a couple's favorites cache when its
// couple_restaurants rows change. It is registered as a realtime listener.
func (s *Restaurants) OnChange(event store.ChangeEvent) {
	if event.Table != store.TableCoupleRestaurants {
		return
	}
	raw, ok := event.Column("couple_id")
	if !ok {
		return
	}
	coupleID, err := uuid.Parse(raw)
	if err != nil {
		return
	}
	s.mu.Lock()
	c, ok := s.favorites[coupleID]
	s.mu.Unlock()
	if ok {
		c.Invalidate()
	}
}

// List ranks the catalog for the caller's couple.
func (s *Restaurants) List(ctx context.Context, actor Actor, opts ListOptions) ([]ranking.Ranked, error) {
	ranked := opts.Options
	if opts.Home != "" {
		home, err := s.homes.Find(opts.Home)
		if err != nil {
			return nil, &store.Error{Kind: store.KindInvalidInput, Op: "list", Table: store.TableRestaurants, Message: err.Error()}
		}
		origin := home.Coordinate
		ranked.Origin = &origin
		if ranked.RadiusKm == 0 {
			ranked.RadiusKm = s.radiusKm
		}
	}

	rows, err := s.restaurants.List(ctx, store.Query{})
	if err != nil {
		return nil, err
	}
	favorites := s.favoritesOf(actor.CoupleID)
	if err := favorites.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	isFavorite := make(map[uuid.UUID]bool)
	for _, f := range favorites.Snapshot() {
		isFavorite[f.RestaurantID] = f.IsFavorite
	}

	items := make([]ranking.Item, len(rows))
	for i, r := range rows {
		items[i] = ranking.Item{Restaurant: r, Favorite: isFavorite[r.ID]}
	}
	return ranking.Rank(items, ranked), nil
}

func (s *Restaurants) Get(ctx context.Context, id uuid.UUID) (models.Restaurant, error) {
	return s.restaurants.Get(ctx, id)
}

// Create adds a restaurant to the catalog, geocoding addresses that came
// without coordinates.
func (s *Restaurants) Create(ctx context.Context, actor Actor, req models.RestaurantRequest) (models.Restaurant, error) {
	if err := Validate(store.TableRestaurants, req); err != nil {
		return models.Restaurant{}, err
	}
	createdBy := actor.UserID
	r := models.Restaurant{CreatedBy: &createdBy, Reviews: []models.Review{}}
	req.Apply(&r)
	if r.Locations == nil {
		r.Locations = []models.Location{}
	}
	s.fillCoordinates(ctx, r.Locations)
	return s.restaurants.Insert(ctx, &r)
}

func (s *Restaurants) Update(ctx context.Context, id uuid.UUID, req models.RestaurantRequest) (models.Restaurant, error) {
	if err := Validate(store.TableRestaurants, req); err != nil {
		return models.Restaurant{}, err
	}
	r, err := s.restaurants.Get(ctx, id)
	if err != nil {
		return models.Restaurant{}, err
	}
	req.Apply(&r)
	if r.Locations == nil {
		r.Locations = []models.Location{}
	}
	s.fillCoordinates(ctx, r.Locations)
	return s.restaurants.Save(ctx, id, r)
}

func (s *Restaurants) Delete(ctx context.Context, id uuid.UUID) error {
	return s.restaurants.DeleteWhere(ctx, store.ByID(id))
}

// UpsertReview adds the caller's review, replacing their previous one.
func (s *Restaurants) UpsertReview(ctx context.Context, actor Actor, id uuid.UUID, req models.ReviewRequest) (models.Restaurant, error) {
	if err := Validate(store.TableRestaurants, req); err != nil {
		return models.Restaurant{}, err
	}
	r, err := s.restaurants.Get(ctx, id)
	if err != nil {
		return models.Restaurant{}, err
	}
	r.UpsertReview(models.Review{
		UserID:    actor.UserID,
		UserName:  actor.Name,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	})
	return s.saveReviews(ctx, r)
}

func (s *Restaurants) RemoveReview(ctx context.Context, actor Actor, id uuid.UUID) (models.Restaurant, error) {
	r, err := s.restaurants.Get(ctx, id)
	if err != nil {
		return models.Restaurant{}, err
	}
	if !r.RemoveReview(actor.UserID) {
		return models.Restaurant{}, store.NotFound("remove review", store.TableRestaurants)
	}
	return s.saveReviews(ctx, r)
}

func (s *Restaurants) saveReviews(ctx context.Context, r models.Restaurant) (models.Restaurant, error) {
	patch, err := store.ToPatch(map[string]any{"reviews": r.Reviews})
	if err != nil {
		return models.Restaurant{}, err
	}
	return s.restaurants.Update(ctx, r.ID, patch)
}

// ToggleFavorite sets the couple's favorite flag. The cached favorites
// reflect the change before the write and revert if it fails.
func (s *Restaurants) ToggleFavorite(ctx context.Context, actor Actor, restaurantID uuid.UUID, favorite bool) (models.CoupleRestaurant, error) {
	if _, err := s.restaurants.Get(ctx, restaurantID); err != nil {
		return models.CoupleRestaurant{}, err
	}
	favorites := s.favoritesOf(actor.CoupleID)
	if err := favorites.EnsureLoaded(ctx); err != nil {
		return models.CoupleRestaurant{}, err
	}

	row := models.CoupleRestaurant{
		CoupleID:     actor.CoupleID,
		RestaurantID: restaurantID,
		IsFavorite:   favorite,
		UpdatedAt:    time.Now().UTC(),
	}
	for _, existing := range favorites.Snapshot() {
		if existing.RestaurantID == restaurantID {
			row.Base = existing.Base
		}
	}

	var saved models.CoupleRestaurant
	err := favorites.Mutate(ctx,
		func(rows []models.CoupleRestaurant) []models.CoupleRestaurant {
			for i := range rows {
				if rows[i].RestaurantID == restaurantID {
					rows[i].IsFavorite = favorite
					rows[i].UpdatedAt = row.UpdatedAt
					return rows
				}
			}
			return append(rows, row)
		},
		func(ctx context.Context) error {
			var err error
			saved, err = s.couples.Upsert(ctx, &row, "couple_id,restaurant_id")
			return err
		})
	return saved, err
}

// IsFavorite reads the cached favorite flag.
func (s *Restaurants) IsFavorite(ctx context.Context, actor Actor, restaurantID uuid.UUID) (bool, error) {
	favorites := s.favoritesOf(actor.CoupleID)
	if err := favorites.EnsureLoaded(ctx); err != nil {
		return false, err
	}
	for _, f := range favorites.Snapshot() {
		if f.RestaurantID == restaurantID {
			return f.IsFavorite, nil
		}
	}
	return false, nil
}

// UploadImage stores a photo in the restaurant-images bucket and points
// image_url at it.
func (s *Restaurants) UploadImage(ctx context.Context, id uuid.UUID, data []byte) (models.Restaurant, error) {
	image, err := SniffImage(data)
	if err != nil {
		return models.Restaurant{}, err
	}
	if _, err := s.restaurants.Get(ctx, id); err != nil {
		return models.Restaurant{}, err
	}
	url, err := s.blobs.Upload(ctx, store.BucketRestaurantImages, objectPath(id, image.Extension), bytes.NewReader(image.Data), image.ContentType)
	if err != nil {
		return models.Restaurant{}, err
	}
	return s.restaurants.Update(ctx, id, map[string]any{"image_url": url})
}

func (s *Restaurants) Discover(ctx context.Context, query, neighborhood string) ([]ai.RestaurantSuggestion, error) {
	if s.ai == nil {
		return nil, ErrAIDisabled
	}
	return s.ai.DiscoverRestaurants(ctx, query, neighborhood)
}

func (s *Restaurants) Enrich(ctx context.Context, name, address string) (ai.RestaurantSuggestion, error) {
	if s.ai == nil {
		return ai.RestaurantSuggestion{}, ErrAIDisabled
	}
	return s.ai.EnrichRestaurant(ctx, name, address)
}

// Geocode fills missing coordinates of a stored restaurant and reports how
// many locations were resolved.
func (s *Restaurants) Geocode(ctx context.Context, id uuid.UUID) (models.Restaurant, int, error) {
	if s.geocoder == nil {
		return models.Restaurant{}, 0, ErrAIDisabled
	}
	r, err := s.restaurants.Get(ctx, id)
	if err != nil {
		return models.Restaurant{}, 0, err
	}
	filled := geo.FillCoordinates(ctx, s.geocoder, r.Locations, geocodeLimit, s.logger)
	if filled == 0 {
		return r, 0, nil
	}
	patch, err := store.ToPatch(map[string]any{"locations": r.Locations})
	if err != nil {
		return models.Restaurant{}, 0, err
	}
	updated, err := s.restaurants.Update(ctx, id, patch)
	return updated, filled, err
}

func (s *Restaurants) fillCoordinates(ctx context.Context, locations []models.Location) {
	if s.geocoder == nil {
		return
	}
	geo.FillCoordinates(ctx, s.geocoder, locations, geocodeLimit, s.logger)
}
