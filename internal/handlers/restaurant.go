package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"organizer/internal/models"
	"organizer/internal/ranking"
	"organizer/internal/service"
)

type RestaurantHandler struct {
	profiles    *service.Profiles
	restaurants *service.Restaurants
}

func NewRestaurantHandler(profiles *service.Profiles, restaurants *service.Restaurants) *RestaurantHandler {
	return &RestaurantHandler{profiles: profiles, restaurants: restaurants}
}

// parseListOptions reads the catalog filters from the query string.
// price may repeat or be comma separated; boolean filters accept anything
// strconv.ParseBool does.
func parseListOptions(c *gin.Context) (service.ListOptions, error) {
	opts := service.ListOptions{
		Options: ranking.Options{
			Category:     c.Query("category"),
			Cuisine:      c.Query("cuisine"),
			Search:       c.Query("q"),
			Neighborhood: c.Query("neighborhood"),
		},
		Home: c.Query("home"),
	}
	if opts.Search == "" {
		opts.Search = c.Query("search")
	}

	var err error
	if opts.Tour, err = optionalBool(c, "tour"); err != nil {
		return opts, err
	}
	if opts.Visited, err = optionalBool(c, "visited"); err != nil {
		return opts, err
	}
	favorites, err := optionalBool(c, "favorites")
	if err != nil {
		return opts, err
	}
	opts.FavoritesOnly = favorites != nil && *favorites

	for _, raw := range c.QueryArray("price") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			price, err := strconv.Atoi(part)
			if err != nil || price < 1 || price > 4 {
				return opts, &queryError{param: "price", value: part}
			}
			opts.Prices = append(opts.Prices, price)
		}
	}

	if raw := c.Query("radius"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil || radius < 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
			return opts, &queryError{param: "radius", value: raw}
		}
		opts.RadiusKm = radius
	}

	if opts.Sort, err = ranking.ParseSortKey(c.Query("sort")); err != nil {
		return opts, err
	}
	return opts, nil
}

type queryError struct {
	param string
	value string
}

func (e *queryError) Error() string { return "invalid " + e.param + " " + strconv.Quote(e.value) }

func optionalBool(c *gin.Context, name string) (*bool, error) {
	raw, present := c.GetQuery(name)
	if !present || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &queryError{param: name, value: raw}
	}
	return &v, nil
}

func (h *RestaurantHandler) List(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}

	opts, err := parseListOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ranked, err := h.restaurants.List(c.Request.Context(), actor, opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurants": ranked, "count": len(ranked)})
}

func (h *RestaurantHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	restaurant, err := h.restaurants.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	favorite, err := h.restaurants.IsFavorite(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	ranked := ranking.Rank([]ranking.Item{{Restaurant: restaurant, Favorite: favorite}}, ranking.Options{})
	c.JSON(http.StatusOK, ranked[0])
}

func (h *RestaurantHandler) Create(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	var req models.RestaurantRequest
	if !bindJSON(c, &req) {
		return
	}

	restaurant, err := h.restaurants.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, restaurant)
}

func (h *RestaurantHandler) Update(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.RestaurantRequest
	if !bindJSON(c, &req) {
		return
	}

	restaurant, err := h.restaurants.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *RestaurantHandler) Delete(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.restaurants.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant deleted successfully"})
}

func (h *RestaurantHandler) UpsertReview(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	restaurant, err := h.restaurants.UpsertReview(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *RestaurantHandler) RemoveReview(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	restaurant, err := h.restaurants.RemoveReview(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *RestaurantHandler) ToggleFavorite(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.FavoriteRequest
	if !bindJSON(c, &req) {
		return
	}

	row, err := h.restaurants.ToggleFavorite(c.Request.Context(), actor, id, req.IsFavorite)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *RestaurantHandler) UploadImage(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	data, ok := readImage(c)
	if !ok {
		return
	}

	restaurant, err := h.restaurants.UploadImage(c.Request.Context(), id, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *RestaurantHandler) Geocode(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	restaurant, filled, err := h.restaurants.Geocode(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant, "geocoded": filled})
}

func (h *RestaurantHandler) Discover(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	var req models.DiscoverRequest
	if !bindJSON(c, &req) {
		return
	}

	suggestions, err := h.restaurants.Discover(c.Request.Context(), req.Query, req.Neighborhood)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func (h *RestaurantHandler) Enrich(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	var req models.EnrichRequest
	if !bindJSON(c, &req) {
		return
	}

	suggestion, err := h.restaurants.Enrich(c.Request.Context(), req.Name, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, suggestion)
}
