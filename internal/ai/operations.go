package ai

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"organizer/internal/geo"
	"organizer/internal/models"
)

// Operation names, used in errors, logs and metrics.
const (
	OpExtractIngredients  = "extract_ingredients"
	OpImportRecipe        = "import_recipe"
	OpEstimateNutrition   = "estimate_nutrition"
	OpDiscoverRestaurants = "discover_restaurants"
	OpEnrichRestaurant    = "enrich_restaurant"
	OpGeocode             = "geocode"
	OpDiscoverRecipes     = "discover_recipes"
	OpSuggestDatePlan     = "suggest_date_plan"
)

// RestaurantSuggestion is a restaurant found by web search.
type RestaurantSuggestion struct {
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Cuisine      string   `json:"cuisine"`
	PriceRange   int      `json:"price_range"`
	GoogleRating *float64 `json:"google_rating"`
	Address      string   `json:"address"`
	Neighborhood string   `json:"neighborhood"`
	Website      string   `json:"website"`
	Instagram    string   `json:"instagram"`
	Description  string   `json:"description"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
}

// Restaurant converts the suggestion into a catalog row ready to insert.
func (s RestaurantSuggestion) Restaurant() models.Restaurant {
	r := models.Restaurant{
		Name:         s.Name,
		Category:     s.Category,
		Cuisine:      s.Cuisine,
		PriceRange:   clampPrice(s.PriceRange),
		GoogleRating: s.GoogleRating,
		Website:      s.Website,
		Instagram:    s.Instagram,
		Notes:        s.Description,
	}
	if s.Address != "" || s.Neighborhood != "" {
		r.Locations = []models.Location{{
			Address:      s.Address,
			Neighborhood: s.Neighborhood,
			Lat:          s.Lat,
			Lng:          s.Lng,
		}}
	}
	return r
}

func clampPrice(p int) int {
	if p < 0 || p > 4 {
		return 0
	}
	return p
}

func (c *Client) structuredConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	}
}

func (c *Client) searchConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}
}

func userText(text string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
}

// run generates and decodes the JSON answer into out.
func (c *Client) run(ctx context.Context, op string, contents []*genai.Content, config *genai.GenerateContentConfig, out any) error {
	text, err := c.generate(ctx, op, contents, config)
	if err != nil {
		return err
	}
	return decodeJSON(op, text, out)
}

// ExtractIngredients parses free text (a pasted list, a recipe, a message)
// into ingredients.
func (c *Client) ExtractIngredients(ctx context.Context, text string) ([]models.Ingredient, error) {
	var out struct {
		Ingredients []models.Ingredient `json:"ingredients"`
	}
	err := c.run(ctx, OpExtractIngredients, userText(ingredientsPrompt(text)), c.structuredConfig(ingredientListSchema), &out)
	if err != nil {
		return nil, err
	}
	return cleanIngredients(out.Ingredients), nil
}

// ImportRecipe structures a recipe from text, a photo, or both. image may be
// nil; mimeType describes it otherwise.
func (c *Client) ImportRecipe(ctx context.Context, text string, image []byte, mimeType string) (models.Recipe, error) {
	parts := []*genai.Part{genai.NewPartFromText(importRecipePrompt(text, len(image) > 0))}
	if len(image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image, mimeType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	var recipe models.Recipe
	if err := c.run(ctx, OpImportRecipe, contents, c.structuredConfig(recipeSchema), &recipe); err != nil {
		return models.Recipe{}, err
	}
	if strings.TrimSpace(recipe.Title) == "" {
		return models.Recipe{}, &Error{Op: OpImportRecipe, Message: "no recipe found in the input"}
	}
	recipe.Ingredients = cleanIngredients(recipe.Ingredients)
	return recipe, nil
}

func (c *Client) EstimateNutrition(ctx context.Context, recipe models.Recipe) (models.Nutrition, error) {
	var nutrition models.Nutrition
	err := c.run(ctx, OpEstimateNutrition, userText(nutritionPrompt(recipe)), c.structuredConfig(nutritionSchema), &nutrition)
	return nutrition, err
}

// DiscoverRestaurants searches the web for restaurants matching query,
// optionally within a neighborhood.
func (c *Client) DiscoverRestaurants(ctx context.Context, query, neighborhood string) ([]RestaurantSuggestion, error) {
	var suggestions []RestaurantSuggestion
	prompt := discoverRestaurantsPrompt(query, neighborhood, c.config.City)
	if err := c.run(ctx, OpDiscoverRestaurants, userText(prompt), c.searchConfig(), &suggestions); err != nil {
		return nil, err
	}
	kept := suggestions[:0]
	for _, s := range suggestions {
		if strings.TrimSpace(s.Name) != "" {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

// EnrichRestaurant looks up cuisine, price range, rating and links for a
// known restaurant.
func (c *Client) EnrichRestaurant(ctx context.Context, name, address string) (RestaurantSuggestion, error) {
	var suggestion RestaurantSuggestion
	prompt := enrichRestaurantPrompt(name, address, c.config.City)
	err := c.run(ctx, OpEnrichRestaurant, userText(prompt), c.searchConfig(), &suggestion)
	return suggestion, err
}

// Geocode implements geo.Geocoder using web search.
func (c *Client) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	var out struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := c.run(ctx, OpGeocode, userText(geocodePrompt(address, c.config.City)), c.searchConfig(), &out); err != nil {
		return geo.Coordinate{}, err
	}
	if out.Lat == nil || out.Lng == nil {
		return geo.Coordinate{}, &Error{Op: OpGeocode, Message: "address not found: " + address}
	}
	coord := geo.Coordinate{Lat: *out.Lat, Lng: *out.Lng}
	if coord.Lat < -90 || coord.Lat > 90 || coord.Lng < -180 || coord.Lng > 180 {
		return geo.Coordinate{}, &Error{Op: OpGeocode, Message: "coordinates out of range for " + address}
	}
	return coord, nil
}

// DiscoverRecipes returns recipe sketches found on the web.
func (c *Client) DiscoverRecipes(ctx context.Context, query string) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := c.run(ctx, OpDiscoverRecipes, userText(discoverRecipesPrompt(query)), c.searchConfig(), &recipes); err != nil {
		return nil, err
	}
	for i := range recipes {
		recipes[i].Ingredients = cleanIngredients(recipes[i].Ingredients)
	}
	return recipes, nil
}

// SuggestDatePlan drafts a date plan. The result is not stored.
func (c *Client) SuggestDatePlan(ctx context.Context, prompt, date string) (models.DatePlan, error) {
	var out struct {
		Title  string   `json:"title"`
		Stops  []string `json:"stops"`
		Budget float64  `json:"budget"`
		Notes  string   `json:"notes"`
	}
	if err := c.run(ctx, OpSuggestDatePlan, userText(datePlanPrompt(prompt, date, c.config.City)), c.searchConfig(), &out); err != nil {
		return models.DatePlan{}, err
	}
	budget := out.Budget
	if budget < 0 {
		budget = 0
	}
	return models.DatePlan{
		Title:  out.Title,
		Date:   date,
		Status: "idea",
		Stops:  out.Stops,
		Budget: budget,
		Notes:  out.Notes,
	}, nil
}

func cleanIngredients(in []models.Ingredient) []models.Ingredient {
	out := make([]models.Ingredient, 0, len(in))
	for _, ingredient := range in {
		ingredient.Name = strings.TrimSpace(ingredient.Name)
		if ingredient.Name == "" {
			continue
		}
		if ingredient.Quantity != nil && *ingredient.Quantity < 0 {
			ingredient.Quantity = nil
		}
		out = append(out, ingredient)
	}
	return out
}
