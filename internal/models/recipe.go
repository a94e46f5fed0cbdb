package models

import "github.com/google/uuid"

type Recipe struct {
	CoupleBase
	Title       string       `json:"title" validate:"required,min=1,max=200"`
	Category    string       `json:"category" validate:"max=80"`
	Servings    int          `json:"servings" validate:"min=0,max=100"`
	PrepMinutes int          `json:"prep_minutes" validate:"min=0"`
	Ingredients []Ingredient `json:"ingredients" validate:"dive"`
	Steps       []string     `json:"steps"`
	Tags        []string     `json:"tags"`
	Nutrition   *Nutrition   `json:"nutrition"`
	ImageURL    string       `json:"image_url"`
	SourceURL   string       `json:"source_url" validate:"omitempty,url"`
	IsFavorite  bool         `json:"is_favorite"`
}

type Ingredient struct {
	Name     string   `json:"name" validate:"required"`
	Quantity *float64 `json:"quantity" validate:"omitempty,min=0"`
	Unit     string   `json:"unit"`
	Note     string   `json:"note"`
}

// Nutrition is per serving.
type Nutrition struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
	FiberG   float64 `json:"fiber_g"`
}

type Drink struct {
	CoupleBase
	Name         string       `json:"name" validate:"required,min=1,max=200"`
	Kind         string       `json:"kind" validate:"max=80"`
	BaseSpirit   string       `json:"base_spirit"`
	Ingredients  []Ingredient `json:"ingredients" validate:"dive"`
	Instructions string       `json:"instructions"`
	Rating       float64      `json:"rating" validate:"min=0,max=5"`
	ImageURL     string       `json:"image_url"`
}

type ImportRecipeRequest struct {
	Text string `json:"text" validate:"required,max=20000"`
}

type DiscoverRequest struct {
	Query        string `json:"query" validate:"required,max=300"`
	Neighborhood string `json:"neighborhood" validate:"max=120"`
}

type EnrichRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=300"`
}

type IngredientsRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

type RecipeToListRequest struct {
	ListID uuid.UUID `json:"list_id" validate:"required"`
}
