package service

import (
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"organizer/internal/models"
	"organizer/internal/ranking"
	"organizer/internal/store"
)

// RecipeAI is the enrichment the recipe book uses.
type RecipeAI interface {
	ImportRecipe(ctx context.Context, text string, image []byte, mimeType string) (models.Recipe, error)
	EstimateNutrition(ctx context.Context, recipe models.Recipe) (models.Nutrition, error)
	ExtractIngredients(ctx context.Context, text string) ([]models.Ingredient, error)
	DiscoverRecipes(ctx context.Context, query string) ([]models.Recipe, error)
}

type Recipes struct {
	*Resource[models.Recipe, *models.Recipe]
	lists *Lists
	blobs store.Blobs
	ai    RecipeAI
}

func NewRecipes(backend store.Backend, blobs store.Blobs, lists *Lists, enrich RecipeAI) *Recipes {
	return &Recipes{
		Resource: NewResource[models.Recipe](backend, store.TableRecipes, "created_at"),
		lists:    lists,
		blobs:    blobs,
		ai:       enrich,
	}
}

func (s *Recipes) UploadImage(ctx context.Context, actor Actor, id uuid.UUID, data []byte) (models.Recipe, error) {
	image, err := SniffImage(data)
	if err != nil {
		return models.Recipe{}, err
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return models.Recipe{}, err
	}
	url, err := s.blobs.Upload(ctx, store.BucketRecipeImages, objectPath(id, image.Extension), bytes.NewReader(image.Data), image.ContentType)
	if err != nil {
		return models.Recipe{}, err
	}
	return s.Patch(ctx, actor, id, map[string]any{"image_url": url})
}

// Import drafts a recipe from text and an optional photo. The draft is not
// stored; the client reviews it and creates it.
func (s *Recipes) Import(ctx context.Context, text string, image []byte) (models.Recipe, error) {
	if s.ai == nil {
		return models.Recipe{}, ErrAIDisabled
	}
	mimeType := ""
	if len(image) > 0 {
		sniffed, err := SniffImage(image)
		if err != nil {
			return models.Recipe{}, err
		}
		mimeType = sniffed.ContentType
	}
	if strings.TrimSpace(text) == "" && len(image) == 0 {
		return models.Recipe{}, &store.Error{Kind: store.KindInvalidInput, Op: "import", Table: store.TableRecipes, Message: "text or image is required"}
	}
	return s.ai.ImportRecipe(ctx, text, image, mimeType)
}

// EstimateNutrition asks the model for per-serving nutrition and stores it.
func (s *Recipes) EstimateNutrition(ctx context.Context, actor Actor, id uuid.UUID) (models.Recipe, error) {
	if s.ai == nil {
		return models.Recipe{}, ErrAIDisabled
	}
	recipe, err := s.Get(ctx, actor, id)
	if err != nil {
		return models.Recipe{}, err
	}
	nutrition, err := s.ai.EstimateNutrition(ctx, recipe)
	if err != nil {
		return models.Recipe{}, err
	}
	return s.Patch(ctx, actor, id, map[string]any{"nutrition": nutrition})
}

func (s *Recipes) ExtractIngredients(ctx context.Context, text string) ([]models.Ingredient, error) {
	if s.ai == nil {
		return nil, ErrAIDisabled
	}
	return s.ai.ExtractIngredients(ctx, text)
}

func (s *Recipes) Discover(ctx context.Context, query string) ([]models.Recipe, error) {
	if s.ai == nil {
		return nil, ErrAIDisabled
	}
	return s.ai.DiscoverRecipes(ctx, query)
}

// ToList appends the recipe's ingredients to a list, skipping ingredients
// already pending there. It returns the updated list and how many items
// were added.
func (s *Recipes) ToList(ctx context.Context, actor Actor, id, listID uuid.UUID) (models.List, int, error) {
	recipe, err := s.Get(ctx, actor, id)
	if err != nil {
		return models.List{}, 0, err
	}
	texts := make([]string, 0, len(recipe.Ingredients))
	for _, ingredient := range recipe.Ingredients {
		texts = append(texts, IngredientText(ingredient))
	}
	return s.lists.AddItems(ctx, actor, listID, texts, func(list models.List, text string) bool {
		return !hasPending(list, text)
	})
}

// IngredientText renders an ingredient as a list item, e.g. "2 xícara farinha".
func IngredientText(ingredient models.Ingredient) string {
	var parts []string
	if ingredient.Quantity != nil {
		parts = append(parts, strconv.FormatFloat(*ingredient.Quantity, 'f', -1, 64))
	}
	if ingredient.Unit != "" {
		parts = append(parts, ingredient.Unit)
	}
	parts = append(parts, ingredient.Name)
	return strings.Join(parts, " ")
}

func hasPending(list models.List, text string) bool {
	folded := ranking.Fold(text)
	for _, item := range list.Items {
		if !item.Done && ranking.Fold(item.Text) == folded {
			return true
		}
	}
	return false
}
