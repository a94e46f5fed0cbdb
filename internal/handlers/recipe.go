package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"organizer/internal/models"
	"organizer/internal/service"
)

// RecipeHandler serves the recipe book's extras. Plain CRUD is a
// ResourceHandler over the same service.
type RecipeHandler struct {
	profiles *service.Profiles
	recipes  *service.Recipes
}

func NewRecipeHandler(profiles *service.Profiles, recipes *service.Recipes) *RecipeHandler {
	return &RecipeHandler{profiles: profiles, recipes: recipes}
}

func (h *RecipeHandler) UploadImage(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
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

	recipe, err := h.recipes.UploadImage(c.Request.Context(), actor, id, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) EstimateNutrition(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.recipes.EstimateNutrition(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) ToList(c *gin.Context) {
	actor, ok := currentActor(c, h.profiles)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req models.RecipeToListRequest
	if !bindJSON(c, &req) {
		return
	}

	list, added, err := h.recipes.ToList(c.Request.Context(), actor, id, req.ListID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": list, "added": added})
}

// Import drafts a recipe. It takes either a JSON body with text, or a
// multipart form with an optional "text" field and an optional "image" file.
func (h *RecipeHandler) Import(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	var (
		text  string
		image []byte
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		text = c.PostForm("text")
		if err := validate.Var(text, "max=20000"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is too long"})
			return
		}
		if _, err := c.FormFile("image"); err == nil {
			data, ok := readImage(c)
			if !ok {
				return
			}
			image = data
		}
	} else {
		var req models.ImportRecipeRequest
		if !bindJSON(c, &req) {
			return
		}
		text = req.Text
	}

	draft, err := h.recipes.Import(c.Request.Context(), text, image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (h *RecipeHandler) Discover(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	var req models.DiscoverRequest
	if !bindJSON(c, &req) {
		return
	}

	recipes, err := h.recipes.Discover(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) Ingredients(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	var req models.IngredientsRequest
	if !bindJSON(c, &req) {
		return
	}

	ingredients, err := h.recipes.ExtractIngredients(c.Request.Context(), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ingredients": ingredients})
}
