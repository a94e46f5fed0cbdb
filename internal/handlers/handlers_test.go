package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organizer/internal/ai"
	"organizer/internal/auth"
	"organizer/internal/ranking"
	"organizer/internal/service"
	"organizer/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorBody_StatusByKind(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		remediation bool
	}{
		{"not found", store.NotFound("get", store.TableRecipes), http.StatusNotFound, false},
		{"conflict", &store.Error{Kind: store.KindConflict, Table: store.TableLists}, http.StatusConflict, false},
		{"row level security", &store.Error{Kind: store.KindRowLevelSecurity, Table: store.TableRestaurants}, http.StatusForbidden, true},
		{"bucket missing", &store.Error{Kind: store.KindBucketNotFound, Table: store.BucketRecipeImages}, http.StatusServiceUnavailable, true},
		{"invalid input", &store.Error{Kind: store.KindInvalidInput, Table: store.TableDrinks}, http.StatusBadRequest, false},
		{"unavailable", &store.Error{Kind: store.KindUnavailable}, http.StatusServiceUnavailable, false},
		{"unknown kind", &store.Error{Kind: store.KindUnknown}, http.StatusInternalServerError, false},
		{"wrapped", fmt.Errorf("load: %w", store.NotFound("get", store.TableLists)), http.StatusNotFound, false},
		{"no couple", service.ErrNoCouple, http.StatusConflict, false},
		{"couple full", service.ErrCoupleFull, http.StatusConflict, false},
		{"ai disabled", service.ErrAIDisabled, http.StatusServiceUnavailable, false},
		{"not an image", fmt.Errorf("%w: got text/plain", service.ErrNotAnImage), http.StatusUnsupportedMediaType, false},
		{"too large", service.ErrImageTooLarge, http.StatusRequestEntityTooLarge, false},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, false},
		{"email taken", auth.ErrEmailTaken, http.StatusConflict, false},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := errorBody(tt.err)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body["error"])
			_, has := body["remediation"]
			assert.Equal(t, tt.remediation, has)
		})
	}
}

func TestErrorBody_RemediationNamesTheTarget(t *testing.T) {
	_, body := errorBody(&store.Error{Kind: store.KindRowLevelSecurity, Table: store.TableRestaurants})
	assert.Contains(t, body["remediation"], "alter table public.restaurants enable row level security")

	_, body = errorBody(&store.Error{Kind: store.KindBucketNotFound, Table: store.BucketMemoryImages})
	assert.Contains(t, body["remediation"], `"memory-images"`)
}

func TestErrorBody_AIErrorPassesProviderText(t *testing.T) {
	err := fmt.Errorf("import: %w", &ai.Error{Op: "import_recipe", Message: "API key not valid. Please pass a valid API key."})
	status, body := errorBody(err)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "API key not valid. Please pass a valid API key.", body["error"])
}

func testContext(target string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}

func TestParseListOptions(t *testing.T) {
	c := testContext("/api/restaurants?category=bar&cuisine=japonesa&tour=true&visited=false&favorites=1" +
		"&price=1,2&price=4&q=sushi&neighborhood=Pinheiros&home=casa&radius=2.5&sort=distance")

	opts, err := parseListOptions(c)
	require.NoError(t, err)
	assert.Equal(t, "bar", opts.Category)
	assert.Equal(t, "japonesa", opts.Cuisine)
	require.NotNil(t, opts.Tour)
	assert.True(t, *opts.Tour)
	require.NotNil(t, opts.Visited)
	assert.False(t, *opts.Visited)
	assert.True(t, opts.FavoritesOnly)
	assert.Equal(t, []int{1, 2, 4}, opts.Prices)
	assert.Equal(t, "sushi", opts.Search)
	assert.Equal(t, "Pinheiros", opts.Neighborhood)
	assert.Equal(t, "casa", opts.Home)
	assert.InDelta(t, 2.5, opts.RadiusKm, 1e-9)
	assert.Equal(t, ranking.SortDistance, opts.Sort)
}

func TestParseListOptions_Defaults(t *testing.T) {
	opts, err := parseListOptions(testContext("/api/restaurants?search=pizza"))
	require.NoError(t, err)
	assert.Nil(t, opts.Tour)
	assert.Nil(t, opts.Visited)
	assert.False(t, opts.FavoritesOnly)
	assert.Empty(t, opts.Prices)
	assert.Equal(t, "pizza", opts.Search)
	assert.Equal(t, ranking.SortName, opts.Sort)
}

func TestParseListOptions_RejectsBadValues(t *testing.T) {
	for _, query := range []string{"price=5", "price=abc", "tour=maybe", "radius=-1", "radius=NaN", "radius=Inf", "radius=-Inf", "sort=random"} {
		t.Run(query, func(t *testing.T) {
			_, err := parseListOptions(testContext("/api/restaurants?" + query))
			assert.Error(t, err)
		})
	}
}
