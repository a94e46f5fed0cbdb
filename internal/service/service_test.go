package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"organizer/internal/ai"
	"organizer/internal/geo"
	"organizer/internal/models"
	"organizer/internal/ranking"
	"organizer/internal/store"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fixture struct {
	backend  *store.MemoryBackend
	blobs    *store.MemoryBlobs
	profiles *Profiles
	actor    Actor
	partner  Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := store.NewMemoryBackend()
	profiles := NewProfiles(backend)
	ctx := context.Background()

	ana, bia := uuid.New(), uuid.New()
	coupleID, err := profiles.Invite(ctx, ana)
	require.NoError(t, err)
	_, err = profiles.Join(ctx, bia, coupleID)
	require.NoError(t, err)

	name := "Ana"
	_, err = profiles.Update(ctx, ana, models.UpdateProfileRequest{DisplayName: &name})
	require.NoError(t, err)
	actor, err := profiles.Actor(ctx, ana)
	require.NoError(t, err)
	partner, err := profiles.Actor(ctx, bia)
	require.NoError(t, err)

	return &fixture{
		backend:  backend,
		blobs:    store.NewMemoryBlobs("https://cdn.test", store.BucketRecipeImages, store.BucketMemoryImages, store.BucketRestaurantImages),
		profiles: profiles,
		actor:    actor,
		partner:  partner,
	}
}

func TestProfiles_CoupleLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, "Ana", f.actor.Name)
	assert.Equal(t, f.actor.CoupleID, f.partner.CoupleID)

	stranger := uuid.New()
	_, err := f.profiles.Actor(ctx, stranger)
	assert.ErrorIs(t, err, ErrNoCouple)

	_, err = f.profiles.Join(ctx, stranger, f.actor.CoupleID)
	assert.ErrorIs(t, err, ErrCoupleFull)

	_, err = f.profiles.Join(ctx, stranger, uuid.New())
	assert.True(t, store.IsNotFound(err))

	again, err := f.profiles.Invite(ctx, f.actor.UserID)
	require.NoError(t, err)
	assert.Equal(t, f.actor.CoupleID, again)
}

func TestResource_ScopesToCouple(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	drinks := NewResource[models.Drink](f.backend, store.TableDrinks, "created_at")

	forged := uuid.New()
	created, err := drinks.Create(ctx, f.actor, models.Drink{
		CoupleBase: models.CoupleBase{Base: models.Base{ID: forged}, CoupleID: uuid.New()},
		Name:       "Caipirinha",
		Rating:     4.5,
	})
	require.NoError(t, err)
	assert.NotEqual(t, forged, created.ID)
	assert.Equal(t, f.actor.CoupleID, created.CoupleID)
	assert.False(t, created.CreatedAt.IsZero())

	other := Actor{UserID: uuid.New(), CoupleID: uuid.New()}
	_, err = drinks.Get(ctx, other, created.ID)
	assert.True(t, store.IsNotFound(err))
	rows, err := drinks.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.True(t, store.IsNotFound(drinks.Delete(ctx, other, created.ID)))

	rows, err = drinks.List(ctx, f.partner)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	replaced, err := drinks.Replace(ctx, f.partner, created.ID, models.Drink{Name: "Caipiroska", Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, created.ID, replaced.ID)
	assert.Equal(t, "Caipiroska", replaced.Name)
	assert.WithinDuration(t, created.CreatedAt, replaced.CreatedAt, time.Second)

	_, err = drinks.Create(ctx, f.actor, models.Drink{Name: "", Rating: 9})
	assert.Equal(t, store.KindInvalidInput, store.KindOf(err))

	require.NoError(t, drinks.Delete(ctx, f.actor, created.ID))
}

func TestResource_OwnedAndGlobalRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	moods := NewResource[models.MoodEntry](f.backend, store.TableMoodEntries, "day")
	mood, err := moods.Create(ctx, f.actor, models.MoodEntry{Day: "2026-10-19", Mood: 4})
	require.NoError(t, err)
	assert.Equal(t, f.actor.UserID, mood.UserID)

	curated := NewResource[models.CuratedList](f.backend, store.TableCuratedLists, "created_at")
	list, err := curated.Create(ctx, f.actor, models.CuratedList{Title: "Melhores pizzas"})
	require.NoError(t, err)
	require.NotNil(t, list.CreatedBy)
	assert.Equal(t, f.actor.UserID, *list.CreatedBy)

	rows, err := curated.List(ctx, Actor{UserID: uuid.New(), CoupleID: uuid.New()})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

type stubGeocoder struct {
	coord geo.Coordinate
	err   error
	calls int
}

func (g *stubGeocoder) Geocode(context.Context, string) (geo.Coordinate, error) {
	g.calls++
	return g.coord, g.err
}

type stubAI struct {
	suggestions []ai.RestaurantSuggestion
	nutrition   models.Nutrition
	err         error
}

func (s *stubAI) DiscoverRestaurants(context.Context, string, string) ([]ai.RestaurantSuggestion, error) {
	return s.suggestions, s.err
}

func (s *stubAI) EnrichRestaurant(_ context.Context, name, _ string) (ai.RestaurantSuggestion, error) {
	return ai.RestaurantSuggestion{Name: name, Cuisine: "italiana"}, s.err
}

func (s *stubAI) ImportRecipe(_ context.Context, text string, _ []byte, _ string) (models.Recipe, error) {
	return models.Recipe{Title: text}, s.err
}

func (s *stubAI) EstimateNutrition(context.Context, models.Recipe) (models.Nutrition, error) {
	return s.nutrition, s.err
}

func (s *stubAI) ExtractIngredients(context.Context, string) ([]models.Ingredient, error) {
	return []models.Ingredient{{Name: "ovo"}}, s.err
}

func (s *stubAI) DiscoverRecipes(context.Context, string) ([]models.Recipe, error) {
	return []models.Recipe{{Title: "Feijoada"}}, s.err
}

func (s *stubAI) SuggestDatePlan(_ context.Context, prompt, date string) (models.DatePlan, error) {
	return models.DatePlan{Title: prompt, Date: date, Status: "idea"}, s.err
}

var homes = geo.Homes{{Name: "casa", Coordinate: geo.Coordinate{Lat: -23.5614, Lng: -46.6559}}}

func newRestaurants(f *fixture, backend store.Backend, geocoder geo.Geocoder, enrich RestaurantAI) *Restaurants {
	return NewRestaurants(backend, f.blobs, enrich, geocoder, RestaurantsConfig{Homes: homes, DefaultRadiusKm: 3}, zap.NewNop())
}

func TestRestaurants_CreateGeocodesMissingCoordinates(t *testing.T) {
	f := newFixture(t)
	geocoder := &stubGeocoder{coord: geo.Coordinate{Lat: -23.56, Lng: -46.65}}
	s := newRestaurants(f, f.backend, geocoder, nil)

	lat, lng := -23.5, -46.6
	r, err := s.Create(context.Background(), f.actor, models.RestaurantRequest{
		Name: "Bar do Zé",
		Locations: []models.Location{
			{Address: "Rua A, 1"},
			{Address: "Rua B, 2", Lat: &lat, Lng: &lng},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, geocoder.calls)
	require.True(t, r.Locations[0].HasCoordinates())
	assert.Equal(t, -23.56, *r.Locations[0].Lat)
	assert.Equal(t, f.actor.UserID, *r.CreatedBy)
}

func TestRestaurants_ListRanksWithFavoritesAndDistance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newRestaurants(f, f.backend, nil, nil)

	near, far := -23.5620, -23.70
	lng := -46.6560
	a, err := s.Create(ctx, f.actor, models.RestaurantRequest{Name: "Zebra", Locations: []models.Location{{Lat: &near, Lng: &lng}}})
	require.NoError(t, err)
	_, err = s.Create(ctx, f.actor, models.RestaurantRequest{Name: "Ávila", Locations: []models.Location{{Lat: &far, Lng: &lng}}})
	require.NoError(t, err)
	_, err = s.Create(ctx, f.actor, models.RestaurantRequest{Name: "azeite"})
	require.NoError(t, err)

	rows, err := s.List(ctx, f.actor, ListOptions{})
	require.NoError(t, err)
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"Ávila", "azeite", "Zebra"}, names)

	_, err = s.ToggleFavorite(ctx, f.actor, a.ID, true)
	require.NoError(t, err)

	rows, err = s.List(ctx, f.partner, ListOptions{Home: "casa", Options: ranking.Options{Sort: ranking.SortDistance}})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Zebra", rows[0].Name)
	assert.True(t, rows[0].Favorite)
	require.NotNil(t, rows[0].DistanceKm)

	_, err = s.List(ctx, f.actor, ListOptions{Home: "praia"})
	assert.Equal(t, store.KindInvalidInput, store.KindOf(err))
}

// hookBackend runs onUpsert before delegating upserts.
type hookBackend struct {
	store.Backend
	onUpsert func()
}

func (h *hookBackend) Upsert(ctx context.Context, table string, row any, onConflict string) ([]byte, error) {
	if h.onUpsert != nil {
		h.onUpsert()
	}
	return h.Backend.Upsert(ctx, table, row, onConflict)
}

func TestRestaurants_ToggleFavoriteIsOptimistic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hook := &hookBackend{Backend: f.backend}
	s := newRestaurants(f, hook, nil, nil)

	r, err := s.Create(ctx, f.actor, models.RestaurantRequest{Name: "Bar do Zé"})
	require.NoError(t, err)

	var seenBeforeWrite bool
	hook.onUpsert = func() {
		seenBeforeWrite, _ = s.IsFavorite(ctx, f.actor, r.ID)
	}
	saved, err := s.ToggleFavorite(ctx, f.actor, r.ID, true)
	require.NoError(t, err)
	assert.True(t, seenBeforeWrite)
	assert.True(t, saved.IsFavorite)

	f.backend.FailNextWrite(errors.New("(42501) new row violates row-level security policy"))
	hook.onUpsert = func() {
		seenBeforeWrite, _ = s.IsFavorite(ctx, f.actor, r.ID)
	}
	_, err = s.ToggleFavorite(ctx, f.actor, r.ID, false)
	assert.Equal(t, store.KindRowLevelSecurity, store.KindOf(err))
	assert.False(t, seenBeforeWrite)

	favorite, err := s.IsFavorite(ctx, f.actor, r.ID)
	require.NoError(t, err)
	assert.True(t, favorite, "failed write reverts to the server state")

	rows, err := store.NewTable[models.CoupleRestaurant](f.backend, store.TableCoupleRestaurants).List(ctx, store.Query{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRestaurants_RealtimeChangeInvalidatesFavorites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newRestaurants(f, f.backend, nil, nil)
	notifying := store.NewNotifying(f.backend, store.PublisherFunc(s.OnChange), zap.NewNop())

	r, err := s.Create(ctx, f.actor, models.RestaurantRequest{Name: "Bar do Zé"})
	require.NoError(t, err)
	favorite, err := s.IsFavorite(ctx, f.actor, r.ID)
	require.NoError(t, err)
	require.False(t, favorite)

	// another client writes directly
	row := models.CoupleRestaurant{CoupleID: f.actor.CoupleID, RestaurantID: r.ID, IsFavorite: true}
	_, err = store.NewTable[models.CoupleRestaurant](notifying, store.TableCoupleRestaurants).Insert(ctx, &row)
	require.NoError(t, err)

	favorite, err = s.IsFavorite(ctx, f.actor, r.ID)
	require.NoError(t, err)
	assert.True(t, favorite)
}

func TestRestaurants_Reviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newRestaurants(f, f.backend, nil, nil)
	r, err := s.Create(ctx, f.actor, models.RestaurantRequest{Name: "Bar do Zé"})
	require.NoError(t, err)

	_, err = s.UpsertReview(ctx, f.actor, r.ID, models.ReviewRequest{Rating: 3})
	require.NoError(t, err)
	_, err = s.UpsertReview(ctx, f.partner, r.ID, models.ReviewRequest{Rating: 5})
	require.NoError(t, err)
	updated, err := s.UpsertReview(ctx, f.actor, r.ID, models.ReviewRequest{Rating: 4, Comment: "melhorou"})
	require.NoError(t, err)

	require.Len(t, updated.Reviews, 2)
	rating, ok := updated.OurRating()
	require.True(t, ok)
	assert.Equal(t, 4.5, rating)
	assert.Equal(t, "Ana", updated.Reviews[1].UserName)

	updated, err = s.RemoveReview(ctx, f.partner, r.ID)
	require.NoError(t, err)
	assert.Len(t, updated.Reviews, 1)
	_, err = s.RemoveReview(ctx, f.partner, r.ID)
	assert.True(t, store.IsNotFound(err))

	_, err = s.UpsertReview(ctx, f.actor, r.ID, models.ReviewRequest{Rating: 6})
	assert.Equal(t, store.KindInvalidInput, store.KindOf(err))
}

func TestRestaurants_UploadImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := newRestaurants(f, f.backend, nil, nil)
	r, err := s.Create(ctx, f.actor, models.RestaurantRequest{Name: "Bar do Zé"})
	require.NoError(t, err)

	_, err = s.UploadImage(ctx, r.ID, []byte("plain text"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	updated, err := s.UploadImage(ctx, r.ID, pngHeader)
	require.NoError(t, err)
	assert.Contains(t, updated.ImageURL, "https://cdn.test/restaurant-images/"+r.ID.String()+"/")
	assert.Contains(t, updated.ImageURL, ".png")

	missing := store.NewMemoryBlobs("https://cdn.test")
	s.blobs = missing
	_, err = s.UploadImage(ctx, r.ID, pngHeader)
	assert.Equal(t, store.KindBucketNotFound, store.KindOf(err))
}

func TestRestaurants_AIAndGeocode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	disabled := newRestaurants(f, f.backend, nil, nil)
	_, err := disabled.Discover(ctx, "pizza", "")
	assert.ErrorIs(t, err, ErrAIDisabled)

	geocoder := &stubGeocoder{err: errors.New("not found")}
	s := newRestaurants(f, f.backend, geocoder, &stubAI{suggestions: []ai.RestaurantSuggestion{{Name: "Bráz"}}})
	suggestions, err := s.Discover(ctx, "pizza", "Moema")
	require.NoError(t, err)
	assert.Equal(t, "Bráz", suggestions[0].Name)

	enriched, err := s.Enrich(ctx, "Bráz", "")
	require.NoError(t, err)
	assert.Equal(t, "italiana", enriched.Cuisine)

	r, err := s.Create(ctx, f.actor, models.RestaurantRequest{Name: "Bráz", Locations: []models.Location{{Address: "Rua Graúna, 125"}}})
	require.NoError(t, err)
	assert.False(t, r.Locations[0].HasCoordinates())

	geocoder.err = nil
	geocoder.coord = geo.Coordinate{Lat: -23.6, Lng: -46.66}
	updated, filled, err := s.Geocode(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, filled)
	assert.True(t, updated.Locations[0].HasCoordinates())
}

func TestLists_ItemOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := NewLists(f.backend)

	list, err := lists.Create(ctx, f.actor, models.CreateListRequest{Name: "Mercado", Kind: "compras"})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	list, err = lists.AddItem(ctx, f.actor, list.ID, models.CreateItemRequest{Text: "Leite"})
	require.NoError(t, err)
	list, err = lists.AddItem(ctx, f.partner, list.ID, models.CreateItemRequest{Text: "Pão"})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, f.partner.UserID, *list.Items[1].AddedBy)

	done := true
	list, err = lists.UpdateItem(ctx, f.actor, list.ID, list.Items[0].ID, models.UpdateItemRequest{Done: &done})
	require.NoError(t, err)
	assert.True(t, list.Items[0].Done)

	_, err = lists.UpdateItem(ctx, f.actor, list.ID, uuid.New(), models.UpdateItemRequest{Done: &done})
	assert.True(t, store.IsNotFound(err))

	list, removed, err := lists.ClearCompleted(ctx, f.actor, list.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Pão", list.Items[0].Text)

	list, err = lists.RemoveItem(ctx, f.actor, list.ID, list.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	list, err = lists.Rename(ctx, f.actor, list.ID, models.UpdateListRequest{Name: "Feira"})
	require.NoError(t, err)
	assert.Equal(t, "Feira", list.Name)
}

func TestLists_Suggestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := NewLists(f.backend)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	lists.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	a, err := lists.Create(ctx, f.actor, models.CreateListRequest{Name: "Mercado"})
	require.NoError(t, err)
	b, err := lists.Create(ctx, f.actor, models.CreateListRequest{Name: "Feira"})
	require.NoError(t, err)

	_, _, err = lists.AddItems(ctx, f.actor, a.ID, []string{"Limão", "Leite", "Alface"}, nil)
	require.NoError(t, err)
	_, _, err = lists.AddItems(ctx, f.actor, b.ID, []string{"limao", "Leite condensado"}, nil)
	require.NoError(t, err)

	suggestions, err := lists.Suggestions(ctx, f.actor, "", 0)
	require.NoError(t, err)
	require.Len(t, suggestions, 4)
	assert.Equal(t, "limao", suggestions[0].Text)
	assert.Equal(t, 2, suggestions[0].Frequency)
	assert.Equal(t, "Leite condensado", suggestions[1].Text)

	suggestions, err = lists.Suggestions(ctx, f.actor, "LEI", 1)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "Leite condensado", suggestions[0].Text)

	other, err := lists.Suggestions(ctx, Actor{UserID: uuid.New(), CoupleID: uuid.New()}, "", 0)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRecipes_ToListAndNutrition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := NewLists(f.backend)
	recipes := NewRecipes(f.backend, f.blobs, lists, &stubAI{nutrition: models.Nutrition{Calories: 320}})

	two := 2.0
	recipe, err := recipes.Create(ctx, f.actor, models.Recipe{
		Title: "Bolo",
		Ingredients: []models.Ingredient{
			{Name: "farinha", Quantity: &two, Unit: "xícara"},
			{Name: "ovos"},
		},
	})
	require.NoError(t, err)

	list, err := lists.Create(ctx, f.actor, models.CreateListRequest{Name: "Mercado"})
	require.NoError(t, err)
	_, err = lists.AddItem(ctx, f.actor, list.ID, models.CreateItemRequest{Text: "Ovos"})
	require.NoError(t, err)

	list, added, err := recipes.ToList(ctx, f.partner, recipe.ID, list.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "2 xícara farinha", list.Items[1].Text)

	withNutrition, err := recipes.EstimateNutrition(ctx, f.actor, recipe.ID)
	require.NoError(t, err)
	require.NotNil(t, withNutrition.Nutrition)
	assert.Equal(t, 320.0, withNutrition.Nutrition.Calories)

	withImage, err := recipes.UploadImage(ctx, f.actor, recipe.ID, []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"))
	require.NoError(t, err)
	assert.Contains(t, withImage.ImageURL, "/recipe-images/")

	_, err = recipes.Import(ctx, "  ", nil)
	assert.Equal(t, store.KindInvalidInput, store.KindOf(err))
	draft, err := recipes.Import(ctx, "Pudim", nil)
	require.NoError(t, err)
	assert.Equal(t, "Pudim", draft.Title)
}

func TestMemories_AddImageAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	memories := NewMemories(f.backend, f.blobs)

	m, err := memories.Create(ctx, f.actor, models.Memory{Title: "Praia", Date: "2026-01-10"})
	require.NoError(t, err)
	m, err = memories.AddImage(ctx, f.actor, m.ID, pngHeader)
	require.NoError(t, err)
	m, err = memories.AddImage(ctx, f.partner, m.ID, pngHeader)
	require.NoError(t, err)
	assert.Len(t, m.ImageURLs, 2)
}

func TestSettleShared(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	balance := SettleShared([]uuid.UUID{a, b}, []models.Expense{
		{PaidBy: a, AmountCents: 10000, Shared: true},
		{PaidBy: b, AmountCents: 4001, Shared: true},
		{PaidBy: b, AmountCents: 99999, Shared: false},
	})
	assert.Equal(t, b, balance.Debtor)
	assert.Equal(t, a, balance.Creditor)
	assert.Equal(t, int64(2999), balance.AmountCents)
	assert.Equal(t, int64(10000), balance.PaidCents[a])

	even := SettleShared([]uuid.UUID{a, b}, []models.Expense{
		{PaidBy: a, AmountCents: 500, Shared: true},
		{PaidBy: b, AmountCents: 500, Shared: true},
	})
	assert.Equal(t, int64(0), even.AmountCents)
	assert.Equal(t, uuid.Nil, even.Debtor)

	alone := SettleShared([]uuid.UUID{a}, []models.Expense{{PaidBy: a, AmountCents: 500, Shared: true}})
	assert.Equal(t, int64(0), alone.AmountCents)
}

func TestExpenses_Balance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expenses := NewExpenses(f.backend, f.profiles)

	_, err := expenses.Create(ctx, f.actor, models.Expense{Description: "Mercado", AmountCents: 8000, Shared: true})
	require.NoError(t, err)
	_, err = expenses.Create(ctx, f.partner, models.Expense{Description: "Cinema", AmountCents: 2000, Shared: true})
	require.NoError(t, err)

	balance, err := expenses.Balance(ctx, f.actor)
	require.NoError(t, err)
	assert.Equal(t, f.partner.UserID, balance.Debtor)
	assert.Equal(t, int64(3000), balance.AmountCents)
}

func TestReminders_DueAndComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reminders := NewReminders(f.backend)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	reminders.now = func() time.Time { return now }

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	rent, err := reminders.Create(ctx, f.actor, models.Reminder{Title: "Aluguel", DueAt: &past, Recurrence: "monthly"})
	require.NoError(t, err)
	_, err = reminders.Create(ctx, f.actor, models.Reminder{Title: "Dentista", DueAt: &future})
	require.NoError(t, err)
	gift, err := reminders.Create(ctx, f.actor, models.Reminder{Title: "Presente", DueAt: &past})
	require.NoError(t, err)

	due, err := reminders.Due(ctx, f.actor)
	require.NoError(t, err)
	assert.Len(t, due, 2)

	rent, err = reminders.Complete(ctx, f.actor, rent.ID)
	require.NoError(t, err)
	assert.False(t, rent.Done)
	assert.True(t, rent.DueAt.Equal(past.AddDate(0, 1, 0)))

	gift, err = reminders.Complete(ctx, f.actor, gift.ID)
	require.NoError(t, err)
	assert.True(t, gift.Done)

	due, err = reminders.Due(ctx, f.actor)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDatePlans_Suggest(t *testing.T) {
	f := newFixture(t)
	plans := NewDatePlans(f.backend, &stubAI{})
	plan, err := plans.Suggest(context.Background(), models.SuggestDatePlanRequest{Prompt: "jantar", Date: "2026-11-20"})
	require.NoError(t, err)
	assert.Equal(t, "jantar", plan.Title)

	_, err = plans.Suggest(context.Background(), models.SuggestDatePlanRequest{Prompt: ""})
	assert.Equal(t, store.KindInvalidInput, store.KindOf(err))

	_, err = NewDatePlans(f.backend, nil).Suggest(context.Background(), models.SuggestDatePlanRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrAIDisabled)
}
