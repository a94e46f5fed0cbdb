package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"organizer/internal/models"
	"organizer/internal/ranking"
	"organizer/internal/store"
)

const (
	defaultSuggestions = 10
	maxSuggestions     = 50
)

// Lists manages shared lists. Items live in the list row, so every item
// operation reads the list, changes the array and writes it back whole.
type Lists struct {
	*Resource[models.List, *models.List]
	now func() time.Time
}

func NewLists(backend store.Backend) *Lists {
	return &Lists{
		Resource: NewResource[models.List](backend, store.TableLists, "updated_at"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Lists) Create(ctx context.Context, actor Actor, req models.CreateListRequest) (models.List, error) {
	if err := Validate(store.TableLists, req); err != nil {
		return models.List{}, err
	}
	return s.Resource.Create(ctx, actor, models.List{
		Name:      req.Name,
		Kind:      req.Kind,
		Items:     []models.ListItem{},
		UpdatedAt: s.now(),
	})
}

func (s *Lists) Rename(ctx context.Context, actor Actor, id uuid.UUID, req models.UpdateListRequest) (models.List, error) {
	if err := Validate(store.TableLists, req); err != nil {
		return models.List{}, err
	}
	return s.Patch(ctx, actor, id, map[string]any{
		"name":       req.Name,
		"kind":       req.Kind,
		"updated_at": s.now(),
	})
}

func (s *Lists) AddItem(ctx context.Context, actor Actor, listID uuid.UUID, req models.CreateItemRequest) (models.List, error) {
	if err := Validate(store.TableLists, req); err != nil {
		return models.List{}, err
	}
	list, _, err := s.AddItems(ctx, actor, listID, []string{req.Text}, nil)
	return list, err
}

// AddItems appends one item per text. keep, when given, decides per text
// whether to add it.
func (s *Lists) AddItems(ctx context.Context, actor Actor, listID uuid.UUID, texts []string, keep func(models.List, string) bool) (models.List, int, error) {
	list, err := s.Get(ctx, actor, listID)
	if err != nil {
		return models.List{}, 0, err
	}
	addedBy := actor.UserID
	added := 0
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" || (keep != nil && !keep(list, text)) {
			continue
		}
		list.Items = append(list.Items, models.ListItem{
			ID:        uuid.New(),
			Text:      text,
			AddedBy:   &addedBy,
			CreatedAt: s.now(),
		})
		added++
	}
	if added == 0 {
		return list, 0, nil
	}
	saved, err := s.saveItems(ctx, actor, list)
	return saved, added, err
}

func (s *Lists) UpdateItem(ctx context.Context, actor Actor, listID, itemID uuid.UUID, req models.UpdateItemRequest) (models.List, error) {
	if err := Validate(store.TableLists, req); err != nil {
		return models.List{}, err
	}
	list, err := s.Get(ctx, actor, listID)
	if err != nil {
		return models.List{}, err
	}
	i, ok := list.FindItem(itemID)
	if !ok {
		return models.List{}, store.NotFound("update item", store.TableLists)
	}
	if req.Text != nil {
		list.Items[i].Text = strings.TrimSpace(*req.Text)
	}
	if req.Done != nil {
		list.Items[i].Done = *req.Done
	}
	return s.saveItems(ctx, actor, list)
}

func (s *Lists) RemoveItem(ctx context.Context, actor Actor, listID, itemID uuid.UUID) (models.List, error) {
	list, err := s.Get(ctx, actor, listID)
	if err != nil {
		return models.List{}, err
	}
	i, ok := list.FindItem(itemID)
	if !ok {
		return models.List{}, store.NotFound("remove item", store.TableLists)
	}
	list.Items = append(list.Items[:i], list.Items[i+1:]...)
	return s.saveItems(ctx, actor, list)
}

// ClearCompleted drops every done item and reports how many were removed.
func (s *Lists) ClearCompleted(ctx context.Context, actor Actor, listID uuid.UUID) (models.List, int, error) {
	list, err := s.Get(ctx, actor, listID)
	if err != nil {
		return models.List{}, 0, err
	}
	removed := list.CompletedCount()
	if removed == 0 {
		return list, 0, nil
	}
	kept := make([]models.ListItem, 0, len(list.Items)-removed)
	for _, item := range list.Items {
		if !item.Done {
			kept = append(kept, item)
		}
	}
	list.Items = kept
	saved, err := s.saveItems(ctx, actor, list)
	return saved, removed, err
}

func (s *Lists) saveItems(ctx context.Context, actor Actor, list models.List) (models.List, error) {
	if list.Items == nil {
		list.Items = []models.ListItem{}
	}
	return s.Patch(ctx, actor, list.ID, map[string]any{
		"items":      list.Items,
		"updated_at": s.now(),
	})
}

// Suggestions ranks past item texts of the couple's lists for autocomplete:
// most frequent first, then most recently used. query filters by an accent
// and case insensitive substring.
func (s *Lists) Suggestions(ctx context.Context, actor Actor, query string, limit int) ([]models.ItemSuggestion, error) {
	if limit <= 0 {
		limit = defaultSuggestions
	}
	if limit > maxSuggestions {
		limit = maxSuggestions
	}
	lists, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}

	needle := ranking.Fold(strings.TrimSpace(query))
	byKey := make(map[string]*models.ItemSuggestion)
	for _, list := range lists {
		for _, item := range list.Items {
			key := ranking.Fold(strings.TrimSpace(item.Text))
			if key == "" || !strings.Contains(key, needle) {
				continue
			}
			suggestion, ok := byKey[key]
			if !ok {
				suggestion = &models.ItemSuggestion{Text: item.Text}
				byKey[key] = suggestion
			}
			suggestion.Frequency++
			if item.CreatedAt.After(suggestion.LastUsed) {
				suggestion.LastUsed = item.CreatedAt
				suggestion.Text = item.Text
			}
		}
	}

	out := make([]models.ItemSuggestion, 0, len(byKey))
	for _, suggestion := range byKey {
		out = append(out, *suggestion)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		if !out[i].LastUsed.Equal(out[j].LastUsed) {
			return out[i].LastUsed.After(out[j].LastUsed)
		}
		return out[i].Text < out[j].Text
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
