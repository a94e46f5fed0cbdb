package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"organizer/internal/models"
	"organizer/internal/store"
)

// Profiles resolves callers to their profile and couple. A couple is just a
// shared couple_id on at most two profiles.
type Profiles struct {
	table *store.Table[models.UserProfile]
}

func NewProfiles(backend store.Backend) *Profiles {
	return &Profiles{table: store.NewTable[models.UserProfile](backend, store.TableProfiles)}
}

// Get returns the caller's profile, creating an empty one on first use.
func (p *Profiles) Get(ctx context.Context, userID uuid.UUID) (models.UserProfile, error) {
	profile, err := p.table.Get(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !store.IsNotFound(err) {
		return models.UserProfile{}, err
	}
	profile = models.UserProfile{Base: models.Base{ID: userID}}
	return p.table.Upsert(ctx, &profile, "id")
}

// Actor resolves the caller for couple-scoped operations.
func (p *Profiles) Actor(ctx context.Context, userID uuid.UUID) (Actor, error) {
	profile, err := p.Get(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	if profile.CoupleID == nil {
		return Actor{}, ErrNoCouple
	}
	return Actor{UserID: userID, CoupleID: *profile.CoupleID, Name: profile.DisplayName}, nil
}

// Update changes the fields present in req. Couple membership is changed
// through Invite and Join only.
func (p *Profiles) Update(ctx context.Context, userID uuid.UUID, req models.UpdateProfileRequest) (models.UserProfile, error) {
	if err := Validate(store.TableProfiles, req); err != nil {
		return models.UserProfile{}, err
	}
	if _, err := p.Get(ctx, userID); err != nil {
		return models.UserProfile{}, err
	}
	patch := map[string]any{}
	if req.DisplayName != nil {
		patch["display_name"] = *req.DisplayName
	}
	if req.AvatarURL != nil {
		patch["avatar_url"] = *req.AvatarURL
	}
	if req.CoupleID != nil {
		if _, err := p.Join(ctx, userID, *req.CoupleID); err != nil {
			return models.UserProfile{}, err
		}
	}
	if len(patch) == 0 {
		return p.Get(ctx, userID)
	}
	return p.table.Update(ctx, userID, patch)
}

// Members returns the profiles sharing coupleID.
func (p *Profiles) Members(ctx context.Context, coupleID uuid.UUID) ([]models.UserProfile, error) {
	return p.table.List(ctx, store.Where("couple_id", coupleID).OrderBy("created_at", true))
}

// Invite returns the caller's couple id, starting a new couple when the
// caller has none. The partner joins with this id.
func (p *Profiles) Invite(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	profile, err := p.Get(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if profile.CoupleID != nil {
		return *profile.CoupleID, nil
	}
	coupleID := uuid.New()
	if _, err := p.table.Update(ctx, userID, map[string]any{"couple_id": coupleID.String()}); err != nil {
		return uuid.Nil, err
	}
	return coupleID, nil
}

// Join moves the caller into an existing couple.
func (p *Profiles) Join(ctx context.Context, userID, coupleID uuid.UUID) (models.UserProfile, error) {
	members, err := p.Members(ctx, coupleID)
	if err != nil {
		return models.UserProfile{}, err
	}
	if len(members) == 0 {
		return models.UserProfile{}, &store.Error{Kind: store.KindNotFound, Op: "join", Table: store.TableProfiles, Message: fmt.Sprintf("no couple %s", coupleID)}
	}
	for _, member := range members {
		if member.ID == userID {
			return member, nil
		}
	}
	if len(members) >= 2 {
		return models.UserProfile{}, ErrCoupleFull
	}
	if _, err := p.Get(ctx, userID); err != nil {
		return models.UserProfile{}, err
	}
	return p.table.Update(ctx, userID, map[string]any{"couple_id": coupleID.String()})
}
