package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"organizer/internal/store"
)

// ChangesChannel is the NOTIFY channel the row triggers publish on.
const ChangesChannel = "organizer_changes"

// tableSchemas holds the CREATE statements for every store table. Arrays and
// nested objects are jsonb so rows round-trip through to_jsonb unchanged.
var tableSchemas = []struct {
	name string
	ddl  string
}{
	{store.TableProfiles, `
		CREATE TABLE profiles (
			id UUID PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			couple_id UUID,
			avatar_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX idx_profiles_couple_id ON profiles(couple_id);`},
	{store.TableRestaurants, `
		CREATE TABLE restaurants (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			cuisine TEXT NOT NULL DEFAULT '',
			is_tour BOOLEAN NOT NULL DEFAULT false,
			price_range INTEGER NOT NULL DEFAULT 0 CHECK (price_range BETWEEN 0 AND 4),
			google_rating NUMERIC(2,1),
			visited BOOLEAN NOT NULL DEFAULT false,
			locations JSONB NOT NULL DEFAULT '[]',
			reviews JSONB NOT NULL DEFAULT '[]',
			image_url TEXT NOT NULL DEFAULT '',
			website TEXT NOT NULL DEFAULT '',
			instagram TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{store.TableCoupleRestaurants, `
		CREATE TABLE couple_restaurants (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			restaurant_id UUID NOT NULL REFERENCES restaurants(id) ON DELETE CASCADE,
			is_favorite BOOLEAN NOT NULL DEFAULT false,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (couple_id, restaurant_id)
		);`},
	{store.TableCuratedLists, `
		CREATE TABLE curated_lists (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			restaurant_ids JSONB NOT NULL DEFAULT '[]',
			created_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{store.TableRecipes, `
		CREATE TABLE recipes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			title TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			servings INTEGER NOT NULL DEFAULT 0,
			prep_minutes INTEGER NOT NULL DEFAULT 0,
			ingredients JSONB NOT NULL DEFAULT '[]',
			steps JSONB NOT NULL DEFAULT '[]',
			tags JSONB NOT NULL DEFAULT '[]',
			nutrition JSONB,
			image_url TEXT NOT NULL DEFAULT '',
			source_url TEXT NOT NULL DEFAULT '',
			is_favorite BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX idx_recipes_couple_id ON recipes(couple_id);`},
	{store.TableDrinks, `
		CREATE TABLE drinks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			base_spirit TEXT NOT NULL DEFAULT '',
			ingredients JSONB NOT NULL DEFAULT '[]',
			instructions TEXT NOT NULL DEFAULT '',
			rating NUMERIC(2,1) NOT NULL DEFAULT 0,
			image_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX idx_drinks_couple_id ON drinks(couple_id);`},
	{store.TableLists, `
		CREATE TABLE lists (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL DEFAULT '',
			items JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX idx_lists_couple_id ON lists(couple_id);`},
	{store.TableDatePlans, `
		CREATE TABLE date_plans (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			title TEXT NOT NULL,
			date TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'idea',
			restaurant_id UUID,
			stops JSONB NOT NULL DEFAULT '[]',
			budget NUMERIC(10,2) NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{store.TableMemories, `
		CREATE TABLE memories (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL DEFAULT '',
			place TEXT NOT NULL DEFAULT '',
			image_urls JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{store.TableExpenses, `
		CREATE TABLE expenses (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			description TEXT NOT NULL,
			amount_cents BIGINT NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT '',
			paid_by UUID,
			date TEXT NOT NULL DEFAULT '',
			shared BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{store.TableReminders, `
		CREATE TABLE reminders (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			title TEXT NOT NULL,
			due_at TIMESTAMPTZ,
			done BOOLEAN NOT NULL DEFAULT false,
			recurrence TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{store.TableHabits, `
		CREATE TABLE habits (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			user_id UUID,
			name TEXT NOT NULL,
			weekly_target INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{store.TableHabitEntries, `
		CREATE TABLE habit_entries (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			habit_id UUID NOT NULL REFERENCES habits(id) ON DELETE CASCADE,
			day TEXT NOT NULL,
			done BOOLEAN NOT NULL DEFAULT false,
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{store.TableMoodEntries, `
		CREATE TABLE mood_entries (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			user_id UUID,
			day TEXT NOT NULL,
			mood INTEGER NOT NULL CHECK (mood BETWEEN 1 AND 5),
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
	{store.TableJobApplications, `
		CREATE TABLE job_applications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			couple_id UUID NOT NULL,
			user_id UUID,
			company TEXT NOT NULL,
			role TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'applied',
			applied_at TEXT NOT NULL DEFAULT '',
			link TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`},
}

const notifyFunction = `
CREATE OR REPLACE FUNCTION organizer_notify_change() RETURNS trigger AS $$
DECLARE
	rec jsonb;
	payload text;
BEGIN
	IF TG_OP = 'DELETE' THEN
		rec := to_jsonb(OLD);
	ELSE
		rec := to_jsonb(NEW);
	END IF;
	payload := jsonb_build_object('table', TG_TABLE_NAME, 'type', TG_OP, 'record', rec)::text;
	-- NOTIFY payloads are capped at 8000 bytes
	IF octet_length(payload) > 7900 THEN
		payload := jsonb_build_object('table', TG_TABLE_NAME, 'type', TG_OP,
			'record', jsonb_build_object('id', rec->'id', 'couple_id', rec->'couple_id'))::text;
	END IF;
	PERFORM pg_notify('` + ChangesChannel + `', payload);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;`

// Migrate creates missing tables and (re)installs the change triggers.
// Existing tables are left untouched.
func Migrate(ctx context.Context, db *DB) error {
	for _, schema := range tableSchemas {
		var exists bool
		err := db.QueryRow(ctx,
			"SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)",
			schema.name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check if table %s exists: %w", schema.name, err)
		}
		if exists {
			continue
		}
		if _, err := db.Exec(ctx, schema.ddl); err != nil {
			return fmt.Errorf("failed to create table %s: %w", schema.name, err)
		}
		db.logger.Info("created table", zap.String("table", schema.name))
	}

	if _, err := db.Exec(ctx, notifyFunction); err != nil {
		return fmt.Errorf("failed to install notify function: %w", err)
	}
	for _, schema := range tableSchemas {
		table := pgx.Identifier{schema.name}.Sanitize()
		_, err := db.Exec(ctx, fmt.Sprintf(`
			DROP TRIGGER IF EXISTS organizer_notify ON %[1]s;
			CREATE TRIGGER organizer_notify AFTER INSERT OR UPDATE OR DELETE ON %[1]s
				FOR EACH ROW EXECUTE FUNCTION organizer_notify_change();`, table))
		if err != nil {
			return fmt.Errorf("failed to install change trigger on %s: %w", schema.name, err)
		}
	}
	return nil
}
