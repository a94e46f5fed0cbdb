package database

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organizer/internal/store"
)

func TestBuildSelect(t *testing.T) {
	couple := uuid.MustParse("6f1c2b8e-0d3a-4c1e-9a57-2b7f7c1d9e10")
	q := store.Where("couple_id", couple).
		And("title", store.OpILike, "%praia%").
		OrderBy("created_at", false).
		WithLimit(10)

	sql, args, err := buildSelect(store.TableMemories, q)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT to_jsonb(r) FROM "memories" AS r WHERE r."couple_id" = $1 AND r."title"::text ILIKE $2 ORDER BY r."created_at" DESC NULLS LAST LIMIT 10`,
		sql)
	assert.Equal(t, []any{couple.String(), "%praia%"}, args)
}

func TestBuildSelect_InAndNull(t *testing.T) {
	q := store.Query{Filters: []store.Filter{
		{Column: "status", Op: store.OpIn, Value: []string{"idea", "planned"}},
		{Column: "restaurant_id", Op: store.OpEq, Value: nil},
	}}
	sql, args, err := buildSelect(store.TableDatePlans, q)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT to_jsonb(r) FROM "date_plans" AS r WHERE r."status"::text = ANY($1::text[]) AND r."restaurant_id" IS NULL`,
		sql)
	assert.Equal(t, []any{[]string{"idea", "planned"}}, args)
}

func TestBuildSelect_RejectsBadInput(t *testing.T) {
	_, _, err := buildSelect("pg_user", store.Query{})
	assert.Equal(t, store.KindInvalidInput, store.KindOf(err))

	_, _, err = buildSelect(store.TableLists, store.Where(`name"; drop`, "x"))
	assert.Equal(t, store.KindInvalidInput, store.KindOf(err))

	_, _, err = buildSelect(store.TableLists, store.Query{}.OrderBy("Name", true))
	assert.Equal(t, store.KindInvalidInput, store.KindOf(err))
}

func TestBuildInsert(t *testing.T) {
	sql, args, err := buildInsert(store.TableLists, map[string]any{"name": "Mercado", "id": "1"}, "")
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "lists" AS r ("id", "name") SELECT "id", "name" FROM jsonb_populate_record(NULL::"lists", $1::jsonb) RETURNING to_jsonb(r)`,
		sql)
	require.Len(t, args, 1)
	assert.JSONEq(t, `{"name":"Mercado","id":"1"}`, args[0].(string))
}

func TestBuildInsert_Upsert(t *testing.T) {
	row := map[string]any{"id": "1", "couple_id": "c", "restaurant_id": "r", "is_favorite": true, "created_at": "2024-01-01T00:00:00Z"}
	sql, _, err := buildInsert(store.TableCoupleRestaurants, row, "couple_id,restaurant_id")
	require.NoError(t, err)
	assert.Contains(t, sql, `ON CONFLICT ("couple_id", "restaurant_id") DO UPDATE SET `)
	assert.Contains(t, sql, `"is_favorite" = EXCLUDED."is_favorite"`)
	assert.NotContains(t, sql, `"id" = EXCLUDED`)
	assert.NotContains(t, sql, `"created_at" = EXCLUDED`)
}

func TestBuildUpdate(t *testing.T) {
	sql, args, err := buildUpdate(store.TableLists, store.ByID("abc"), map[string]any{"name": "Feira"})
	require.NoError(t, err)
	assert.Equal(t,
		`UPDATE "lists" AS r SET "name" = p."name" FROM jsonb_populate_record(NULL::"lists", $1::jsonb) AS p WHERE r."id" = $2 RETURNING to_jsonb(r)`,
		sql)
	assert.Equal(t, "abc", args[1])

	_, _, err = buildUpdate(store.TableLists, store.Query{}, map[string]any{"name": "x"})
	assert.Equal(t, store.KindInvalidInput, store.KindOf(err))
}

func TestBuildDelete(t *testing.T) {
	sql, args, err := buildDelete(store.TableExpenses, store.ByID("e1"))
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "expenses" AS r WHERE r."id" = $1 RETURNING to_jsonb(r)`, sql)
	assert.Equal(t, []any{"e1"}, args)

	_, _, err = buildDelete(store.TableExpenses, store.Query{})
	assert.Error(t, err)
}

func TestParseNotification(t *testing.T) {
	event, err := parseNotification(`{"table":"lists","type":"UPDATE","record":{"id":"1","couple_id":"c"}}`)
	require.NoError(t, err)
	assert.Equal(t, store.ChangeUpdate, event.Type)
	couple, ok := event.Column("couple_id")
	assert.True(t, ok)
	assert.Equal(t, "c", couple)

	_, err = parseNotification(`{"table":"secrets","type":"INSERT","record":{}}`)
	assert.Error(t, err)
	_, err = parseNotification(`not json`)
	assert.Error(t, err)
}
