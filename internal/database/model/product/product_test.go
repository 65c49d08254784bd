package product

import (
	"database/sql"
	"io/ioutil"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StrapiWithMoySklad/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(1)
	db.MustExec(database.DB_SCHEMA)

	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	return NewStore(db, logger)
}

func row(msID, productType, name string, categoryID int64) *Product {
	return &Product{
		MoyskladID: msID,
		Type:       productType,
		Name:       name,
		CategoryID: categoryID,
	}
}

func TestUpsertOverwritesAttributes(t *testing.T) {
	store := newTestStore(t)

	p := row("p1", TYPE_PRODUCT, "Чай", 1)
	p.Price = sql.NullInt64{Int64: 100, Valid: true}
	require.NoError(t, store.Upsert(p))

	// повторный upsert перетирает все атрибуты, включая сброс цены
	p2 := row("p1", TYPE_PRODUCT, "Чай черный", 2)
	require.NoError(t, store.Upsert(p2))

	got, err := store.SelectByMoyskladID("p1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Чай черный", got.Name)
	assert.Equal(t, int64(2), got.CategoryID)
	assert.False(t, got.Price.Valid)
}

func TestDeleteStaleByTypeDoesNotCrossTypes(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(row("p1", TYPE_PRODUCT, "Чай", 1)))
	require.NoError(t, store.Upsert(row("p2", TYPE_PRODUCT, "Кофе", 1)))
	require.NoError(t, store.Upsert(row("b1", TYPE_BUNDLE, "Набор", 1)))

	// чистка товаров не задевает комплекты
	require.NoError(t, store.DeleteStaleByType(TYPE_PRODUCT, []string{"p1"}))

	p2, _ := store.SelectByMoyskladID("p2")
	assert.Nil(t, p2)

	b1, _ := store.SelectByMoyskladID("b1")
	require.NotNil(t, b1)

	// пустой keep сносит весь тип целиком
	require.NoError(t, store.DeleteStaleByType(TYPE_BUNDLE, nil))
	b1, _ = store.SelectByMoyskladID("b1")
	assert.Nil(t, b1)

	p1, _ := store.SelectByMoyskladID("p1")
	require.NotNil(t, p1)
}

func TestSelectByCategoryIDsPagination(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(row("p1", TYPE_PRODUCT, "А-товар", 1)))
	require.NoError(t, store.Upsert(row("p2", TYPE_PRODUCT, "Б-товар", 1)))
	require.NoError(t, store.Upsert(row("p3", TYPE_PRODUCT, "В-товар", 2)))
	require.NoError(t, store.Upsert(row("p4", TYPE_PRODUCT, "Г-товар", 3)))

	total, err := store.CountByCategoryIDs([]int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	page, err := store.SelectByCategoryIDs([]int64{1, 2}, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "А-товар", page[0].Name)
	assert.Equal(t, "Б-товар", page[1].Name)

	page, err = store.SelectByCategoryIDs([]int64{1, 2}, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "В-товар", page[0].Name)
}

func TestSelectByCategoryIDsEmptyInput(t *testing.T) {
	store := newTestStore(t)

	page, err := store.SelectByCategoryIDs(nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, page)

	total, err := store.CountByCategoryIDs(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestDeleteByMoyskladID(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Upsert(row("p1", TYPE_PRODUCT, "Чай", 1)))
	require.NoError(t, store.DeleteByMoyskladID("p1"))

	got, err := store.SelectByMoyskladID("p1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
