package sync

import (
	"database/sql"

	"StrapiWithMoySklad/internal/config"
	"StrapiWithMoySklad/internal/database/model/bundleitem"
	"StrapiWithMoySklad/internal/database/model/category"
	"StrapiWithMoySklad/internal/database/model/product"
	"StrapiWithMoySklad/internal/database/model/variant"
	"StrapiWithMoySklad/internal/moysklad"
	"StrapiWithMoySklad/internal/syncstate"

	"github.com/sirupsen/logrus"
)

// Хранилища зеркала. Интерфейсы объявлены на стороне потребителя,
// реализации лежат в internal/database/model.
type CategoryStore interface {
	SelectAll() ([]*category.Category, error)
	SelectByMoyskladID(moyskladID string) (*category.Category, error)
	Upsert(c *category.Category) error
	SetParent(id int64, parentID sql.NullInt64) error
	DeleteNotIn(keep []string) error
	UpdateCounts(id int64, direct int, total int) error
	DeleteByMoyskladID(moyskladID string) error
}

type ProductStore interface {
	SelectByMoyskladID(moyskladID string) (*product.Product, error)
	Upsert(p *product.Product) error
	DeleteStaleByType(productType string, keep []string) error
	DeleteByMoyskladID(moyskladID string) error
}

type BundleItemStore interface {
	DeleteByBundleID(bundleID int64) error
	Insert(item *bundleitem.BundleItem) error
}

type VariantStore interface {
	SelectByMoyskladID(moyskladID string) (*variant.Variant, error)
	Upsert(v *variant.Variant) error
	DeleteNotIn(keep []string) error
	DeleteByMoyskladID(moyskladID string) error
}

type StateManager interface {
	Acquire(kind syncstate.Kind) error
	Release(kind syncstate.Kind) error
	MarkRunning(kind syncstate.Kind) error
	MarkOk(kind syncstate.Kind, totals syncstate.Totals) error
	MarkError(kind syncstate.Kind, cause error) error
}

// Service — синк каталога MoySklad в локальное зеркало.
// Все зависимости передаются явно через конструктор, глобального
// состояния у пакета нет.
type Service struct {
	cfg         *config.Config
	logger      *logrus.Logger
	api         moysklad.API
	state       StateManager
	categories  CategoryStore
	products    ProductStore
	bundleItems BundleItemStore
	variants    VariantStore
}

func NewService(
	cfg *config.Config,
	logger *logrus.Logger,
	api moysklad.API,
	state StateManager,
	categories CategoryStore,
	products ProductStore,
	bundleItems BundleItemStore,
	variants VariantStore,
) *Service {
	return &Service{
		cfg:         cfg,
		logger:      logger,
		api:         api,
		state:       state,
		categories:  categories,
		products:    products,
		bundleItems: bundleItems,
		variants:    variants,
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
