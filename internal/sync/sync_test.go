package sync

// Фейки зависимостей Service для юнит-тестов синка.
// Хранилища — простые списки в памяти, API отдает заранее заданные ответы.

import (
	"database/sql"
	"io/ioutil"
	"testing"

	"github.com/sirupsen/logrus"

	"StrapiWithMoySklad/internal/config"
	"StrapiWithMoySklad/internal/database/model/bundleitem"
	"StrapiWithMoySklad/internal/database/model/category"
	"StrapiWithMoySklad/internal/database/model/product"
	"StrapiWithMoySklad/internal/database/model/variant"
	"StrapiWithMoySklad/internal/moysklad/models"
	"StrapiWithMoySklad/internal/syncstate"
)

const testRootName = "Витрина"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.MOYSKLAD.RootName = testRootName
	cfg.MOYSKLAD.PriceTypeSale = "Цена с сайта"
	cfg.MOYSKLAD.PriceTypeOld = "Цена продажи"
	return cfg
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	return logger
}

type fakeAPI struct {
	folders    []*models.ProductFolder
	products   []*models.Product
	bundles    []*models.Product
	variants   []*models.Variant
	components map[string][]*models.BundleComponent
	entities   map[string]*models.Entity

	err   error
	calls []string
}

func (f *fakeAPI) GetProductFolders() ([]*models.ProductFolder, error) {
	f.calls = append(f.calls, "GetProductFolders")
	return f.folders, f.err
}

func (f *fakeAPI) GetProducts() ([]*models.Product, error) {
	f.calls = append(f.calls, "GetProducts")
	return f.products, f.err
}

func (f *fakeAPI) GetBundles() ([]*models.Product, error) {
	f.calls = append(f.calls, "GetBundles")
	return f.bundles, f.err
}

func (f *fakeAPI) GetVariants() ([]*models.Variant, error) {
	f.calls = append(f.calls, "GetVariants")
	return f.variants, f.err
}

func (f *fakeAPI) GetBundleComponents(bundleMsID string) ([]*models.BundleComponent, error) {
	f.calls = append(f.calls, "GetBundleComponents:"+bundleMsID)
	return f.components[bundleMsID], f.err
}

func (f *fakeAPI) FetchByHref(href string) (*models.Entity, error) {
	f.calls = append(f.calls, "FetchByHref:"+href)
	if f.err != nil {
		return nil, f.err
	}
	return f.entities[href], nil
}

type countsCall struct {
	id     int64
	direct int
	total  int
}

type fakeCategoryStore struct {
	rows   []*category.Category
	nextID int64

	counts  []countsCall
	deleted []string
	kept    [][]string
}

func (f *fakeCategoryStore) SelectAll() ([]*category.Category, error) {
	return f.rows, nil
}

func (f *fakeCategoryStore) SelectByMoyskladID(moyskladID string) (*category.Category, error) {
	for _, c := range f.rows {
		if c.MoyskladID == moyskladID {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeCategoryStore) Upsert(c *category.Category) error {
	for _, existing := range f.rows {
		if existing.MoyskladID == c.MoyskladID {
			// slug назначается один раз, поведение реального хранилища
			existing.Name = c.Name
			existing.PathName = c.PathName
			existing.Href = c.Href
			return nil
		}
	}

	f.nextID++
	row := *c
	row.ID = f.nextID
	f.rows = append(f.rows, &row)
	return nil
}

func (f *fakeCategoryStore) SetParent(id int64, parentID sql.NullInt64) error {
	for _, c := range f.rows {
		if c.ID == id {
			c.ParentID = parentID
		}
	}
	return nil
}

func (f *fakeCategoryStore) DeleteNotIn(keep []string) error {
	f.kept = append(f.kept, keep)

	keepSet := make(map[string]bool, len(keep))
	for _, msID := range keep {
		keepSet[msID] = true
	}

	var retained []*category.Category
	for _, c := range f.rows {
		if keepSet[c.MoyskladID] {
			retained = append(retained, c)
		} else {
			f.deleted = append(f.deleted, c.MoyskladID)
		}
	}
	f.rows = retained
	return nil
}

func (f *fakeCategoryStore) UpdateCounts(id int64, direct int, total int) error {
	f.counts = append(f.counts, countsCall{id: id, direct: direct, total: total})
	for _, c := range f.rows {
		if c.ID == id {
			c.ProductsCount = total
			c.ProductsCountDirect = direct
			c.ProductsCountTotal = total
		}
	}
	return nil
}

func (f *fakeCategoryStore) DeleteByMoyskladID(moyskladID string) error {
	f.deleted = append(f.deleted, moyskladID)

	var retained []*category.Category
	for _, c := range f.rows {
		if c.MoyskladID != moyskladID {
			retained = append(retained, c)
		}
	}
	f.rows = retained
	return nil
}

type fakeProductStore struct {
	rows   []*product.Product
	nextID int64

	deleted   []string
	staleKeep map[string][]string
}

func (f *fakeProductStore) SelectByMoyskladID(moyskladID string) (*product.Product, error) {
	for _, p := range f.rows {
		if p.MoyskladID == moyskladID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProductStore) Upsert(p *product.Product) error {
	for i, existing := range f.rows {
		if existing.MoyskladID == p.MoyskladID {
			row := *p
			row.ID = existing.ID
			f.rows[i] = &row
			return nil
		}
	}

	f.nextID++
	row := *p
	row.ID = f.nextID
	f.rows = append(f.rows, &row)
	return nil
}

func (f *fakeProductStore) DeleteStaleByType(productType string, keep []string) error {
	if f.staleKeep == nil {
		f.staleKeep = make(map[string][]string)
	}
	f.staleKeep[productType] = keep

	keepSet := make(map[string]bool, len(keep))
	for _, msID := range keep {
		keepSet[msID] = true
	}

	var retained []*product.Product
	for _, p := range f.rows {
		if p.Type != productType || keepSet[p.MoyskladID] {
			retained = append(retained, p)
		} else {
			f.deleted = append(f.deleted, p.MoyskladID)
		}
	}
	f.rows = retained
	return nil
}

func (f *fakeProductStore) DeleteByMoyskladID(moyskladID string) error {
	f.deleted = append(f.deleted, moyskladID)

	var retained []*product.Product
	for _, p := range f.rows {
		if p.MoyskladID != moyskladID {
			retained = append(retained, p)
		}
	}
	f.rows = retained
	return nil
}

type fakeBundleItemStore struct {
	items          []*bundleitem.BundleItem
	deletedBundles []int64
}

func (f *fakeBundleItemStore) DeleteByBundleID(bundleID int64) error {
	f.deletedBundles = append(f.deletedBundles, bundleID)

	var retained []*bundleitem.BundleItem
	for _, item := range f.items {
		if item.BundleID != bundleID {
			retained = append(retained, item)
		}
	}
	f.items = retained
	return nil
}

func (f *fakeBundleItemStore) Insert(item *bundleitem.BundleItem) error {
	f.items = append(f.items, item)
	return nil
}

type fakeVariantStore struct {
	rows   []*variant.Variant
	nextID int64

	deleted []string
	kept    [][]string
}

func (f *fakeVariantStore) SelectByMoyskladID(moyskladID string) (*variant.Variant, error) {
	for _, v := range f.rows {
		if v.MoyskladID == moyskladID {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeVariantStore) Upsert(v *variant.Variant) error {
	for i, existing := range f.rows {
		if existing.MoyskladID == v.MoyskladID {
			row := *v
			row.ID = existing.ID
			f.rows[i] = &row
			return nil
		}
	}

	f.nextID++
	row := *v
	row.ID = f.nextID
	f.rows = append(f.rows, &row)
	return nil
}

func (f *fakeVariantStore) DeleteNotIn(keep []string) error {
	f.kept = append(f.kept, keep)

	keepSet := make(map[string]bool, len(keep))
	for _, msID := range keep {
		keepSet[msID] = true
	}

	var retained []*variant.Variant
	for _, v := range f.rows {
		if keepSet[v.MoyskladID] {
			retained = append(retained, v)
		} else {
			f.deleted = append(f.deleted, v.MoyskladID)
		}
	}
	f.rows = retained
	return nil
}

func (f *fakeVariantStore) DeleteByMoyskladID(moyskladID string) error {
	f.deleted = append(f.deleted, moyskladID)

	var retained []*variant.Variant
	for _, v := range f.rows {
		if v.MoyskladID != moyskladID {
			retained = append(retained, v)
		}
	}
	f.rows = retained
	return nil
}

type fakeState struct {
	acquireErr error

	acquired []syncstate.Kind
	released []syncstate.Kind
	running  []syncstate.Kind
	oks      []syncstate.Totals
	errs     []error
}

func (f *fakeState) Acquire(kind syncstate.Kind) error {
	if f.acquireErr != nil {
		return f.acquireErr
	}
	f.acquired = append(f.acquired, kind)
	return nil
}

func (f *fakeState) Release(kind syncstate.Kind) error {
	f.released = append(f.released, kind)
	return nil
}

func (f *fakeState) MarkRunning(kind syncstate.Kind) error {
	f.running = append(f.running, kind)
	return nil
}

func (f *fakeState) MarkOk(kind syncstate.Kind, totals syncstate.Totals) error {
	f.oks = append(f.oks, totals)
	return nil
}

func (f *fakeState) MarkError(kind syncstate.Kind, cause error) error {
	f.errs = append(f.errs, cause)
	return nil
}

type testEnv struct {
	api         *fakeAPI
	state       *fakeState
	categories  *fakeCategoryStore
	products    *fakeProductStore
	bundleItems *fakeBundleItemStore
	variants    *fakeVariantStore
	service     *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		api:         &fakeAPI{},
		state:       &fakeState{},
		categories:  &fakeCategoryStore{},
		products:    &fakeProductStore{},
		bundleItems: &fakeBundleItemStore{},
		variants:    &fakeVariantStore{},
	}

	env.service = NewService(
		testConfig(),
		testLogger(),
		env.api,
		env.state,
		env.categories,
		env.products,
		env.bundleItems,
		env.variants,
	)

	return env
}

func msHref(entity string, id string) string {
	return "https://api.moysklad.ru/api/remap/1.2/entity/" + entity + "/" + id
}

func msFolder(id, name, pathName string, parentID string) *models.ProductFolder {
	f := &models.ProductFolder{
		ID:       id,
		Name:     name,
		PathName: pathName,
		Meta:     models.Meta{Href: msHref("productfolder", id)},
	}
	if parentID != "" {
		f.ProductFolder = &models.MetaRef{Meta: models.Meta{Href: msHref("productfolder", parentID)}}
	}
	return f
}

func msProduct(id, name string, categoryMsID string) *models.Product {
	p := &models.Product{
		ID:   id,
		Name: name,
		Meta: models.Meta{Href: msHref("product", id)},
	}
	if categoryMsID != "" {
		p.ProductFolder = &models.MetaRef{Meta: models.Meta{Href: msHref("productfolder", categoryMsID)}}
	}
	return p
}
