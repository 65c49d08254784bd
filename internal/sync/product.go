package sync

// Синхронизация товаров и комплектов:
// 1) забрать product и bundle из MoySklad (с пагинацией)
// 2) оставить только попадающие в уже синкнутые витринные категории
// 3) upsert в одну таблицу Product (Type=product|bundle)
// 4) удалить устаревшие раздельно по типам, чтобы не снести друг друга
// 5) пересчитать счетчики категорий (product + bundle вместе)
// 6) автосинк состава для всех витринных комплектов
//
// Порядок запуска — контракт: сначала sync/categories, потом sync/products.
// Агрегация счетчиков читает то дерево, которое лежит в зеркале сейчас.

import (
	"database/sql"

	"StrapiWithMoySklad/internal/database/model/product"
	"StrapiWithMoySklad/internal/moysklad"
	"StrapiWithMoySklad/internal/moysklad/models"
	"StrapiWithMoySklad/internal/syncstate"

	"github.com/pkg/errors"
)

type BundleItemsTotals struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type ProductSyncResult struct {
	Ok          bool              `json:"ok"`
	Total       int               `json:"total"`
	Bundles     int               `json:"bundles"`
	BundleItems BundleItemsTotals `json:"bundleItems"`
}

// SyncProducts выполняет полный синк товаров и комплектов под блокировкой.
func (s *Service) SyncProducts() (*ProductSyncResult, error) {

	s.logger.Info("Start SyncProducts")
	defer s.logger.Info("End SyncProducts")

	err := s.state.Acquire(syncstate.KIND_PRODUCTS)
	if err != nil {
		return nil, err
	}
	defer func() {
		err := s.state.Release(syncstate.KIND_PRODUCTS)
		if err != nil {
			s.logger.Errorf("failed in state.Release(products); %v", err)
		}
	}()

	err = s.state.MarkRunning(syncstate.KIND_PRODUCTS)
	if err != nil {
		return nil, errors.Wrap(err, "failed in state.MarkRunning(products)")
	}

	result, err := s.syncProducts()
	if err != nil {
		if markErr := s.state.MarkError(syncstate.KIND_PRODUCTS, err); markErr != nil {
			s.logger.Errorf("failed in state.MarkError(products); %v", markErr)
		}
		return nil, err
	}

	err = s.state.MarkOk(syncstate.KIND_PRODUCTS, syncstate.Totals{Products: result.Total})
	if err != nil {
		s.logger.Errorf("failed in state.MarkOk(products); %v", err)
	}

	return result, nil
}

func (s *Service) syncProducts() (*ProductSyncResult, error) {

	// Разрешенные категории — уже синкнутое витринное дерево
	categories, err := s.categories.SelectAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed in categories.SelectAll()")
	}

	categoryIDByMsID := make(map[string]int64, len(categories))
	for _, c := range categories {
		categoryIDByMsID[c.MoyskladID] = c.ID
	}

	all, err := s.api.GetProducts()
	if err != nil {
		return nil, errors.Wrap(err, "failed in api.GetProducts()")
	}

	allBundles, err := s.api.GetBundles()
	if err != nil {
		return nil, errors.Wrap(err, "failed in api.GetBundles()")
	}

	s.logger.Infof("SyncProducts: товаров из MoySklad: %d", len(all))
	s.logger.Infof("SyncProducts: комплектов из MoySklad: %d", len(allBundles))

	var keepMsIDs []string
	var keepBundleMsIDs []string

	// direct-счетчики для пересчета дерева, по типам раздельно
	directProducts := make(map[int64]int)
	directBundles := make(map[int64]int)

	for _, p := range all {
		categoryID, ok := s.resolveCategory(p.ProductFolder, categoryIDByMsID)
		if !ok {
			continue
		}

		keepMsIDs = append(keepMsIDs, p.ID)
		directProducts[categoryID]++

		err = s.products.Upsert(s.toProductRow(p, product.TYPE_PRODUCT, categoryID))
		if err != nil {
			return nil, errors.Wrapf(err, "failed in products.Upsert(%s)", p.ID)
		}
	}

	for _, b := range allBundles {
		categoryID, ok := s.resolveCategory(b.ProductFolder, categoryIDByMsID)
		if !ok {
			continue
		}

		keepBundleMsIDs = append(keepBundleMsIDs, b.ID)
		directBundles[categoryID]++

		err = s.products.Upsert(s.toProductRow(b, product.TYPE_BUNDLE, categoryID))
		if err != nil {
			return nil, errors.Wrapf(err, "failed in products.Upsert(%s)", b.ID)
		}
	}

	s.logger.Infof("SyncProducts: в витрине товаров: %d, комплектов: %d", len(keepMsIDs), len(keepBundleMsIDs))

	// Чистка раздельно по типам
	err = s.products.DeleteStaleByType(product.TYPE_PRODUCT, keepMsIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed in products.DeleteStaleByType(product)")
	}

	err = s.products.DeleteStaleByType(product.TYPE_BUNDLE, keepBundleMsIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed in products.DeleteStaleByType(bundle)")
	}

	// Пересчет счетчиков: product + bundle вместе
	err = s.recomputeCategoryCounts(directProducts, directBundles)
	if err != nil {
		return nil, errors.Wrap(err, "failed in recomputeCategoryCounts()")
	}

	// Автосинк состава для всех витринных комплектов.
	// Один проблемный комплект не валит весь синк — считаем его в failed.
	var totals BundleItemsTotals
	for _, bundleMsID := range keepBundleMsIDs {
		r, err := s.SyncBundleItems(bundleMsID)
		if err != nil {
			totals.Failed++
			s.logger.Errorf("SyncProducts: bundle items sync failed: bundle=%s error=%v", bundleMsID, err)
			continue
		}
		totals.Processed++
		totals.Created += r.Created
		totals.Skipped += r.Skipped
	}

	return &ProductSyncResult{
		Ok:          true,
		Total:       len(keepMsIDs),
		Bundles:     len(keepBundleMsIDs),
		BundleItems: totals,
	}, nil
}

// resolveCategory ищет локальную категорию по ссылке на папку MoySklad.
// false — товар вне витринного поддерева, пропускаем.
func (s *Service) resolveCategory(folder *models.MetaRef, categoryIDByMsID map[string]int64) (int64, bool) {

	if folder == nil {
		return 0, false
	}

	categoryMsID := moysklad.PickIDFromHref(folder.Meta.Href)
	if categoryMsID == "" {
		return 0, false
	}

	categoryID, ok := categoryIDByMsID[categoryMsID]
	return categoryID, ok
}

func (s *Service) toProductRow(p *models.Product, productType string, categoryID int64) *product.Product {

	row := &product.Product{
		MoyskladID:   p.ID,
		Type:         productType,
		Name:         p.Name,
		DisplayTitle: nullString(p.Name),
		Href:         nullString(p.Meta.Href),
		Code:         nullString(p.Code),
		Updated:      nullString(p.Updated),
		CategoryID:   categoryID,
		Uom:          sql.NullString{},
		Weight:       nullFloat(p.Weight),
		Volume:       nullFloat(p.Volume),
	}

	if p.Uom != nil {
		row.Uom = nullString(p.Uom.Name)
	}

	if price, ok := models.PriceByName(p.SalePrices, s.cfg.MOYSKLAD.PriceTypeSale); ok {
		row.Price = sql.NullInt64{Int64: price, Valid: true}
	}
	if priceOld, ok := models.PriceByName(p.SalePrices, s.cfg.MOYSKLAD.PriceTypeOld); ok {
		row.PriceOld = sql.NullInt64{Int64: priceOld, Valid: true}
	}

	return row
}

// SyncOneProductFromWebhook — upsert одного товара или комплекта по payload
// из fetchByHref. Категория должна быть уже в зеркале, иначе пропуск
// (нормальная ситуация: category sync еще не догнал).
func (s *Service) SyncOneProductFromWebhook(entity *models.Entity, productType string) error {

	moyskladID := entity.ID
	if moyskladID == "" {
		moyskladID = moysklad.PickIDFromHref(entity.Href())
	}
	if moyskladID == "" || entity.Href() == "" {
		s.logger.Warnf("[moysklad-product] webhook skipped: no moyskladId/href (type=%s)", productType)
		return nil
	}

	if entity.ProductFolder == nil {
		s.logger.Warnf("[moysklad-product] webhook skipped: no category href for %s=%s", productType, moyskladID)
		return nil
	}

	categoryMsID := moysklad.PickIDFromHref(entity.ProductFolder.Meta.Href)
	if categoryMsID == "" {
		s.logger.Warnf("[moysklad-product] webhook skipped: no category href for %s=%s", productType, moyskladID)
		return nil
	}

	category, err := s.categories.SelectByMoyskladID(categoryMsID)
	if err != nil {
		return errors.Wrap(err, "failed in categories.SelectByMoyskladID()")
	}
	if category == nil {
		s.logger.Warnf("[moysklad-product] webhook skipped: category not found msId=%s %s=%s", categoryMsID, productType, moyskladID)
		return nil
	}

	row := &product.Product{
		MoyskladID:   moyskladID,
		Type:         productType,
		Name:         entity.Name,
		DisplayTitle: nullString(entity.Name),
		Href:         nullString(entity.Href()),
		Code:         nullString(entity.Code),
		Updated:      nullString(entity.Updated),
		CategoryID:   category.ID,
		Weight:       nullFloat(entity.Weight),
		Volume:       nullFloat(entity.Volume),
	}

	if entity.Uom != nil {
		row.Uom = nullString(entity.Uom.Name)
	}
	if price, ok := models.PriceByName(entity.SalePrices, s.cfg.MOYSKLAD.PriceTypeSale); ok {
		row.Price = sql.NullInt64{Int64: price, Valid: true}
	}
	if priceOld, ok := models.PriceByName(entity.SalePrices, s.cfg.MOYSKLAD.PriceTypeOld); ok {
		row.PriceOld = sql.NullInt64{Int64: priceOld, Valid: true}
	}

	err = s.products.Upsert(row)
	if err != nil {
		return errors.Wrapf(err, "failed in products.Upsert(%s)", moyskladID)
	}

	s.logger.Infof("[moysklad-product] upserted %s: %s", productType, moyskladID)
	return nil
}

func (s *Service) DeleteProductFromWebhook(moyskladID string) error {

	err := s.products.DeleteByMoyskladID(moyskladID)
	if err != nil {
		return errors.Wrapf(err, "failed in products.DeleteByMoyskladID(%s)", moyskladID)
	}

	s.logger.Infof("[moysklad-product] deleted: %s", moyskladID)
	return nil
}
