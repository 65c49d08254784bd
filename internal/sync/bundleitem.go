package sync

// Синк состава ОДНОГО комплекта: полная перезапись строк BundleItem —
// удаляем старые, создаем новые. Диффинга нет намеренно.

import (
	"math"
	"strconv"

	"StrapiWithMoySklad/internal/database/model/bundleitem"
	"StrapiWithMoySklad/internal/database/model/product"
	"StrapiWithMoySklad/internal/moysklad"

	"github.com/pkg/errors"
)

type BundleItemsSyncResult struct {
	Ok         bool   `json:"ok"`
	BundleMsID string `json:"bundleMsId"`
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
}

// SyncBundleItems пересобирает состав комплекта по MoySklad ID.
// Компоненты без синкнутого товара в зеркале пропускаются (не падаем:
// товар мог еще не доехать), это skip, а не ошибка.
func (s *Service) SyncBundleItems(bundleMsID string) (*BundleItemsSyncResult, error) {

	s.logger.Debugf("Start SyncBundleItems bundle=%s", bundleMsID)
	defer s.logger.Debug("End SyncBundleItems")

	bundle, err := s.products.SelectByMoyskladID(bundleMsID)
	if err != nil {
		return nil, errors.Wrap(err, "failed in products.SelectByMoyskladID()")
	}
	if bundle == nil {
		return nil, errors.Errorf("bundle not found by moyskladId=%s", bundleMsID)
	}

	// помогает ловить ошибки данных, не строго обязательно
	if bundle.Type != product.TYPE_BUNDLE {
		s.logger.Warnf("SyncBundleItems: entity type is %q, expected %q", bundle.Type, product.TYPE_BUNDLE)
	}

	rows, err := s.api.GetBundleComponents(bundleMsID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed in api.GetBundleComponents(%s)", bundleMsID)
	}

	err = s.bundleItems.DeleteByBundleID(bundle.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed in bundleItems.DeleteByBundleID(%d)", bundle.ID)
	}

	created := 0
	skipped := 0

	for _, row := range rows {
		if row.Assortment == nil {
			skipped++
			continue
		}

		componentMsID := moysklad.PickIDFromHref(row.Assortment.Meta.Href)
		if componentMsID == "" {
			skipped++
			continue
		}

		component, err := s.products.SelectByMoyskladID(componentMsID)
		if err != nil {
			return nil, errors.Wrap(err, "failed in products.SelectByMoyskladID()")
		}
		if component == nil {
			skipped++
			continue
		}

		qty := row.Quantity
		if math.IsNaN(qty) || math.IsInf(qty, 0) {
			qty = 1
		}

		// Читабельный title для админки: "<Название товара> × <кол-во>"
		title := component.Name + " × " + strconv.FormatFloat(qty, 'f', -1, 64)

		err = s.bundleItems.Insert(&bundleitem.BundleItem{
			BundleID:           bundle.ID,
			ComponentProductID: component.ID,
			Quantity:           qty,
			Title:              title,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed in bundleItems.Insert()")
		}

		created++
	}

	s.logger.Infof("SyncBundleItems: bundle=%s created=%d skipped=%d", bundleMsID, created, skipped)

	return &BundleItemsSyncResult{
		Ok:         true,
		BundleMsID: bundleMsID,
		Created:    created,
		Skipped:    skipped,
	}, nil
}
