package sync

// Синхронизация модификаций (variant):
// предполагает выполненный sync/products — variant без товара в зеркале
// пропускается (skippedNoProduct) и вычищается при чистке.

import (
	"database/sql"
	"encoding/json"

	"StrapiWithMoySklad/internal/database/model/variant"
	"StrapiWithMoySklad/internal/moysklad"
	"StrapiWithMoySklad/internal/moysklad/models"
	"StrapiWithMoySklad/internal/syncstate"

	"github.com/pkg/errors"
)

type VariantSyncResult struct {
	Ok               bool `json:"ok"`
	Total            int  `json:"total"`
	SkippedNoProduct int  `json:"skippedNoProduct"`
}

// SyncVariants выполняет полный синк модификаций под блокировкой.
func (s *Service) SyncVariants() (*VariantSyncResult, error) {

	s.logger.Info("Start SyncVariants")
	defer s.logger.Info("End SyncVariants")

	err := s.state.Acquire(syncstate.KIND_VARIANTS)
	if err != nil {
		return nil, err
	}
	defer func() {
		err := s.state.Release(syncstate.KIND_VARIANTS)
		if err != nil {
			s.logger.Errorf("failed in state.Release(variants); %v", err)
		}
	}()

	err = s.state.MarkRunning(syncstate.KIND_VARIANTS)
	if err != nil {
		return nil, errors.Wrap(err, "failed in state.MarkRunning(variants)")
	}

	result, err := s.syncVariants()
	if err != nil {
		if markErr := s.state.MarkError(syncstate.KIND_VARIANTS, err); markErr != nil {
			s.logger.Errorf("failed in state.MarkError(variants); %v", markErr)
		}
		return nil, err
	}

	err = s.state.MarkOk(syncstate.KIND_VARIANTS, syncstate.Totals{Variants: result.Total})
	if err != nil {
		s.logger.Errorf("failed in state.MarkOk(variants); %v", err)
	}

	return result, nil
}

func (s *Service) syncVariants() (*VariantSyncResult, error) {

	all, err := s.api.GetVariants()
	if err != nil {
		return nil, errors.Wrap(err, "failed in api.GetVariants()")
	}
	s.logger.Infof("SyncVariants: вариантов из MoySklad: %d", len(all))

	var keep []string
	skippedNoProduct := 0

	for _, v := range all {
		row, ok, err := s.toVariantRow(v)
		if err != nil {
			return nil, err
		}
		if !ok {
			skippedNoProduct++
			continue
		}

		keep = append(keep, v.ID)

		err = s.variants.Upsert(row)
		if err != nil {
			return nil, errors.Wrapf(err, "failed in variants.Upsert(%s)", v.ID)
		}
	}

	err = s.variants.DeleteNotIn(keep)
	if err != nil {
		return nil, errors.Wrap(err, "failed in variants.DeleteNotIn()")
	}

	s.logger.Infof("SyncVariants: в витрине вариантов: %d, пропущено без товара: %d", len(keep), skippedNoProduct)

	return &VariantSyncResult{
		Ok:               true,
		Total:            len(keep),
		SkippedNoProduct: skippedNoProduct,
	}, nil
}

func (s *Service) toVariantRow(v *models.Variant) (*variant.Variant, bool, error) {

	productMsID := moysklad.PickIDFromHref(v.Product.Meta.Href)
	if productMsID == "" {
		return nil, false, nil
	}

	owner, err := s.products.SelectByMoyskladID(productMsID)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed in products.SelectByMoyskladID()")
	}
	if owner == nil {
		return nil, false, nil
	}

	row := &variant.Variant{
		MoyskladID: v.ID,
		Name:       v.Name,
		Code:       nullString(v.Code),
		Href:       nullString(v.Meta.Href),
		ProductID:  owner.ID,
	}

	if price, ok := models.PriceByName(v.SalePrices, s.cfg.MOYSKLAD.PriceTypeSale); ok {
		row.Price = sql.NullInt64{Int64: price, Valid: true}
	}
	if priceOld, ok := models.PriceByName(v.SalePrices, s.cfg.MOYSKLAD.PriceTypeOld); ok {
		row.PriceOld = sql.NullInt64{Int64: priceOld, Valid: true}
	}

	if len(v.Characteristics) > 0 {
		data, err := json.Marshal(v.Characteristics)
		if err != nil {
			return nil, false, errors.Wrap(err, "failed json.Marshal(characteristics)")
		}
		row.Characteristics = nullString(string(data))
	}

	return row, true, nil
}

// SyncOneVariantFromWebhook — upsert одной модификации по payload из fetchByHref.
func (s *Service) SyncOneVariantFromWebhook(entity *models.Entity) error {

	moyskladID := entity.ID
	if moyskladID == "" {
		moyskladID = moysklad.PickIDFromHref(entity.Href())
	}
	if moyskladID == "" || entity.Href() == "" {
		s.logger.Warn("[moysklad-variant] webhook skipped: no moyskladId/href")
		return nil
	}

	if entity.Product == nil {
		s.logger.Warnf("[moysklad-variant] webhook skipped: no product href for variant=%s", moyskladID)
		return nil
	}

	v := &models.Variant{
		ID:              moyskladID,
		Name:            entity.Name,
		Code:            entity.Code,
		Meta:            models.Meta{Href: entity.Href()},
		Product:         *entity.Product,
		SalePrices:      entity.SalePrices,
		Characteristics: entity.Characteristics,
	}

	row, ok, err := s.toVariantRow(v)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warnf("[moysklad-variant] webhook skipped: product not found for variant=%s", moyskladID)
		return nil
	}

	err = s.variants.Upsert(row)
	if err != nil {
		return errors.Wrapf(err, "failed in variants.Upsert(%s)", moyskladID)
	}

	s.logger.Infof("[moysklad-variant] upserted: %s", moyskladID)
	return nil
}

func (s *Service) DeleteVariantFromWebhook(moyskladID string) error {

	err := s.variants.DeleteByMoyskladID(moyskladID)
	if err != nil {
		return errors.Wrapf(err, "failed in variants.DeleteByMoyskladID(%s)", moyskladID)
	}

	s.logger.Infof("[moysklad-variant] deleted: %s", moyskladID)
	return nil
}
