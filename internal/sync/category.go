package sync

// Синхронизация дерева категорий:
// 1) забрать все productfolder из MoySklad (с пагинацией)
// 2) оставить только витринное поддерево от MOYSKLAD.RootName
// 3) первый проход — upsert категорий без parent
// 4) второй проход — parent-связи (дерево любой глубины)
// 5) удалить категории вне поддерева
//
// Счетчики productsCount здесь НЕ трогаем: их пересчитывает только
// sync/products, иначе будет двойной пересчет и случайные перетирания.

import (
	"fmt"
	"strings"

	"StrapiWithMoySklad/internal/database/model/category"
	"StrapiWithMoySklad/internal/moysklad"
	"StrapiWithMoySklad/internal/moysklad/models"
	"StrapiWithMoySklad/internal/syncstate"

	"github.com/pkg/errors"
)

// RootNotFoundError — витринный корень не найден среди папок MoySklad.
type RootNotFoundError struct {
	Root string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("root folder %q not found in MoySklad productfolder", e.Root)
}

// MakeStableSlug строит стабильный slug из MoySklad ID.
// Имя не используем, поэтому URL не ломается при переименовании.
func MakeStableSlug(moyskladID string) string {
	id := moyskladID
	if len(id) > 8 {
		id = id[:8]
	}
	return "ms-" + id
}

type CategorySyncResult struct {
	Ok    bool   `json:"ok"`
	Total int    `json:"total"`
	Root  string `json:"root"`
}

// SyncCategories выполняет полный синк дерева категорий под блокировкой.
func (s *Service) SyncCategories() (*CategorySyncResult, error) {

	s.logger.Info("Start SyncCategories")
	defer s.logger.Info("End SyncCategories")

	err := s.state.Acquire(syncstate.KIND_CATEGORIES)
	if err != nil {
		return nil, err
	}
	defer func() {
		err := s.state.Release(syncstate.KIND_CATEGORIES)
		if err != nil {
			s.logger.Errorf("failed in state.Release(categories); %v", err)
		}
	}()

	err = s.state.MarkRunning(syncstate.KIND_CATEGORIES)
	if err != nil {
		return nil, errors.Wrap(err, "failed in state.MarkRunning(categories)")
	}

	result, err := s.syncCategories()
	if err != nil {
		if markErr := s.state.MarkError(syncstate.KIND_CATEGORIES, err); markErr != nil {
			s.logger.Errorf("failed in state.MarkError(categories); %v", markErr)
		}
		return nil, err
	}

	err = s.state.MarkOk(syncstate.KIND_CATEGORIES, syncstate.Totals{Categories: result.Total})
	if err != nil {
		s.logger.Errorf("failed in state.MarkOk(categories); %v", err)
	}

	return result, nil
}

func (s *Service) syncCategories() (*CategorySyncResult, error) {

	folders, err := s.api.GetProductFolders()
	if err != nil {
		return nil, errors.Wrap(err, "failed in api.GetProductFolders()")
	}
	s.logger.Infof("SyncCategories: получено папок из MoySklad: %d", len(folders))

	// Ищем витринный корень по точному имени
	var root *models.ProductFolder
	for _, f := range folders {
		if f.Name == s.cfg.MOYSKLAD.RootName {
			root = f
			break
		}
	}
	if root == nil {
		return nil, &RootNotFoundError{Root: s.cfg.MOYSKLAD.RootName}
	}

	// Поддерево определяется по полному пути: корень + все, чей путь
	// начинается с rootPath + "/". Рекурсивные запросы к API не нужны.
	rootPath := root.FullPath()

	var filtered []*models.ProductFolder
	for _, f := range folders {
		full := f.FullPath()
		if full == rootPath || strings.HasPrefix(full, rootPath+"/") {
			filtered = append(filtered, f)
		}
	}
	s.logger.Infof("SyncCategories: в поддереве %q папок: %d", rootPath, len(filtered))

	// Первый проход: upsert без parent. Slug назначается хранилищем только
	// при вставке, на повторных синках не перегенерируется.
	for _, f := range filtered {
		err = s.categories.Upsert(&category.Category{
			MoyskladID: f.ID,
			Name:       f.Name,
			PathName:   nullString(f.PathName),
			Href:       nullString(f.Meta.Href),
			Slug:       MakeStableSlug(f.ID),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed in categories.Upsert(%s)", f.ID)
		}
	}

	// Второй проход: parent-связи. Родитель должен сам входить в поддерево,
	// иначе не связываем (защита от ссылок на отрезанные фильтром узлы).
	retained := make(map[string]bool, len(filtered))
	for _, f := range filtered {
		retained[f.ID] = true
	}

	for _, f := range filtered {
		if f.ProductFolder == nil {
			continue
		}

		parentMsID := moysklad.PickIDFromHref(f.ProductFolder.Meta.Href)
		if parentMsID == "" {
			continue
		}
		if !retained[parentMsID] {
			continue
		}

		me, err := s.categories.SelectByMoyskladID(f.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed in categories.SelectByMoyskladID()")
		}
		parent, err := s.categories.SelectByMoyskladID(parentMsID)
		if err != nil {
			return nil, errors.Wrap(err, "failed in categories.SelectByMoyskladID()")
		}
		if me == nil || parent == nil {
			continue
		}

		err = s.categories.SetParent(me.ID, nullInt64(parent.ID))
		if err != nil {
			return nil, errors.Wrapf(err, "failed in categories.SetParent(%d)", me.ID)
		}
	}

	// Чистка: удаляем категории вне поддерева
	keep := make([]string, 0, len(filtered))
	for _, f := range filtered {
		keep = append(keep, f.ID)
	}

	err = s.categories.DeleteNotIn(keep)
	if err != nil {
		return nil, errors.Wrap(err, "failed in categories.DeleteNotIn()")
	}

	return &CategorySyncResult{
		Ok:    true,
		Total: len(filtered),
		Root:  rootPath,
	}, nil
}

// SyncOneCategoryFromWebhook — upsert одной категории по payload из fetchByHref.
// Parent проставляем только если родитель уже есть в зеркале.
func (s *Service) SyncOneCategoryFromWebhook(entity *models.Entity) error {

	moyskladID := entity.ID
	if moyskladID == "" {
		moyskladID = moysklad.PickIDFromHref(entity.Href())
	}
	if moyskladID == "" || entity.Href() == "" {
		s.logger.Warn("[moysklad-category] webhook skipped: no moyskladId/href")
		return nil
	}

	err := s.categories.Upsert(&category.Category{
		MoyskladID: moyskladID,
		Name:       entity.Name,
		PathName:   nullString(entity.PathName),
		Href:       nullString(entity.Href()),
		Slug:       MakeStableSlug(moyskladID),
	})
	if err != nil {
		return errors.Wrapf(err, "failed in categories.Upsert(%s)", moyskladID)
	}

	if entity.ProductFolder != nil {
		parentMsID := moysklad.PickIDFromHref(entity.ProductFolder.Meta.Href)
		if parentMsID != "" {
			parent, err := s.categories.SelectByMoyskladID(parentMsID)
			if err != nil {
				return errors.Wrap(err, "failed in categories.SelectByMoyskladID()")
			}
			if parent != nil {
				me, err := s.categories.SelectByMoyskladID(moyskladID)
				if err != nil {
					return errors.Wrap(err, "failed in categories.SelectByMoyskladID()")
				}
				if me != nil {
					err = s.categories.SetParent(me.ID, nullInt64(parent.ID))
					if err != nil {
						return errors.Wrapf(err, "failed in categories.SetParent(%d)", me.ID)
					}
				}
			}
		}
	}

	s.logger.Infof("[moysklad-category] upserted: %s", moyskladID)
	return nil
}

func (s *Service) DeleteCategoryFromWebhook(moyskladID string) error {

	err := s.categories.DeleteByMoyskladID(moyskladID)
	if err != nil {
		return errors.Wrapf(err, "failed in categories.DeleteByMoyskladID(%s)", moyskladID)
	}

	s.logger.Infof("[moysklad-category] deleted: %s", moyskladID)
	return nil
}
