package sync

// Пересчет счетчиков категорий "по дереву":
// direct — сколько сущностей привязано к категории напрямую,
// total — direct + сумма total всех дочерних.
// Товары и комплекты считаются раздельно и складываются при записи.

import (
	"StrapiWithMoySklad/internal/database/model/category"

	"github.com/pkg/errors"
)

// countIndex — индекс parent -> children, строится одним проходом по всем
// категориям. Дерево ацикличное по построению, поэтому мемоизированный
// обход завершается и считает каждый узел ровно один раз.
type countIndex struct {
	ids      []int64
	children map[int64][]int64
}

func newCountIndex(categories []*category.Category) *countIndex {
	index := &countIndex{
		ids:      make([]int64, 0, len(categories)),
		children: make(map[int64][]int64),
	}

	for _, c := range categories {
		index.ids = append(index.ids, c.ID)
		if c.ParentID.Valid {
			parentID := c.ParentID.Int64
			index.children[parentID] = append(index.children[parentID], c.ID)
		}
	}

	return index
}

// totals считает total(node) = direct(node) + Σ total(child).
// Отсутствующий direct — это 0; отрицательных и дробных значений не бывает.
func (index *countIndex) totals(direct map[int64]int) map[int64]int {

	memo := make(map[int64]int, len(index.ids))

	var walk func(id int64) int
	walk = func(id int64) int {
		if total, ok := memo[id]; ok {
			return total
		}

		total := direct[id]
		for _, childID := range index.children[id] {
			total += walk(childID)
		}

		memo[id] = total
		return total
	}

	for _, id := range index.ids {
		walk(id)
	}

	return memo
}

// recomputeCategoryCounts перечитывает дерево и записывает каждой категории
// productsCount = totalProducts + totalBundles, плюс диагностические
// direct/total. Запускается только после того, как синк товаров собрал
// полную карту direct-счетчиков текущего прохода.
func (s *Service) recomputeCategoryCounts(directProducts map[int64]int, directBundles map[int64]int) error {

	s.logger.Debug("Start recomputeCategoryCounts")
	defer s.logger.Debug("End recomputeCategoryCounts")

	categories, err := s.categories.SelectAll()
	if err != nil {
		return errors.Wrap(err, "failed in categories.SelectAll()")
	}

	index := newCountIndex(categories)
	totalProducts := index.totals(directProducts)
	totalBundles := index.totals(directBundles)

	for _, c := range categories {
		directAll := directProducts[c.ID] + directBundles[c.ID]
		totalAll := totalProducts[c.ID] + totalBundles[c.ID]

		err = s.categories.UpdateCounts(c.ID, directAll, totalAll)
		if err != nil {
			return errors.Wrapf(err, "failed in categories.UpdateCounts(%d)", c.ID)
		}
	}

	return nil
}
