package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Meta — служебный блок MoySklad: ссылка на сущность и ее тип.
type Meta struct {
	Href      string `json:"href"`
	Type      string `json:"type,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

func (m Meta) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Href, validation.Required),
	)
}

// MetaRef — ссылка на другую сущность (родительская папка, товар и т.п.).
type MetaRef struct {
	Meta Meta `json:"meta"`
}

// ListMeta — пагинация списочных ответов. Наличие nextHref означает
// "есть следующая страница".
type ListMeta struct {
	Size     int    `json:"size,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	NextHref string `json:"nextHref,omitempty"`
}

// SalePrice — цена из многотиповой salePrices. Value приходит в копейках.
type SalePrice struct {
	Value     float64 `json:"value"`
	PriceType *struct {
		Name string `json:"name"`
	} `json:"priceType,omitempty"`
}

// PriceByName ищет цену по точному имени типа и переводит копейки в рубли
// (целым числом, с округлением). Второй результат false — тип цены не найден.
func PriceByName(prices []SalePrice, name string) (int64, bool) {
	for _, p := range prices {
		if p.PriceType != nil && p.PriceType.Name == name {
			return int64(p.Value/100 + 0.5), true
		}
	}
	return 0, false
}

type Uom struct {
	Name string `json:"name,omitempty"`
}

type Characteristic struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
