package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Product — товар MoySklad. Комплекты (entity/bundle) имеют ту же форму
// и декодируются в этот же тип; различие только в endpoint и в Type
// локального зеркала.
type Product struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code,omitempty"`
	Updated string `json:"updated,omitempty"`

	Meta          Meta     `json:"meta"`
	ProductFolder *MetaRef `json:"productFolder,omitempty"`

	SalePrices []SalePrice `json:"salePrices,omitempty"`

	Uom    *Uom     `json:"uom,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
}

func (p Product) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Meta),
	)
}

type ProductListResponse struct {
	Rows []Product `json:"rows"`
	Meta ListMeta  `json:"meta"`
}

func (r ProductListResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Rows),
	)
}

// BundleComponent — строка состава комплекта: ссылка на товар + количество.
type BundleComponent struct {
	Quantity   float64  `json:"quantity"`
	Assortment *MetaRef `json:"assortment,omitempty"`
}

type BundleComponentsResponse struct {
	Rows []BundleComponent `json:"rows"`
	Meta ListMeta          `json:"meta"`
}
