package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Variant — модификация товара MoySklad. Product — ссылка на владеющий товар.
type Variant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Code    string `json:"code,omitempty"`
	Updated string `json:"updated,omitempty"`

	Meta    Meta    `json:"meta"`
	Product MetaRef `json:"product"`

	SalePrices      []SalePrice      `json:"salePrices,omitempty"`
	Characteristics []Characteristic `json:"characteristics,omitempty"`
}

func (v Variant) Validate() error {
	return validation.ValidateStruct(&v,
		validation.Field(&v.ID, validation.Required),
		validation.Field(&v.Name, validation.Required),
		validation.Field(&v.Meta),
	)
}

type VariantListResponse struct {
	Rows []Variant `json:"rows"`
	Meta ListMeta  `json:"meta"`
}

func (r VariantListResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Rows),
	)
}
