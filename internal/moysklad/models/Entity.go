package models

// Entity — "нестрогая" сущность из fetchByHref для вебхуков:
// id обычно есть, но подстраховываемся, meta.href есть практически всегда.
// Поля покрывают productfolder, product, bundle и variant разом.
type Entity struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Code     string `json:"code,omitempty"`
	Updated  string `json:"updated,omitempty"`
	PathName string `json:"pathName,omitempty"`

	Meta          *Meta    `json:"meta,omitempty"`
	ProductFolder *MetaRef `json:"productFolder,omitempty"`
	Product       *MetaRef `json:"product,omitempty"`

	SalePrices      []SalePrice      `json:"salePrices,omitempty"`
	Uom             *Uom             `json:"uom,omitempty"`
	Weight          *float64         `json:"weight,omitempty"`
	Volume          *float64         `json:"volume,omitempty"`
	Characteristics []Characteristic `json:"characteristics,omitempty"`
}

// Href возвращает ссылку на сущность, если она есть.
func (e *Entity) Href() string {
	if e.Meta == nil {
		return ""
	}
	return e.Meta.Href
}
