package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ProductFolder — папка (категория) MoySklad.
// ProductFolder внутри — ссылка на родительскую папку, если она есть.
type ProductFolder struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	PathName      string   `json:"pathName,omitempty"`
	Meta          Meta     `json:"meta"`
	ProductFolder *MetaRef `json:"productFolder,omitempty"`
}

func (f ProductFolder) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.ID, validation.Required),
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Meta),
	)
}

// FullPath — полный путь папки: pathName + "/" + name (или просто name).
// Используется для фильтрации витринного поддерева без рекурсивных запросов.
func (f *ProductFolder) FullPath() string {
	if f.PathName != "" {
		return f.PathName + "/" + f.Name
	}
	return f.Name
}

type ProductFolderListResponse struct {
	Rows []ProductFolder `json:"rows"`
	Meta ListMeta        `json:"meta"`
}

func (r ProductFolderListResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Rows),
	)
}
