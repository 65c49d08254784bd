package moysklad

import (
	"fmt"
	"strings"
	"time"

	"StrapiWithMoySklad/internal/moysklad/models"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LIST_LIMIT — размер страницы для списочных методов MoySklad.
const LIST_LIMIT = 100

// COMPONENTS_LIMIT — состав комплекта забираем одной страницей.
const COMPONENTS_LIMIT = 1000

var (
	// ErrConfigMissing — не задан access token, без него API недоступен.
	ErrConfigMissing = errors.New("MOYSKLAD.AccessToken is not set")

	// ErrMalformedResponse — ответ MoySklad не прошел схемную проверку.
	// Непроверенный внешний JSON дальше границы клиента не уходит.
	ErrMalformedResponse = errors.New("unexpected MoySklad response shape")
)

// APIError — ответ MoySklad с не-2xx статусом.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("MoySklad API error %d: %s", e.StatusCode, e.Body)
}

type API interface {
	GetProductFolders() ([]*models.ProductFolder, error)
	GetProducts() ([]*models.Product, error)
	GetBundles() ([]*models.Product, error)
	GetVariants() ([]*models.Variant, error)
	GetBundleComponents(bundleMsID string) ([]*models.BundleComponent, error)
	FetchByHref(href string) (*models.Entity, error)
}

type moysklad struct {
	client *resty.Client
	logger *logrus.Logger
}

func NewAPI(url string, token string, logger *logrus.Logger) (API, error) {

	if token == "" {
		return nil, ErrConfigMissing
	}

	client := resty.New().
		SetBaseURL(url).
		SetAuthToken(token).
		SetHeader("Accept", "application/json;charset=utf-8").
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)

	return &moysklad{
		client: client,
		logger: logger,
	}, nil
}

// PickIDFromHref достает UUID сущности из meta.href (последний сегмент URL).
// Query и hash отрезаем, чтобы не словить баги сопоставления.
func PickIDFromHref(href string) string {
	if href == "" {
		return ""
	}

	clean := href
	if i := strings.IndexAny(clean, "?#"); i >= 0 {
		clean = clean[:i]
	}
	if clean == "" {
		return ""
	}

	parts := strings.Split(clean, "/")
	return parts[len(parts)-1]
}

func (m *moysklad) checkResponse(resp *resty.Response) error {
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}
	return nil
}

func (m *moysklad) GetProductFolders() ([]*models.ProductFolder, error) {

	m.logger.Debug("GetProductFolders:>Start")
	defer m.logger.Debug("GetProductFolders:>End")

	var all []*models.ProductFolder
	offset := 0

	for {
		var result models.ProductFolderListResponse
		resp, err := m.client.R().
			SetResult(&result).
			Get(fmt.Sprintf("/entity/productfolder?limit=%d&offset=%d", LIST_LIMIT, offset))
		if err != nil {
			return nil, errors.Wrap(err, "failed GET entity/productfolder")
		}
		if err := m.checkResponse(resp); err != nil {
			return nil, err
		}
		if err := result.Validate(); err != nil {
			return nil, errors.Wrapf(ErrMalformedResponse, "productfolder: %v", err)
		}

		for i := range result.Rows {
			all = append(all, &result.Rows[i])
		}

		if result.Meta.NextHref == "" {
			break
		}
		offset += LIST_LIMIT
	}

	m.logger.Debugf("GetProductFolders: получено папок %d", len(all))
	return all, nil
}

func (m *moysklad) getProductList(entity string) ([]*models.Product, error) {

	var all []*models.Product
	offset := 0

	for {
		var result models.ProductListResponse
		resp, err := m.client.R().
			SetResult(&result).
			Get(fmt.Sprintf("/entity/%s?limit=%d&offset=%d", entity, LIST_LIMIT, offset))
		if err != nil {
			return nil, errors.Wrapf(err, "failed GET entity/%s", entity)
		}
		if err := m.checkResponse(resp); err != nil {
			return nil, err
		}
		if err := result.Validate(); err != nil {
			return nil, errors.Wrapf(ErrMalformedResponse, "%s: %v", entity, err)
		}

		for i := range result.Rows {
			all = append(all, &result.Rows[i])
		}

		if result.Meta.NextHref == "" {
			break
		}
		offset += LIST_LIMIT
	}

	return all, nil
}

func (m *moysklad) GetProducts() ([]*models.Product, error) {

	m.logger.Debug("GetProducts:>Start")
	defer m.logger.Debug("GetProducts:>End")

	return m.getProductList("product")
}

func (m *moysklad) GetBundles() ([]*models.Product, error) {

	m.logger.Debug("GetBundles:>Start")
	defer m.logger.Debug("GetBundles:>End")

	return m.getProductList("bundle")
}

func (m *moysklad) GetVariants() ([]*models.Variant, error) {

	m.logger.Debug("GetVariants:>Start")
	defer m.logger.Debug("GetVariants:>End")

	var all []*models.Variant
	offset := 0

	for {
		var result models.VariantListResponse
		resp, err := m.client.R().
			SetResult(&result).
			Get(fmt.Sprintf("/entity/variant?limit=%d&offset=%d", LIST_LIMIT, offset))
		if err != nil {
			return nil, errors.Wrap(err, "failed GET entity/variant")
		}
		if err := m.checkResponse(resp); err != nil {
			return nil, err
		}
		if err := result.Validate(); err != nil {
			return nil, errors.Wrapf(ErrMalformedResponse, "variant: %v", err)
		}

		for i := range result.Rows {
			all = append(all, &result.Rows[i])
		}

		if result.Meta.NextHref == "" {
			break
		}
		offset += LIST_LIMIT
	}

	m.logger.Debugf("GetVariants: получено вариантов %d", len(all))
	return all, nil
}

func (m *moysklad) GetBundleComponents(bundleMsID string) ([]*models.BundleComponent, error) {

	m.logger.Debugf("GetBundleComponents:>Start bundle=%s", bundleMsID)
	defer m.logger.Debug("GetBundleComponents:>End")

	var result models.BundleComponentsResponse
	resp, err := m.client.R().
		SetResult(&result).
		Get(fmt.Sprintf("/entity/bundle/%s/components?limit=%d", bundleMsID, COMPONENTS_LIMIT))
	if err != nil {
		return nil, errors.Wrapf(err, "failed GET entity/bundle/%s/components", bundleMsID)
	}
	if err := m.checkResponse(resp); err != nil {
		return nil, err
	}

	components := make([]*models.BundleComponent, 0, len(result.Rows))
	for i := range result.Rows {
		components = append(components, &result.Rows[i])
	}

	return components, nil
}

// FetchByHref забирает одну сущность по meta.href из события вебхука.
// href приходит абсолютным, base URL клиента не участвует.
func (m *moysklad) FetchByHref(href string) (*models.Entity, error) {

	m.logger.Debugf("FetchByHref:>Start href=%s", href)
	defer m.logger.Debug("FetchByHref:>End")

	var entity models.Entity
	resp, err := m.client.R().
		SetResult(&entity).
		Get(href)
	if err != nil {
		return nil, errors.Wrapf(err, "failed GET %s", href)
	}
	if err := m.checkResponse(resp); err != nil {
		return nil, err
	}

	if entity.Href() == "" {
		return nil, errors.Wrap(ErrMalformedResponse, "entity without meta.href")
	}

	return &entity, nil
}
