package moysklad

import (
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, handler http.Handler) API {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	api, err := NewAPI(server.URL, "test-token", logger)
	require.NoError(t, err)
	return api
}

func TestNewAPIWithoutToken(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	_, err := NewAPI("https://api.moysklad.ru/api/remap/1.2", "", logger)
	require.Error(t, err)
	assert.Equal(t, ErrConfigMissing, err)
}

func TestPickIDFromHref(t *testing.T) {
	cases := []struct {
		href string
		want string
	}{
		{"https://api.moysklad.ru/api/remap/1.2/entity/productfolder/abc-123", "abc-123"},
		{"https://api.moysklad.ru/api/remap/1.2/entity/product/abc?expand=uom", "abc"},
		{"https://api.moysklad.ru/api/remap/1.2/entity/product/abc#frag", "abc"},
		{"abc", "abc"},
		{"", ""},
		{"?x=1", ""},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, PickIDFromHref(c.href), "href=%q", c.href)
	}
}

func TestGetProductFoldersPagination(t *testing.T) {
	var requests []string

	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RequestURI())
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		offset := r.URL.Query().Get("offset")
		if offset == "0" {
			// первая страница с nextHref — клиент обязан сходить за второй
			fmt.Fprint(w, `{
				"meta": {"size": 101, "limit": 100, "offset": 0, "nextHref": "next"},
				"rows": [{"id": "f1", "name": "Витрина", "meta": {"href": "h1"}}]
			}`)
			return
		}
		fmt.Fprint(w, `{
			"meta": {"size": 101, "limit": 100, "offset": 100},
			"rows": [{"id": "f2", "name": "Чай", "pathName": "Витрина", "meta": {"href": "h2"}}]
		}`)
	}))

	folders, err := api.GetProductFolders()
	require.NoError(t, err)

	require.Len(t, folders, 2)
	assert.Equal(t, "f1", folders[0].ID)
	assert.Equal(t, "f2", folders[1].ID)
	assert.Equal(t, "Витрина/Чай", folders[1].FullPath())

	require.Len(t, requests, 2)
	assert.Contains(t, requests[0], "offset=0")
	assert.Contains(t, requests[1], "offset=100")
}

func TestGetProductFoldersAPIError(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errors":[{"error":"auth"}]}`)
	}))

	_, err := api.GetProductFolders()
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "auth")
}

func TestGetProductFoldersMalformedResponse(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// папка без id не проходит схемную проверку
		fmt.Fprint(w, `{"meta": {}, "rows": [{"name": "Витрина", "meta": {"href": "h1"}}]}`)
	}))

	_, err := api.GetProductFolders()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestGetProductsAndBundlesShareShape(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"meta": {},
			"rows": [{
				"id": "e1", "name": "Позиция", "code": "C1",
				"meta": {"href": "%s"},
				"salePrices": [{"value": 250050, "priceType": {"name": "Цена с сайта"}}],
				"uom": {"name": "шт"},
				"weight": 0.2
			}]
		}`, "href-1")
	}))

	products, err := api.GetProducts()
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "C1", products[0].Code)
	require.NotNil(t, products[0].Uom)
	assert.Equal(t, "шт", products[0].Uom.Name)

	bundles, err := api.GetBundles()
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, "e1", bundles[0].ID)
}

func TestGetVariants(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"meta": {},
			"rows": [{
				"id": "v1", "name": "Чай 100г",
				"meta": {"href": "hv1"},
				"product": {"meta": {"href": "hp1"}},
				"characteristics": [{"name": "Вес", "value": "100г"}]
			}]
		}`)
	}))

	variants, err := api.GetVariants()
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "hp1", variants[0].Product.Meta.Href)
	require.Len(t, variants[0].Characteristics, 1)
	assert.Equal(t, "Вес", variants[0].Characteristics[0].Name)
}

func TestGetBundleComponents(t *testing.T) {
	api := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/entity/bundle/b1/components")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"meta": {},
			"rows": [
				{"quantity": 2, "assortment": {"meta": {"href": "hp1"}}},
				{"quantity": 0.5}
			]
		}`)
	}))

	components, err := api.GetBundleComponents("b1")
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Equal(t, float64(2), components[0].Quantity)
	require.NotNil(t, components[0].Assortment)
	assert.Nil(t, components[1].Assortment)
}

func TestFetchByHref(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/entity/product/p1" {
			fmt.Fprintf(w, `{"id": "p1", "name": "Чай", "meta": {"href": "%s/entity/product/p1"}}`, server.URL)
			return
		}
		// сущность без meta.href не проходит проверку формы
		fmt.Fprint(w, `{"id": "broken"}`)
	}))
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)

	api, err := NewAPI(server.URL, "test-token", logger)
	require.NoError(t, err)

	entity, err := api.FetchByHref(server.URL + "/entity/product/p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", entity.ID)
	assert.Equal(t, "Чай", entity.Name)

	_, err = api.FetchByHref(server.URL + "/entity/product/broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}
