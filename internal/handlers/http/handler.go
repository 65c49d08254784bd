package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"StrapiWithMoySklad/internal/config"
	"StrapiWithMoySklad/internal/database/model/category"
	"StrapiWithMoySklad/internal/database/model/product"
	"StrapiWithMoySklad/internal/sync"
	"StrapiWithMoySklad/internal/syncstate"
	"StrapiWithMoySklad/internal/version"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

// Максимальный и дефолтный размер страницы каталога.
const (
	PRODUCTS_LIMIT_DEFAULT = 24
	PRODUCTS_LIMIT_MAX     = 100
)

// Handler — HTTP-поверхность сервиса: триггеры синка (под секретом),
// публичный статус и публичные read-only ручки каталога для фронта.
type Handler struct {
	cfg         *config.Config
	logger      *logrus.Logger
	syncService *sync.Service
	state       *syncstate.Manager
	categories  *category.Store
	products    *product.Store
}

func NewHandler(
	cfg *config.Config,
	logger *logrus.Logger,
	syncService *sync.Service,
	state *syncstate.Manager,
	categories *category.Store,
	products *product.Store,
) *Handler {
	return &Handler{
		cfg:         cfg,
		logger:      logger,
		syncService: syncService,
		state:       state,
		categories:  categories,
		products:    products,
	}
}

func (h *Handler) Register(router *httprouter.Router) {
	router.GET("/", h.HandlerRoot)

	router.GET("/api/moysklad/sync/status", h.HandlerSyncStatus)
	router.POST("/api/moysklad/sync/categories", h.HandlerSyncCategories)
	router.POST("/api/moysklad/sync/products", h.HandlerSyncProducts)
	router.POST("/api/moysklad/sync/variants", h.HandlerSyncVariants)
	router.POST("/api/moysklad/sync/bundle-items", h.HandlerSyncBundleItems)

	router.GET("/api/catalog/categories-flat", h.HandlerCategoriesFlat)
	router.GET("/api/catalog/products", h.HandlerCatalogProducts)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.logger.Errorf("failed to send response, error: %v", err)
	}
}

// checkWebhookSecret сверяет X-Webhook-Secret. Пустой секрет в конфиге
// означает "триггеры закрыты": не пускаем никого.
func (h *Handler) checkWebhookSecret(r *http.Request) bool {
	if h.cfg.MOYSKLAD.WebhookSecret == "" {
		return false
	}
	return r.Header.Get("X-Webhook-Secret") == h.cfg.MOYSKLAD.WebhookSecret
}

func (h *Handler) HandlerRoot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	v := version.GetVersion()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "version": v.String()})
}

// GET /api/moysklad/sync/status
// Публичный статус синка (без секретов).
func (h *Handler) HandlerSyncStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {

	state, err := h.state.Get()
	if err != nil {
		h.logger.Errorf("failed in state.Get(); %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "state": state})
}

// handleSyncTrigger — общий каркас для ручного запуска синка:
// 401 на плохом секрете, 409 на занятой блокировке, 500 на сбое.
func (h *Handler) handleSyncTrigger(w http.ResponseWriter, r *http.Request, run func() (interface{}, error)) {

	if !h.checkWebhookSecret(r) {
		h.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"ok": false})
		return
	}

	result, err := run()
	if err != nil {
		if syncstate.IsLockHeld(err) {
			h.writeJSON(w, http.StatusConflict, map[string]interface{}{"ok": false, "error": "sync_already_running"})
			return
		}

		h.logger.Error(err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "sync_failed"})
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// POST /api/moysklad/sync/categories
func (h *Handler) HandlerSyncCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.handleSyncTrigger(w, r, func() (interface{}, error) {
		return h.syncService.SyncCategories()
	})
}

// POST /api/moysklad/sync/products
func (h *Handler) HandlerSyncProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.handleSyncTrigger(w, r, func() (interface{}, error) {
		return h.syncService.SyncProducts()
	})
}

// POST /api/moysklad/sync/variants
func (h *Handler) HandlerSyncVariants(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.handleSyncTrigger(w, r, func() (interface{}, error) {
		return h.syncService.SyncVariants()
	})
}

// POST /api/moysklad/sync/bundle-items
// body: {"bundleMsId": "..."} — ресинк состава одного комплекта.
func (h *Handler) HandlerSyncBundleItems(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {

	if !h.checkWebhookSecret(r) {
		h.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"ok": false})
		return
	}

	var body struct {
		BundleMsID string `json:"bundleMsId"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil || body.BundleMsID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "bundleMsId is required"})
		return
	}

	result, err := h.syncService.SyncBundleItems(body.BundleMsID)
	if err != nil {
		h.logger.Error(err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "sync_failed"})
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type FlatCategory struct {
	ID            string  `json:"id"`
	Slug          string  `json:"slug"`
	Name          string  `json:"name"`
	ProductsCount int     `json:"productsCount"`
	ParentID      *string `json:"parentId"`
}

func toSafeCount(value int) int {
	if value <= 0 {
		return 0
	}
	return value
}

// GET /api/catalog/categories-flat
// Плоский список витринных категорий: дерево собирает фронт по parentId.
// В зеркале после sync/categories лежит только витрина, фильтровать нечего.
func (h *Handler) HandlerCategoriesFlat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {

	rows, err := h.categories.SelectAll()
	if err != nil {
		h.logger.Errorf("failed in categories.SelectAll(); %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false})
		return
	}

	// id и parentId отдаем строками, чтобы фронт не смешивал number/string
	flat := make([]FlatCategory, 0, len(rows))
	for _, c := range rows {
		item := FlatCategory{
			ID:            strconv.FormatInt(c.ID, 10),
			Slug:          c.Slug,
			Name:          c.Name,
			ProductsCount: toSafeCount(c.ProductsCount),
		}
		if c.ParentID.Valid {
			parentID := strconv.FormatInt(c.ParentID.Int64, 10)
			item.ParentID = &parentID
		}
		flat = append(flat, item)
	}

	h.writeJSON(w, http.StatusOK, flat)
}

type CatalogProduct struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Code     string   `json:"code,omitempty"`
	Price    *int64   `json:"price"`
	PriceOld *int64   `json:"priceOld"`
	Uom      string   `json:"uom,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Volume   *float64 `json:"volume,omitempty"`
}

// GET /api/catalog/products?categorySlug=&limit=&offset=
// Товары категории и всех ее потомков, пагинация limit/offset.
func (h *Handler) HandlerCatalogProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {

	slug := r.URL.Query().Get("categorySlug")
	if slug == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "categorySlug is required"})
		return
	}

	root, err := h.categories.SelectBySlug(slug)
	if err != nil {
		h.logger.Errorf("failed in categories.SelectBySlug(); %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false})
		return
	}
	if root == nil {
		h.writeJSON(w, http.StatusNotFound, map[string]interface{}{"ok": false, "error": "category_not_found"})
		return
	}

	limit := parseIntQuery(r, "limit", PRODUCTS_LIMIT_DEFAULT)
	if limit < 1 {
		limit = 1
	}
	if limit > PRODUCTS_LIMIT_MAX {
		limit = PRODUCTS_LIMIT_MAX
	}

	offset := parseIntQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	categoryIDs, err := h.subtreeIDs(root.ID)
	if err != nil {
		h.logger.Errorf("failed in subtreeIDs(); %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false})
		return
	}

	total, err := h.products.CountByCategoryIDs(categoryIDs)
	if err != nil {
		h.logger.Errorf("failed in products.CountByCategoryIDs(); %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false})
		return
	}

	rows, err := h.products.SelectByCategoryIDs(categoryIDs, limit, offset)
	if err != nil {
		h.logger.Errorf("failed in products.SelectByCategoryIDs(); %v", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false})
		return
	}

	items := make([]CatalogProduct, 0, len(rows))
	for _, p := range rows {
		item := CatalogProduct{
			ID:   strconv.FormatInt(p.ID, 10),
			Type: p.Type,
			Name: p.Name,
		}
		if p.Code.Valid {
			item.Code = p.Code.String
		}
		if p.Price.Valid {
			price := p.Price.Int64
			item.Price = &price
		}
		if p.PriceOld.Valid {
			priceOld := p.PriceOld.Int64
			item.PriceOld = &priceOld
		}
		if p.Uom.Valid {
			item.Uom = p.Uom.String
		}
		if p.Weight.Valid {
			weight := p.Weight.Float64
			item.Weight = &weight
		}
		if p.Volume.Valid {
			volume := p.Volume.Float64
			item.Volume = &volume
		}
		items = append(items, item)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"items":   items,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
		"hasMore": offset+len(items) < total,
	})
}

// subtreeIDs собирает ID категории и всех ее потомков обходом по parent-указателям.
func (h *Handler) subtreeIDs(rootID int64) ([]int64, error) {

	all, err := h.categories.SelectAll()
	if err != nil {
		return nil, err
	}

	children := make(map[int64][]int64)
	for _, c := range all {
		if c.ParentID.Valid {
			children[c.ParentID.Int64] = append(children[c.ParentID.Int64], c.ID)
		}
	}

	ids := []int64{rootID}
	queue := []int64{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, childID := range children[current] {
			ids = append(ids, childID)
			queue = append(queue, childID)
		}
	}

	return ids, nil
}

func parseIntQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
