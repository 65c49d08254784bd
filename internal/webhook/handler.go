package webhook

import (
	"encoding/json"
	"net/http"

	"StrapiWithMoySklad/internal/config"
	"StrapiWithMoySklad/internal/database/model/product"
	"StrapiWithMoySklad/internal/moysklad"
	"StrapiWithMoySklad/internal/sync"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
)

// Типы сущностей и действия в событиях вебхука МойСклад.
const (
	ENTITY_PRODUCTFOLDER = "productfolder"
	ENTITY_PRODUCT       = "product"
	ENTITY_BUNDLE        = "bundle"
	ENTITY_VARIANT       = "variant"

	ACTION_CREATE = "CREATE"
	ACTION_UPDATE = "UPDATE"
	ACTION_DELETE = "DELETE"
)

// Event — одно событие из тела вебхука МойСклад.
type Event struct {
	Action string `json:"action"`
	Meta   struct {
		Href string `json:"href"`
		Type string `json:"type"`
	} `json:"meta"`
}

type webhookBody struct {
	Events []Event `json:"events"`
}

// Handler принимает вебхуки МойСклад и применяет события к зеркалу.
// МойСклад ждет быстрый ответ, поэтому обработка уходит в фоновую горутину.
type Handler struct {
	cfg         *config.Config
	logger      *logrus.Logger
	api         moysklad.API
	syncService *sync.Service
}

func NewHandler(cfg *config.Config, logger *logrus.Logger, api moysklad.API, syncService *sync.Service) *Handler {
	return &Handler{
		cfg:         cfg,
		logger:      logger,
		api:         api,
		syncService: syncService,
	}
}

func (h *Handler) Register(router *httprouter.Router) {
	router.POST("/api/moysklad/webhook", h.HandlerWebhook)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		h.logger.Errorf("failed to send response, error: %v", err)
	}
}

// POST /api/moysklad/webhook?secret=...
func (h *Handler) HandlerWebhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {

	if h.cfg.MOYSKLAD.WebhookSecret == "" {
		h.logger.Error("MOYSKLAD.WebhookSecret is not set, webhook rejected")
		h.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "MOYSKLAD.WebhookSecret is not set"})
		return
	}

	if r.URL.Query().Get("secret") != h.cfg.MOYSKLAD.WebhookSecret {
		h.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"ok": false})
		return
	}

	var body webhookBody
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil || len(body.Events) == 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "Missing events[]"})
		return
	}

	// Отвечаем сразу, события докатываем в фоне; внутри пачки — строго по порядку
	w.WriteHeader(http.StatusNoContent)

	go h.processEvents(body.Events)
}

// processEvents применяет события по одному; ошибка события
// логируется и не останавливает остальные.
func (h *Handler) processEvents(events []Event) {

	h.logger.Infof("Start processEvents, events: %d", len(events))
	defer h.logger.Info("End processEvents")

	for _, event := range events {
		err := h.processEvent(event)
		if err != nil {
			h.logger.Errorf("failed to process webhook event, action: %s, type: %s, href: %s; %v",
				event.Action, event.Meta.Type, event.Meta.Href, err)
		}
	}
}

func (h *Handler) processEvent(event Event) error {

	if event.Action == ACTION_DELETE {
		moyskladID := moysklad.PickIDFromHref(event.Meta.Href)
		if moyskladID == "" {
			h.logger.Warnf("webhook DELETE without id in href, skip; href: %s", event.Meta.Href)
			return nil
		}

		switch event.Meta.Type {
		case ENTITY_PRODUCTFOLDER:
			return h.syncService.DeleteCategoryFromWebhook(moyskladID)
		case ENTITY_PRODUCT, ENTITY_BUNDLE:
			return h.syncService.DeleteProductFromWebhook(moyskladID)
		case ENTITY_VARIANT:
			return h.syncService.DeleteVariantFromWebhook(moyskladID)
		default:
			h.logger.Warnf("webhook event with unknown entity type, skip; type: %s", event.Meta.Type)
			return nil
		}
	}

	switch event.Meta.Type {
	case ENTITY_PRODUCTFOLDER, ENTITY_PRODUCT, ENTITY_BUNDLE, ENTITY_VARIANT:
	default:
		h.logger.Warnf("webhook event with unknown entity type, skip; type: %s", event.Meta.Type)
		return nil
	}

	// CREATE/UPDATE: перечитываем сущность из МойСклад и зеркалим
	entity, err := h.api.FetchByHref(event.Meta.Href)
	if err != nil {
		return err
	}

	switch event.Meta.Type {
	case ENTITY_PRODUCTFOLDER:
		return h.syncService.SyncOneCategoryFromWebhook(entity)
	case ENTITY_PRODUCT:
		return h.syncService.SyncOneProductFromWebhook(entity, product.TYPE_PRODUCT)
	case ENTITY_BUNDLE:
		return h.syncService.SyncOneProductFromWebhook(entity, product.TYPE_BUNDLE)
	case ENTITY_VARIANT:
		return h.syncService.SyncOneVariantFromWebhook(entity)
	}

	return nil
}
