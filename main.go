package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"StrapiWithMoySklad/internal/config"
	"StrapiWithMoySklad/internal/database"
	"StrapiWithMoySklad/internal/database/model/bundleitem"
	"StrapiWithMoySklad/internal/database/model/category"
	"StrapiWithMoySklad/internal/database/model/product"
	"StrapiWithMoySklad/internal/database/model/variant"
	httphandler "StrapiWithMoySklad/internal/handlers/http"
	"StrapiWithMoySklad/internal/moysklad"
	"StrapiWithMoySklad/internal/sync"
	"StrapiWithMoySklad/internal/syncstate"
	"StrapiWithMoySklad/internal/telegram"
	"StrapiWithMoySklad/internal/version"
	"StrapiWithMoySklad/internal/webhook"
	"StrapiWithMoySklad/pkg/logging"

	"github.com/julienschmidt/httprouter"
)

func main() {
	configPath := flag.String("config", "config/config.ini", "путь к ini-конфигу")
	flag.Parse()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatalf("failed in config.NewConfig(); %v", err)
	}

	logger := logging.NewLogger(cfg.LOG.Debug == 1)
	logger.Info("Start Main")
	defer logger.Info("End Main")
	logger.Infof("Version %s", version.GetVersion().String())

	if !database.Exists(cfg.DBSQLITE.DB) {
		logger.Infof("%s not exist", cfg.DBSQLITE.DB)
		err := database.CreateDB(logger, cfg.DBSQLITE.DB)
		if err != nil {
			logger.Fatalf("failed in database.CreateDB(%s); %v", cfg.DBSQLITE.DB, err)
		}
	} else {
		logger.Infof("%s exist", cfg.DBSQLITE.DB)
	}

	db, err := database.Connect(cfg.DBSQLITE.DB)
	if err != nil {
		logger.Fatalf("failed in database.Connect(%s); %v", cfg.DBSQLITE.DB, err)
	}
	defer db.Close()

	api, err := moysklad.NewAPI(cfg.MOYSKLAD.URL, cfg.MOYSKLAD.AccessToken, logger)
	if err != nil {
		logger.Fatalf("failed in moysklad.NewAPI(); %v", err)
	}

	categories := category.NewStore(db, logger)
	products := product.NewStore(db, logger)
	bundleItems := bundleitem.NewStore(db, logger)
	variants := variant.NewStore(db, logger)

	state := syncstate.NewManager(db, logger, time.Duration(cfg.SYNC.LockTTL)*time.Minute)

	syncService := sync.NewService(cfg, logger, api, state, categories, products, bundleItems, variants)

	notifier, err := telegram.NewNotifier(cfg.TELEGRAM.BotToken, cfg.TELEGRAM.ChatID, cfg.TELEGRAM.Debug == 1, logger)
	if err != nil {
		logger.Fatalf("failed in telegram.NewNotifier(); %v", err)
	}

	if cfg.SYNC.AutoSync == 1 {
		go syncService.RunAutoSyncWithRecovered(notifier)
	} else {
		logger.Info("AutoSync выключен, синк только по ручкам и вебхукам")
	}

	router := httprouter.New()
	httphandler.NewHandler(cfg, logger, syncService, state, categories, products).Register(router)
	webhook.NewHandler(cfg, logger, api, syncService).Register(router)

	logger.Infof("Listen on :%d", cfg.SERVICE.PORT)
	logger.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", cfg.SERVICE.PORT), router))
}
