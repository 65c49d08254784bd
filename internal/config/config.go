package config

import (
	"gopkg.in/gcfg.v1"

	"github.com/pkg/errors"
)

type (
	Config struct {
		MOYSKLAD struct {
			URL           string // база API, обычно https://api.moysklad.ru/api/remap/1.2
			AccessToken   string
			WebhookSecret string
			RootName      string // витринный корень: от него и ниже синкаем дерево
			PriceTypeSale string // имя типа цены для price, например "Цена с сайта"
			PriceTypeOld  string // имя типа цены для priceOld, например "Цена продажи"
		}
		SYNC struct {
			Timeout        int // период автосинка в минутах
			LockTTL        int // TTL блокировки синка в минутах (0 = 10)
			AutoSync       int
			TelegramReport int
		}
		TELEGRAM struct {
			BotToken string
			ChatID   int64
			Debug    int
		}
		LOG struct {
			Debug int
		}
		SERVICE struct {
			PORT int
		}
		DBSQLITE struct {
			DB string
		}
	}
)

// NewConfig читает ini-конфиг и валидирует обязательные поля.
// Конфиг передается явно, синглтона нет.
func NewConfig(path string) (*Config, error) {
	var cfg Config

	err := gcfg.ReadFileInto(&cfg, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed gcfg.ReadFileInto(%s)", path)
	}

	if cfg.MOYSKLAD.URL == "" {
		cfg.MOYSKLAD.URL = "https://api.moysklad.ru/api/remap/1.2"
	}

	if cfg.MOYSKLAD.RootName == "" {
		return nil, errors.New("MOYSKLAD.RootName is not set")
	}

	if cfg.MOYSKLAD.PriceTypeSale == "" {
		cfg.MOYSKLAD.PriceTypeSale = "Цена с сайта"
	}

	if cfg.MOYSKLAD.PriceTypeOld == "" {
		cfg.MOYSKLAD.PriceTypeOld = "Цена продажи"
	}

	if cfg.SYNC.Timeout == 0 {
		cfg.SYNC.Timeout = 60
	}

	if cfg.SYNC.LockTTL == 0 {
		cfg.SYNC.LockTTL = 10
	}

	if cfg.DBSQLITE.DB == "" {
		cfg.DBSQLITE.DB = "db.db"
	}

	if cfg.SERVICE.PORT == 0 {
		cfg.SERVICE.PORT = 1337
	}

	return &cfg, nil
}
