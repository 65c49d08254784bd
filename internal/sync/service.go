package sync

// Периодический автосинк: categories -> products -> variants по порядку
// (агрегация счетчиков товаров читает дерево, поэтому категории идут
// первыми). Паника внутри прохода ловится, сервис перезапускается.

import (
	"fmt"
	"time"

	"StrapiWithMoySklad/internal/syncstate"
	"StrapiWithMoySklad/internal/telegram"
)

// RunAutoSyncWithRecovered крутит автосинк и перезапускает его после паники.
// После трех паник подряд останавливаемся и сообщаем в телеграм.
func (s *Service) RunAutoSyncWithRecovered(notifier *telegram.Notifier) {

	s.logger.Info("Start Service RunAutoSyncWithRecovered")
	defer s.logger.Info("End Service RunAutoSyncWithRecovered")

	index := 0 // количество перезапусков при панике
	for {
		s.runAutoSync(notifier)
		index++

		if index == 3 {
			break
		}
	}

	if s.cfg.SYNC.TelegramReport == 1 {
		notifier.SendMessageWithLogError("перезапуск автосинка MoySklad прекращен")
	}
}

func (s *Service) runAutoSync(notifier *telegram.Notifier) {

	s.logger.Info("Start Service runAutoSync")
	defer s.logger.Info("End Service runAutoSync")

	defer func() {
		if r := recover(); r != nil {
			text := fmt.Sprintf("произошла критическая ошибка, автосинк будет перезапущен, ошибка: %v", r)
			s.logger.Error(text)
			if s.cfg.SYNC.TelegramReport == 1 {
				notifier.SendMessageWithLogError(text)
			}
		}
	}()

	for {
		timeStart := time.Now()

		resultCategories, err := s.SyncCategories()
		if err != nil {
			s.reportSyncError(notifier, "категорий", err)
		} else {
			s.logger.Infof("Автосинк категорий выполнен успешно: total=%d root=%s", resultCategories.Total, resultCategories.Root)
		}

		resultProducts, err := s.SyncProducts()
		if err != nil {
			s.reportSyncError(notifier, "товаров", err)
		} else {
			s.logger.Infof("Автосинк товаров выполнен успешно: total=%d bundles=%d", resultProducts.Total, resultProducts.Bundles)
		}

		resultVariants, err := s.SyncVariants()
		if err != nil {
			s.reportSyncError(notifier, "модификаций", err)
		} else {
			s.logger.Infof("Автосинк модификаций выполнен успешно: total=%d", resultVariants.Total)
		}

		s.logger.Infof("Полное время автосинка: %s", time.Now().Sub(timeStart))
		s.logger.Infof("time sleep %d minutes", s.cfg.SYNC.Timeout)

		time.Sleep(time.Minute * time.Duration(s.cfg.SYNC.Timeout))
	}
}

func (s *Service) reportSyncError(notifier *telegram.Notifier, what string, err error) {

	// Занятая блокировка при автосинке — не сбой: ручной синк имеет приоритет
	if syncstate.IsLockHeld(err) {
		s.logger.Warnf("Автосинк %s пропущен: %v", what, err)
		return
	}

	text := fmt.Sprintf("Ошибка при автосинке %s: \n%v\n", what, err)
	s.logger.Error(text)
	if s.cfg.SYNC.TelegramReport == 1 {
		notifier.SendMessageWithLogError(text)
	}
}
