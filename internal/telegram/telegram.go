package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Notifier шлет отчеты о сбоях синка в телеграм.
// Если бот не настроен (пустой токен), все вызовы — no-op.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *logrus.Logger
}

func NewNotifier(botToken string, chatID int64, debug bool, logger *logrus.Logger) (*Notifier, error) {

	if botToken == "" {
		logger.Info("telegram: бот не настроен, отчеты отключены")
		return &Notifier{logger: logger}, nil
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed in tgbotapi.NewBotAPI()")
	}
	bot.Debug = debug

	logger.Infof("telegram: авторизован как %s", bot.Self.UserName)

	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}, nil
}

func (n *Notifier) SendMessage(text string) error {

	if n.bot == nil {
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	_, err := n.bot.Send(msg)
	if err != nil {
		return errors.Wrap(err, "failed in bot.Send()")
	}

	return nil
}

// SendMessageWithLogError — отправка без возврата ошибки: сбой отчета
// не должен ломать синк.
func (n *Notifier) SendMessageWithLogError(text string) {

	err := n.SendMessage(text)
	if err != nil {
		n.logger.Errorf("failed telegram.SendMessage(); %v", err)
	}
}
