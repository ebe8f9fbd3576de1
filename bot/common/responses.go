package common

import (
	"bytes"
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

// Sender is the part of the Telegram API the features reply through
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error)
}

// Reply sends a text message, optionally with a keyboard
func Reply(ctx context.Context, s Sender, chatID int64, text string, markup telego.ReplyMarkup) error {
	params := tu.Message(tu.ID(chatID), text)
	if markup != nil {
		params = params.WithReplyMarkup(markup)
	}

	_, err := s.SendMessage(ctx, params)
	if err != nil {
		log.WithError(err).WithField("chatId", chatID).Error("Failed to send Telegram message")
	}
	return err
}

// ReplyWithPhoto sends a PNG image with a caption
func ReplyWithPhoto(ctx context.Context, s Sender, chatID int64, png []byte, name, caption string) error {
	params := tu.Photo(tu.ID(chatID), tu.File(tu.NameReader(bytes.NewReader(png), name))).
		WithCaption(caption)

	_, err := s.SendPhoto(ctx, params)
	if err != nil {
		log.WithError(err).WithField("chatId", chatID).Error("Failed to send Telegram photo")
	}
	return err
}

// MainKeyboard is the persistent command keyboard
func MainKeyboard() *telego.ReplyKeyboardMarkup {
	return tu.Keyboard(
		tu.KeyboardRow(
			tu.KeyboardButton("/watch"),
			tu.KeyboardButton("/balance"),
		),
		tu.KeyboardRow(
			tu.KeyboardButton("/referral"),
			tu.KeyboardButton("/withdraw"),
		),
	).WithResizeKeyboard()
}
