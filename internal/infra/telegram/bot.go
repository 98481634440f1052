package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type Bot struct {
	api         *tgbotapi.BotAPI
	httpClient  *http.Client
	pollTimeout int
	logger      *zap.Logger
}

type CommandUpdate struct {
	ChatID   int64
	UserID   int64
	Username string
	Command  string
	Args     string
}

type TextUpdate struct {
	ChatID   int64
	UserID   int64
	Username string
	Text     string
}

type LocationUpdate struct {
	ChatID   int64
	UserID   int64
	Username string
	Lat      float64
	Lon      float64
}

// PhotoUpdate carries a single photo variant: the highest-resolution one,
// selected deterministically from the sizes Telegram offers.
type PhotoUpdate struct {
	ChatID   int64
	UserID   int64
	Username string
	FileID   string
	Width    int
	Height   int
}

type CallbackUpdate struct {
	CallbackID string
	ChatID     int64
	UserID     int64
	Username   string
	Data       string
}

type Handlers struct {
	OnCommand  func(context.Context, CommandUpdate) error
	OnText     func(context.Context, TextUpdate) error
	OnLocation func(context.Context, LocationUpdate) error
	OnPhoto    func(context.Context, PhotoUpdate) error
	OnCallback func(context.Context, CallbackUpdate) error
}

type InlineButton struct {
	Text string
	Data string
}

func NewBot(token string, pollTimeout int, logger *zap.Logger) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Bot{
		api:         api,
		pollTimeout: pollTimeout,
		logger:      logger,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			b.handleUpdate(ctx, update, handlers)
		}
	}
}

// handleUpdate contains one turn's failure to that turn: a handler error is
// logged and polling continues. Only transport-level failures stop Listen.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update, handlers Handlers) {
	if err := b.dispatch(ctx, update, handlers); err != nil {
		b.logger.Warn("update handler failed", zap.Error(err))
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update, handlers Handlers) error {
	if update.Message != nil && update.Message.From != nil {
		msg := update.Message
		chatID := msg.Chat.ID
		userID := msg.From.ID
		username := msg.From.UserName

		if msg.Location != nil && handlers.OnLocation != nil {
			return handlers.OnLocation(ctx, LocationUpdate{
				ChatID:   chatID,
				UserID:   userID,
				Username: username,
				Lat:      msg.Location.Latitude,
				Lon:      msg.Location.Longitude,
			})
		}

		if len(msg.Photo) > 0 && handlers.OnPhoto != nil {
			best := largestPhoto(msg.Photo)
			return handlers.OnPhoto(ctx, PhotoUpdate{
				ChatID:   chatID,
				UserID:   userID,
				Username: username,
				FileID:   best.FileID,
				Width:    best.Width,
				Height:   best.Height,
			})
		}

		if msg.IsCommand() && handlers.OnCommand != nil {
			return handlers.OnCommand(ctx, CommandUpdate{
				ChatID:   chatID,
				UserID:   userID,
				Username: username,
				Command:  msg.Command(),
				Args:     msg.CommandArguments(),
			})
		}

		text := strings.TrimSpace(msg.Text)
		if text != "" && handlers.OnText != nil {
			return handlers.OnText(ctx, TextUpdate{
				ChatID:   chatID,
				UserID:   userID,
				Username: username,
				Text:     text,
			})
		}

		return nil
	}

	if update.CallbackQuery != nil && update.CallbackQuery.From != nil && handlers.OnCallback != nil {
		chatID := int64(0)
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		}
		return handlers.OnCallback(ctx, CallbackUpdate{
			CallbackID: update.CallbackQuery.ID,
			ChatID:     chatID,
			UserID:     update.CallbackQuery.From.ID,
			Username:   update.CallbackQuery.From.UserName,
			Data:       update.CallbackQuery.Data,
		})
	}

	return nil
}

// largestPhoto picks the variant with the biggest pixel area; ties resolve by
// width and then file id so repeated updates select the same variant.
func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, candidate := range sizes[1:] {
		bestArea := best.Width * best.Height
		candidateArea := candidate.Width * candidate.Height
		switch {
		case candidateArea > bestArea:
			best = candidate
		case candidateArea == bestArea && candidate.Width > best.Width:
			best = candidate
		case candidateArea == bestArea && candidate.Width == best.Width && candidate.FileID > best.FileID:
			best = candidate
		}
	}
	return best
}

func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) SendKeyboard(ctx context.Context, chatID int64, text string, rows [][]string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	keyboardRows := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		keyboardRows = append(keyboardRows, buttons)
	}

	keyboard := tgbotapi.NewReplyKeyboard(keyboardRows...)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram keyboard: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) SendLocationRequest(ctx context.Context, chatID int64, text, buttonLabel string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	button := tgbotapi.NewKeyboardButtonLocation(buttonLabel)
	keyboard := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(button))
	keyboard.ResizeKeyboard = true
	keyboard.OneTimeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send location request: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) SendInline(ctx context.Context, chatID int64, text string, buttons []InlineButton) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, button := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.Data))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send inline keyboard: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(callbackID) == "" {
		return nil
	}

	cfg := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) DownloadPhoto(ctx context.Context, fileID string) (io.ReadCloser, int64, string, string, error) {
	if b == nil || b.api == nil {
		return nil, 0, "", "", fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(fileID) == "" {
		return nil, 0, "", "", fmt.Errorf("file id is required")
	}

	tgFile, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, 0, "", "", fmt.Errorf("get telegram file: %w", err)
	}

	fileURL := tgFile.Link(b.api.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, 0, "", "", fmt.Errorf("create file request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, 0, "", "", fmt.Errorf("download telegram file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, 0, "", "", fmt.Errorf("unexpected telegram file status: %d", resp.StatusCode)
	}

	name := path.Base(strings.TrimSpace(tgFile.FilePath))
	if name == "." || name == "/" || name == "" {
		name = "photo.jpg"
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.TrimSpace(contentType) == "" {
		contentType = "image/jpeg"
	}

	return resp.Body, resp.ContentLength, name, contentType, nil
}
