package telegram

import (
	"context"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: text,
			From: &tgbotapi.User{ID: userID, UserName: "user"},
			Chat: &tgbotapi.Chat{ID: userID},
		},
	}
}

func TestHandleUpdateContainsHandlerErrors(t *testing.T) {
	bot := &Bot{logger: zap.NewNop()}

	var handled []string
	handlers := Handlers{
		OnText: func(_ context.Context, update TextUpdate) error {
			handled = append(handled, update.Text)
			if update.Text == "boom" {
				return fmt.Errorf("get or create user: connection refused")
			}
			return nil
		},
	}

	ctx := context.Background()
	bot.handleUpdate(ctx, textUpdate(1, "boom"), handlers)
	bot.handleUpdate(ctx, textUpdate(2, "hello"), handlers)

	if len(handled) != 2 {
		t.Fatalf("a failed turn must not stop later turns, handled: %v", handled)
	}
	if handled[1] != "hello" {
		t.Fatalf("unexpected second turn: %q", handled[1])
	}
}
