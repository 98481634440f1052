package botapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/pairbot/internal/domain/enums"
	tginfra "github.com/ivankudzin/pairbot/internal/infra/telegram"
	pgrepo "github.com/ivankudzin/pairbot/internal/repo/postgres"
	candsvc "github.com/ivankudzin/pairbot/internal/services/candidates"
	likesvc "github.com/ivankudzin/pairbot/internal/services/likes"
	obsvc "github.com/ivankudzin/pairbot/internal/services/onboarding"
)

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if a.bot == nil {
		return nil
	}

	user, err := a.userRepo.GetOrCreate(ctx, update.UserID, update.Username)
	if err != nil {
		return fmt.Errorf("get or create user: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		if !user.PrivacyAccepted {
			return a.bot.SendKeyboard(ctx, update.ChatID, consentText, [][]string{{consentButton}})
		}
		return a.sendMainMenu(ctx, update.ChatID, greetingText)
	case "help":
		return a.bot.SendText(ctx, update.ChatID, helpText)
	case "cancel":
		a.onboarding.Cancel(user.ID)
		return a.sendMainMenu(ctx, update.ChatID, cancelledText)
	default:
		return a.bot.SendText(ctx, update.ChatID, unknownCommandText)
	}
}

func (a *App) handleText(ctx context.Context, update tginfra.TextUpdate) error {
	if a.bot == nil {
		return nil
	}

	user, err := a.userRepo.GetOrCreate(ctx, update.UserID, update.Username)
	if err != nil {
		return fmt.Errorf("get or create user: %w", err)
	}

	text := strings.TrimSpace(update.Text)

	if text == consentButton {
		if err := a.userRepo.SetPrivacyAccepted(ctx, user.ID); err != nil {
			return fmt.Errorf("accept privacy: %w", err)
		}
		return a.sendMainMenu(ctx, update.ChatID, consentAcceptedText)
	}

	if !user.PrivacyAccepted {
		return a.bot.SendKeyboard(ctx, update.ChatID, consentText, [][]string{{consentButton}})
	}

	// An active onboarding conversation swallows all text input.
	if a.onboarding.Active(user.ID) {
		reply, err := a.onboarding.Advance(ctx, user.ID, obsvc.Input{
			Kind: enums.InputKindText,
			Text: text,
		})
		if err != nil {
			a.logger.Warn("onboarding advance failed", zap.Int64("user_id", user.ID), zap.Error(err))
			return a.bot.SendText(ctx, update.ChatID, tryAgainText)
		}
		return a.sendReply(ctx, update.ChatID, reply)
	}

	switch text {
	case menuFillProfile:
		reply, err := a.onboarding.Start(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("start onboarding: %w", err)
		}
		return a.sendReply(ctx, update.ChatID, reply)
	case menuUpdateLocation:
		reply, err := a.onboarding.StartLocationUpdate(user.ID)
		if err != nil {
			return fmt.Errorf("start location update: %w", err)
		}
		return a.sendReply(ctx, update.ChatID, reply)
	case menuFindPair:
		a.candidates.Reset(user.ID)
		return a.sendNextCandidate(ctx, update.ChatID, user.ID)
	case menuMyMatches:
		return a.sendMatches(ctx, update.ChatID, user.ID)
	default:
		return a.sendMainMenu(ctx, update.ChatID, menuHintText)
	}
}

func (a *App) handleLocation(ctx context.Context, update tginfra.LocationUpdate) error {
	if a.bot == nil {
		return nil
	}

	if !a.onboarding.Active(update.UserID) {
		return a.sendMainMenu(ctx, update.ChatID, menuHintText)
	}

	reply, err := a.onboarding.Advance(ctx, update.UserID, obsvc.Input{
		Kind: enums.InputKindLocation,
		Lat:  update.Lat,
		Lon:  update.Lon,
	})
	if err != nil {
		a.logger.Warn("location advance failed", zap.Int64("user_id", update.UserID), zap.Error(err))
		return a.bot.SendText(ctx, update.ChatID, tryAgainText)
	}
	return a.sendReply(ctx, update.ChatID, reply)
}

func (a *App) handlePhoto(ctx context.Context, update tginfra.PhotoUpdate) error {
	if a.bot == nil {
		return nil
	}

	if !a.onboarding.Active(update.UserID) {
		return a.sendMainMenu(ctx, update.ChatID, menuHintText)
	}

	body, size, filename, contentType, err := a.bot.DownloadPhoto(ctx, update.FileID)
	if err != nil {
		a.logger.Warn("photo download failed", zap.Int64("user_id", update.UserID), zap.Error(err))
		return a.bot.SendText(ctx, update.ChatID, photoFailedText)
	}
	defer body.Close()

	objectKey, err := buildPhotoObjectKey(update.UserID, filename)
	if err != nil {
		return err
	}

	if err := a.storage.EnsureBucket(ctx); err != nil {
		return err
	}
	if err := a.storage.PutPhoto(ctx, objectKey, body, size, contentType); err != nil {
		a.logger.Warn("photo upload failed", zap.Int64("user_id", update.UserID), zap.Error(err))
		return a.bot.SendText(ctx, update.ChatID, photoFailedText)
	}

	reply, err := a.onboarding.Advance(ctx, update.UserID, obsvc.Input{
		Kind:     enums.InputKindPhoto,
		PhotoKey: objectKey,
	})
	if err != nil {
		_ = a.storage.Delete(ctx, objectKey)
		a.logger.Warn("photo advance failed", zap.Int64("user_id", update.UserID), zap.Error(err))
		return a.bot.SendText(ctx, update.ChatID, tryAgainText)
	}

	return a.sendReply(ctx, update.ChatID, reply)
}

func (a *App) handleCallback(ctx context.Context, update tginfra.CallbackUpdate) error {
	if a.bot == nil {
		return nil
	}

	parts := strings.SplitN(strings.TrimSpace(update.Data), ":", 2)
	switch parts[0] {
	case "like":
		if len(parts) != 2 {
			return a.bot.AnswerCallback(ctx, update.CallbackID, unknownActionText)
		}
		targetID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || targetID <= 0 {
			return a.bot.AnswerCallback(ctx, update.CallbackID, unknownActionText)
		}
		return a.handleLike(ctx, update, targetID)
	case "skip":
		if err := a.bot.AnswerCallback(ctx, update.CallbackID, ""); err != nil {
			return err
		}
		return a.sendNextCandidate(ctx, update.ChatID, update.UserID)
	default:
		return a.bot.AnswerCallback(ctx, update.CallbackID, unknownActionText)
	}
}

func (a *App) handleLike(ctx context.Context, update tginfra.CallbackUpdate, targetID int64) error {
	outcome, err := a.likes.Like(ctx, update.UserID, targetID)

	var tooFast *likesvc.TooFastError
	switch {
	case errors.As(err, &tooFast):
		return a.bot.AnswerCallback(ctx, update.CallbackID,
			fmt.Sprintf("Слишком быстро. Подожди %d сек.", tooFast.RetryAfterSec))
	case errors.Is(err, likesvc.ErrTargetNotFound):
		if err := a.bot.AnswerCallback(ctx, update.CallbackID, goneCandidateText); err != nil {
			return err
		}
		return a.sendNextCandidate(ctx, update.ChatID, update.UserID)
	case err != nil:
		a.logger.Warn("like failed",
			zap.Int64("from_id", update.UserID),
			zap.Int64("to_id", targetID),
			zap.Error(err))
		return a.bot.AnswerCallback(ctx, update.CallbackID, tryAgainText)
	}

	ack := likedText
	if outcome.Matched {
		ack = matchedText
	}
	if err := a.bot.AnswerCallback(ctx, update.CallbackID, ack); err != nil {
		return err
	}

	return a.sendNextCandidate(ctx, update.ChatID, update.UserID)
}

func (a *App) sendNextCandidate(ctx context.Context, chatID, userID int64) error {
	candidate, err := a.candidates.Next(ctx, userID)
	switch {
	case errors.Is(err, candsvc.ErrProfileIncomplete):
		return a.bot.SendKeyboard(ctx, chatID, profileFirstText, mainMenuRows())
	case errors.Is(err, candsvc.ErrNoCandidates):
		return a.bot.SendKeyboard(ctx, chatID, noCandidatesText, mainMenuRows())
	case err != nil:
		return fmt.Errorf("next candidate: %w", err)
	}

	return a.bot.SendInline(ctx, chatID, a.formatCandidate(ctx, candidate), []tginfra.InlineButton{
		{Text: "❤️", Data: "like:" + strconv.FormatInt(candidate.UserID, 10)},
		{Text: "👎", Data: "skip"},
	})
}

func (a *App) formatCandidate(ctx context.Context, c candsvc.Candidate) string {
	lines := make([]string, 0, 6)

	title := fmt.Sprintf("%s, %d", displayName(c.Username), c.Age)
	if c.City != "" {
		title += ", " + c.City
	}
	lines = append(lines, title)

	if interests := joinInterests(c.Interests); interests != "" {
		lines = append(lines, "Интересы: "+interests)
	}

	if c.PhotoKey != "" {
		if url, err := a.storage.PresignGet(ctx, c.PhotoKey, 15*time.Minute); err == nil {
			lines = append(lines, "", "Фото: "+url)
		} else {
			a.logger.Warn("presign photo failed", zap.String("key", c.PhotoKey), zap.Error(err))
		}
	}

	return strings.Join(lines, "\n")
}

func (a *App) sendMatches(ctx context.Context, chatID, userID int64) error {
	matches, err := a.matchRepo.ListForUser(ctx, userID, matchListLimit)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}

	if len(matches) == 0 {
		return a.bot.SendKeyboard(ctx, chatID, noMatchesText, mainMenuRows())
	}

	lines := make([]string, 0, len(matches)+1)
	lines = append(lines, myMatchesTitle)
	for _, m := range matches {
		lines = append(lines, "- "+formatMatchLine(m))
	}

	return a.bot.SendKeyboard(ctx, chatID, strings.Join(lines, "\n"), mainMenuRows())
}

func formatMatchLine(m pgrepo.MatchRecord) string {
	name := displayName(m.Username)
	if m.Username != "" {
		name = "@" + m.Username
	}
	line := name
	if m.Age > 0 {
		line += fmt.Sprintf(", %d", m.Age)
	}
	if m.City != "" {
		line += ", " + m.City
	}
	return line
}

func (a *App) sendReply(ctx context.Context, chatID int64, reply obsvc.Reply) error {
	switch reply.Keyboard {
	case obsvc.KeyboardLocationMethod:
		return a.bot.SendKeyboard(ctx, chatID, reply.Prompt, [][]string{
			{obsvc.ChoiceCity},
			{obsvc.ChoiceGeo},
		})
	case obsvc.KeyboardShareLocation:
		return a.bot.SendLocationRequest(ctx, chatID, reply.Prompt, shareLocationButton)
	case obsvc.KeyboardGender:
		return a.bot.SendKeyboard(ctx, chatID, reply.Prompt, [][]string{{genderMale, genderFemale}})
	case obsvc.KeyboardMainMenu:
		return a.sendMainMenu(ctx, chatID, reply.Prompt)
	default:
		return a.bot.SendText(ctx, chatID, reply.Prompt)
	}
}

func (a *App) sendMainMenu(ctx context.Context, chatID int64, text string) error {
	return a.bot.SendKeyboard(ctx, chatID, text, mainMenuRows())
}

func displayName(username string) string {
	if strings.TrimSpace(username) == "" {
		return "Аноним"
	}
	return username
}

func joinInterests(interests []string) string {
	kept := make([]string, 0, len(interests))
	for _, it := range interests {
		if strings.TrimSpace(it) != "" {
			kept = append(kept, it)
		}
	}
	return strings.Join(kept, ", ")
}
