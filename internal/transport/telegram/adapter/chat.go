package adapter

import (
	"context"
	"fmt"
	"time"

	tele "gopkg.in/telebot.v4"

	kit "animebot/internal/transport"
)

// telebot calls are not context-aware; these helpers check ctx up front and
// otherwise rely on the bot's HTTP client timeout.

func (a *Adapter) ResolveChat(ctx context.Context, chatID int64) (kit.ChatInfo, error) {
	if err := ctx.Err(); err != nil {
		return kit.ChatInfo{}, err
	}
	chat, err := a.bot.ChatByID(chatID)
	if err != nil {
		return kit.ChatInfo{}, fmt.Errorf("resolve chat %d: %w", chatID, err)
	}
	return kit.ChatInfo{
		ID:       chat.ID,
		Title:    chat.Title,
		Username: chat.Username,
		Type:     string(chat.Type),
	}, nil
}

func (a *Adapter) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m, err := a.bot.ChatMemberOf(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
	if err != nil {
		return false, fmt.Errorf("chat member %d/%d: %w", chatID, userID, err)
	}
	return m.Role == tele.Creator || m.Role == tele.Administrator, nil
}

// Ping measures a getMe round trip.
func (a *Adapter) Ping(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := time.Now()
	if _, err := a.bot.Raw("getMe", nil); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
