package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tenderbot/internal/keyword"
	"tenderbot/internal/storage"
)

const (
	msgWelcome = `Welcome to Tender Notify Bot!

Subscribe to procurement keywords and get notified about matching
tender announcements.

Quick start:
1. /subscribe <keyword> — watch a keyword
2. /list — show your keywords

Use /help for the full command reference.`

	msgHelp = `Commands:
/start — register
/subscribe <kw...> — watch one or more keywords
/unsubscribe <kw...> — stop watching keywords
/list — show your keywords
/clear — remove all keywords
/help — this message

Keywords: 2-30 characters, letters, digits, "_" or "-". Matching is
case-insensitive, whole words only.`

	msgAlready   = "You are already registered."
	msgNoKeyword = "Please specify at least one valid keyword."
	msgSubsEmpty = "You don't have any keywords yet."
	msgCleared   = "All keywords removed."
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.reply(chatID, msgHelp)
	case "subscribe":
		b.handleSubscribe(ctx, chatID, args)
	case "unsubscribe":
		b.handleUnsubscribe(ctx, chatID, args)
	case "list":
		b.handleList(ctx, chatID)
	case "clear":
		b.handleClear(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	err := b.store.CreateUser(ctx, chatID)
	switch {
	case errors.Is(err, storage.ErrAlreadyExists):
		b.reply(chatID, msgAlready)
	case err != nil:
		b.log.Error("create user", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
	default:
		b.reply(chatID, msgWelcome)
	}
}

func (b *Bot) handleSubscribe(ctx context.Context, chatID int64, args string) {
	kws, invalid := keyword.Parse(args)
	for _, kw := range invalid {
		b.reply(chatID, fmt.Sprintf("Keyword %q invalid - skipped.", kw))
	}
	if len(kws) == 0 {
		b.reply(chatID, msgNoKeyword)
		return
	}

	current, err := b.store.ListKeywords(ctx, chatID)
	if err != nil {
		b.log.Error("list keywords", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if len(current) >= keyword.MaxPerChat {
		b.reply(chatID, fmt.Sprintf("Max %d keywords.", keyword.MaxPerChat))
		return
	}

	count := len(current)
	var added []string
	for _, kw := range kws {
		if count >= keyword.MaxPerChat {
			break
		}
		err := b.store.AddSubscription(ctx, chatID, kw)
		if errors.Is(err, storage.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			b.log.Error("add subscription", "chat_id", chatID, "keyword", kw, "error", err)
			continue
		}
		added = append(added, kw)
		count++
	}

	if len(added) == 0 {
		b.reply(chatID, "Nothing added.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Subscribed to: %s.", strings.Join(added, ", ")))
}

func (b *Bot) handleUnsubscribe(ctx context.Context, chatID int64, args string) {
	kws, _ := keyword.Parse(args)
	if len(kws) == 0 {
		b.reply(chatID, msgNoKeyword)
		return
	}

	var removed []string
	for _, kw := range kws {
		ok, err := b.store.RemoveSubscription(ctx, chatID, kw)
		if err != nil {
			b.log.Error("remove subscription", "chat_id", chatID, "keyword", kw, "error", err)
			continue
		}
		if ok {
			removed = append(removed, kw)
		}
	}

	if len(removed) == 0 {
		b.reply(chatID, fmt.Sprintf("Keyword(s) not found: %s.", strings.Join(kws, ", ")))
		return
	}
	b.reply(chatID, fmt.Sprintf("Removed: %s.", strings.Join(removed, ", ")))
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	kws, err := b.store.ListKeywords(ctx, chatID)
	if err != nil {
		b.log.Error("list keywords", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	if len(kws) == 0 {
		b.reply(chatID, msgSubsEmpty)
		return
	}
	b.reply(chatID, fmt.Sprintf("Your keywords: %s.", strings.Join(kws, ", ")))
}

func (b *Bot) handleClear(ctx context.Context, chatID int64) {
	if err := b.store.ClearSubscriptions(ctx, chatID); err != nil {
		b.log.Error("clear subscriptions", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again.")
		return
	}
	b.reply(chatID, msgCleared)
}
