package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tenderbot/internal/model"
)

// handleCallback records a relevance verdict from the inline buttons
// attached to a delivered notification. The buttons are removed from
// the message afterwards on a best-effort basis.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Data == "" {
		return
	}

	ack := tgbotapi.NewCallback(cb.ID, "Feedback recorded ✅")
	if _, err := b.api.Send(ack); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	parts := strings.SplitN(cb.Data, ":", 2)
	if len(parts) != 2 {
		return
	}

	var verdict string
	switch parts[0] {
	case "suit":
		verdict = model.VerdictRelevant
	case "unsuit":
		verdict = model.VerdictIrrelevant
	default:
		return
	}

	fb := model.Feedback{
		ChatID:   cb.From.ID,
		TenderID: parts[1],
		Verdict:  verdict,
	}
	if err := b.store.AddFeedback(ctx, fb); err != nil {
		b.log.Error("add feedback", "tender_id", fb.TenderID, "error", err)
	}

	if cb.Message == nil {
		return
	}
	// Drop the buttons so the verdict cannot be re-submitted. Failures
	// are ignored: the message may be too old to edit.
	edit := tgbotapi.NewEditMessageReplyMarkup(
		cb.Message.Chat.ID,
		cb.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	_, _ = b.api.Send(edit)
}
