// Package webhook publishes rendered message documents through Discord webhooks.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/render"
)

const defaultValidationTimeout = 3 * time.Second

// Target addresses a webhook and, optionally, one of its messages.
type Target struct {
	WebhookURL string `json:"webhookUrl"`
	MessageID  string `json:"messageId,omitempty"`
}

// Validate checks the webhook url shape without contacting Discord.
func (t Target) Validate() error {
	if _, _, err := parseWebhookURL(strings.TrimSpace(t.WebhookURL)); err != nil {
		return message.NewValidationError("webhookUrl", t.WebhookURL, err.Error())
	}
	return nil
}

// MessagePatch replaces the content of an existing webhook message.
type MessagePatch struct {
	MessageID  string
	WebhookURL string
	Document   message.Document
}

// PublishMessage posts doc through the webhook, or edits the target message
// when Target.MessageID is set. It returns the id of the published message.
func PublishMessage(ctx context.Context, session *discordgo.Session, target Target, doc message.Document) (string, error) {
	if session == nil {
		return "", errors.New("publish webhook message: nil discord session")
	}
	if id := strings.TrimSpace(target.MessageID); id != "" {
		if err := PatchMessage(ctx, session, MessagePatch{MessageID: id, WebhookURL: target.WebhookURL, Document: doc}); err != nil {
			return "", err
		}
		return id, nil
	}

	webhookID, webhookToken, err := parseWebhookURL(strings.TrimSpace(target.WebhookURL))
	if err != nil {
		return "", fmt.Errorf("publish webhook message: %w", err)
	}
	params, err := render.WebhookParams(doc)
	if err != nil {
		return "", fmt.Errorf("publish webhook message: %w", err)
	}
	msg, err := session.WebhookExecute(webhookID, webhookToken, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return "", classify("webhook execute", err)
	}
	id := ""
	if msg != nil {
		id = msg.ID
	}
	log.DiscordLogger().Info("Webhook message published", "webhookID", webhookID, "messageID", id, "mode", doc.Mode)
	return id, nil
}

// PatchMessage edits an existing webhook message, replacing its content,
// embeds and components with the rendered document.
func PatchMessage(ctx context.Context, session *discordgo.Session, patch MessagePatch) error {
	if session == nil {
		return errors.New("patch webhook message: nil discord session")
	}
	messageID := strings.TrimSpace(patch.MessageID)
	if messageID == "" {
		return errors.New("patch webhook message: missing message_id")
	}
	webhookID, webhookToken, err := parseWebhookURL(strings.TrimSpace(patch.WebhookURL))
	if err != nil {
		return fmt.Errorf("patch webhook message: %w", err)
	}
	edit, err := render.WebhookEdit(patch.Document)
	if err != nil {
		return fmt.Errorf("patch webhook message: %w", err)
	}
	if _, err := session.WebhookMessageEdit(webhookID, webhookToken, messageID, edit, discordgo.WithContext(ctx)); err != nil {
		return classify(fmt.Sprintf("webhook edit message_id=%s", messageID), err)
	}
	log.DiscordLogger().Info("Webhook message patched", "webhookID", webhookID, "messageID", messageID, "mode", patch.Document.Mode)
	return nil
}

// ValidateTarget checks that the webhook credentials work and, when a
// message id is set, that the message is reachable through the webhook.
func ValidateTarget(ctx context.Context, session *discordgo.Session, target Target) error {
	if session == nil {
		return errors.New("validate webhook target: nil discord session")
	}
	webhookID, webhookToken, err := parseWebhookURL(strings.TrimSpace(target.WebhookURL))
	if err != nil {
		return fmt.Errorf("validate webhook target: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultValidationTimeout)
		defer cancel()
	}
	opts := []discordgo.RequestOption{
		discordgo.WithContext(ctx),
		discordgo.WithRestRetries(0),
		discordgo.WithRetryOnRatelimit(false),
	}
	if _, err := session.WebhookWithToken(webhookID, webhookToken, opts...); err != nil {
		return classify("webhook lookup", err)
	}
	if id := strings.TrimSpace(target.MessageID); id != "" {
		if _, err := session.WebhookMessage(webhookID, webhookToken, id, opts...); err != nil {
			return classify("message lookup", err)
		}
	}
	return nil
}

func parseWebhookURL(rawURL string) (string, string, error) {
	if rawURL == "" {
		return "", "", errors.New("missing webhook_url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", errors.New("invalid webhook_url format")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p != "webhooks" {
			continue
		}
		if i+2 >= len(parts) {
			break
		}
		id, token := strings.TrimSpace(parts[i+1]), strings.TrimSpace(parts[i+2])
		if id == "" || token == "" {
			return "", "", errors.New("invalid webhook_url credentials")
		}
		return id, token, nil
	}
	return "", "", errors.New("invalid webhook_url path")
}
