package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/render"
)

// Discord is the subset of *discordgo.Session the executor calls.
type Discord interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ Discord = (*discordgo.Session)(nil)

// Acknowledgement texts shown to the interacting user.
const (
	AckRoleAssigned = "Role assigned."
	AckDMSent       = "Sent you a direct message."
	AckFailed       = "Something went wrong running this action."
)

// Executor runs bot actions in response to component interactions.
type Executor struct {
	discord Discord
	logger  *slog.Logger
}

// NewExecutor returns an executor calling d.
func NewExecutor(d Discord) *Executor {
	return &Executor{discord: d, logger: log.DiscordLogger()}
}

// Execute performs action for interaction. Every path answers the
// interaction exactly once; on failure the user gets an ephemeral notice and
// the error is returned.
func (e *Executor) Execute(ctx context.Context, interaction *discordgo.Interaction, action message.BotAction) error {
	if interaction == nil {
		return errors.New("execute action: nil interaction")
	}
	if err := action.Validate(); err != nil {
		e.ack(ctx, interaction, AckFailed)
		return fmt.Errorf("execute action %q: %w", action.Name, err)
	}

	var err error
	p := action.Parameters
	switch {
	case action.Type == message.ActionReply && p.Message == nil,
		action.Type == message.ActionAssignRole && p.RoleID == "",
		action.Type == message.ActionSendDM && p.DMMessage == nil:
		err = errors.New("action parameters are incomplete")
		e.ack(ctx, interaction, AckFailed)
	case action.Type == message.ActionReply:
		err = e.reply(ctx, interaction, *p.Message)
	case action.Type == message.ActionAssignRole:
		err = e.assignRole(ctx, interaction, p.RoleID)
	case action.Type == message.ActionSendDM:
		err = e.sendDM(ctx, interaction, *p.DMMessage)
	default:
		err = fmt.Errorf("unsupported action type %q", action.Type)
		e.ack(ctx, interaction, AckFailed)
	}
	if err != nil {
		e.logger.Warn("Bot action failed", "action", action.Name, "type", action.Type, "interactionID", interaction.ID, "error", err)
		return fmt.Errorf("execute action %q: %w", action.Name, err)
	}
	e.logger.Debug("Bot action executed", "action", action.Name, "type", action.Type, "interactionID", interaction.ID)
	return nil
}

func (e *Executor) reply(ctx context.Context, interaction *discordgo.Interaction, doc message.Document) error {
	resp, err := render.InteractionResponse(doc, true)
	if err != nil {
		e.ack(ctx, interaction, AckFailed)
		return err
	}
	return e.discord.InteractionRespond(interaction, resp, discordgo.WithContext(ctx))
}

func (e *Executor) assignRole(ctx context.Context, interaction *discordgo.Interaction, roleID string) error {
	userID := InteractionUserID(interaction)
	if interaction.GuildID == "" || userID == "" {
		e.ack(ctx, interaction, AckFailed)
		return errors.New("role assignment needs a guild member")
	}
	if err := e.discord.GuildMemberRoleAdd(interaction.GuildID, userID, roleID, discordgo.WithContext(ctx)); err != nil {
		e.ack(ctx, interaction, AckFailed)
		return fmt.Errorf("add role %s: %w", roleID, err)
	}
	return e.respond(ctx, interaction, AckRoleAssigned)
}

func (e *Executor) sendDM(ctx context.Context, interaction *discordgo.Interaction, doc message.Document) error {
	send, err := render.MessageSend(doc)
	if err != nil {
		e.ack(ctx, interaction, AckFailed)
		return err
	}
	userID := InteractionUserID(interaction)
	if userID == "" {
		e.ack(ctx, interaction, AckFailed)
		return errors.New("direct message needs a user")
	}
	ch, err := e.discord.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		e.ack(ctx, interaction, AckFailed)
		return fmt.Errorf("open dm channel: %w", err)
	}
	if _, err := e.discord.ChannelMessageSendComplex(ch.ID, send, discordgo.WithContext(ctx)); err != nil {
		e.ack(ctx, interaction, AckFailed)
		return fmt.Errorf("send dm: %w", err)
	}
	return e.respond(ctx, interaction, AckDMSent)
}

func (e *Executor) respond(ctx context.Context, interaction *discordgo.Interaction, text string) error {
	return e.discord.InteractionRespond(interaction, ephemeral(text), discordgo.WithContext(ctx))
}

// ack answers best-effort; the triggering error is what the caller reports.
func (e *Executor) ack(ctx context.Context, interaction *discordgo.Interaction, text string) {
	if err := e.respond(ctx, interaction, text); err != nil {
		e.logger.Debug("Failure notice not delivered", "interactionID", interaction.ID, "error", err)
	}
}

func ephemeral(text string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: text, Flags: discordgo.MessageFlagsEphemeral},
	}
}

// InteractionUserID returns the id of the interacting user in guilds or DMs.
func InteractionUserID(i *discordgo.Interaction) string {
	switch {
	case i == nil:
		return ""
	case i.Member != nil && i.Member.User != nil:
		return i.Member.User.ID
	case i.User != nil:
		return i.User.ID
	}
	return ""
}
