package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/botdash/pkg/discord/perf"
	"github.com/small-frappuccino/botdash/pkg/log"
	"github.com/small-frappuccino/botdash/pkg/render"
	"github.com/small-frappuccino/botdash/pkg/store"
)

const (
	dispatchTimeout = 10 * time.Second
	AckUnconfigured = "This component is no longer configured."
)

// Dispatcher routes component interactions to the action bound in the
// guild's stored responses.
type Dispatcher struct {
	store  store.ResponseStore
	exec   *Executor
	logger *slog.Logger
}

// NewDispatcher returns a dispatcher reading responses from st.
func NewDispatcher(st store.ResponseStore, exec *Executor) *Dispatcher {
	return &Dispatcher{store: st, exec: exec, logger: log.DiscordLogger()}
}

// Dispatch handles one interaction. Interactions that are not component
// clicks on botdash custom ids are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, i *discordgo.Interaction) error {
	if i == nil || i.Type != discordgo.InteractionMessageComponent {
		return nil
	}
	data := i.MessageComponentData()
	if _, _, ok := render.ParseCustomID(data.CustomID); !ok {
		return nil
	}

	entries, err := d.store.ListResponses(ctx, i.GuildID)
	if err != nil {
		d.exec.ack(ctx, i, AckFailed)
		return fmt.Errorf("dispatch %s: list responses: %w", data.CustomID, err)
	}
	for _, e := range entries {
		doc, err := e.Record.Document()
		if err != nil {
			continue
		}
		res, err := Resolve(doc, data.CustomID, data.Values)
		switch {
		case errors.Is(err, ErrUnknownComponent):
			continue
		case errors.Is(err, ErrNoAction):
			d.exec.ack(ctx, i, AckUnconfigured)
			return nil
		case err != nil:
			return err
		}
		d.logger.Info("Dispatching bot action", "guildID", i.GuildID, "responseKey", e.Key, "owner", res.OwnerID, "action", res.Action.Name)
		return d.exec.Execute(ctx, i, res.Action)
	}

	d.exec.ack(ctx, i, AckUnconfigured)
	return fmt.Errorf("%w: custom_id=%s guild_id=%s", ErrUnknownComponent, data.CustomID, i.GuildID)
}

// HandleInteraction is a discordgo event handler.
func (d *Dispatcher) HandleInteraction(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic == nil || ic.Interaction == nil {
		return
	}
	defer perf.StartGatewayEvent("interaction_create", slog.String("interactionID", ic.ID))()
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := d.Dispatch(ctx, ic.Interaction); err != nil {
		d.logger.Warn("Interaction not handled", "interactionID", ic.ID, "error", err)
	}
}
