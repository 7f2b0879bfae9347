package actions

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/botdash/pkg/message"
	"github.com/small-frappuccino/botdash/pkg/render"
	"github.com/small-frappuccino/botdash/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	doc       message.Document
	replyBtn  string
	menuID    string
	optionID  string
	dmBtn     string
	nestedBtn string
}

// newFixture builds a container with a reply button and a role menu in one
// row each, plus a section whose accessory button sends a DM. The reply
// message itself carries another button.
func newFixture(t *testing.T) fixture {
	t.Helper()
	var f fixture

	nested := message.NewDocument(message.ModeContainer)
	nestedRow, _ := nested.Container.AddComponent(message.BlockActionRow)
	nr, _ := nested.Container.Row(nestedRow)
	f.nestedBtn, _ = nr.AddComponent(message.KindButton)
	_, err := nested.Container.SetAction(
		message.ActionTarget{OwnerKind: message.OwnerButton, OwnerID: f.nestedBtn, BlockID: nestedRow},
		&message.BotAction{Name: "role from reply", Type: message.ActionAssignRole, Parameters: message.ActionParameters{RoleID: "r2"}},
	)
	require.NoError(t, err)

	f.doc = message.NewDocument(message.ModeContainer)
	c := f.doc.Container

	rowID, _ := c.AddComponent(message.BlockActionRow)
	row, _ := c.Row(rowID)
	f.replyBtn, _ = row.AddComponent(message.KindButton)
	_, err = c.SetAction(
		message.ActionTarget{OwnerKind: message.OwnerButton, OwnerID: f.replyBtn, BlockID: rowID},
		&message.BotAction{Name: "faq", Type: message.ActionReply, Parameters: message.ActionParameters{Message: &nested}},
	)
	require.NoError(t, err)

	menuRowID, _ := c.AddComponent(message.BlockActionRow)
	menuRow, _ := c.Row(menuRowID)
	f.menuID, err = menuRow.AddComponent(message.KindSelect)
	require.NoError(t, err)
	menu, _ := menuRow.SelectMenu(f.menuID)
	f.optionID, _ = menu.AddOption()
	_, _ = menu.AddOption()
	_, err = c.SetAction(
		message.ActionTarget{OwnerKind: message.OwnerOption, OwnerID: f.optionID, BlockID: menuRowID, MenuID: f.menuID},
		&message.BotAction{Name: "red role", Type: message.ActionAssignRole, Parameters: message.ActionParameters{RoleID: "r1"}},
	)
	require.NoError(t, err)

	secID, _ := c.AddComponent(message.BlockSection)
	_, err = c.SetAccessory(secID, message.NewButtonAccessory(&message.Button{Label: "DM me", Style: message.StyleSecondary}))
	require.NoError(t, err)
	sec, _ := c.Block(secID)
	f.dmBtn = sec.Section.Accessory.Button.ID
	dm := message.NewDocument(message.ModeEmbed)
	dm.TextContent = "welcome aboard"
	_, err = c.SetAction(
		message.ActionTarget{OwnerKind: message.OwnerButton, OwnerID: f.dmBtn, BlockID: secID},
		&message.BotAction{Name: "dm", Type: message.ActionSendDM, Parameters: message.ActionParameters{DMMessage: &dm}},
	)
	require.NoError(t, err)
	return f
}

func TestResolve(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res, err := Resolve(f.doc, render.ButtonCustomID(f.replyBtn), nil)
	require.NoError(t, err)
	assert.Equal(t, message.KindButton, res.Kind)
	assert.Equal(t, message.ActionReply, res.Action.Type)

	res, err = Resolve(f.doc, render.SelectCustomID(f.menuID), []string{"option_1"})
	require.NoError(t, err)
	assert.Equal(t, f.optionID, res.OwnerID)
	assert.Equal(t, "r1", res.Action.Parameters.RoleID)

	res, err = Resolve(f.doc, render.ButtonCustomID(f.dmBtn), nil)
	require.NoError(t, err)
	assert.Equal(t, message.ActionSendDM, res.Action.Type)

	res, err = Resolve(f.doc, render.ButtonCustomID(f.nestedBtn), nil)
	require.NoError(t, err)
	assert.Equal(t, "r2", res.Action.Parameters.RoleID)

	_, err = Resolve(f.doc, render.SelectCustomID(f.menuID), []string{"option_2"})
	assert.ErrorIs(t, err, ErrNoAction)
	_, err = Resolve(f.doc, render.SelectCustomID(f.menuID), nil)
	assert.ErrorIs(t, err, ErrNoAction)
	_, err = Resolve(f.doc, render.ButtonCustomID("btn_missing"), nil)
	assert.ErrorIs(t, err, ErrUnknownComponent)
	_, err = Resolve(f.doc, "other-bot:thing", nil)
	assert.ErrorIs(t, err, ErrUnknownComponent)
	_, err = Resolve(message.NewDocument(message.ModeEmbed), render.ButtonCustomID(f.replyBtn), nil)
	assert.ErrorIs(t, err, ErrUnknownComponent)
}

func guildInteraction() *discordgo.Interaction {
	return &discordgo.Interaction{
		ID:      "i1",
		Type:    discordgo.InteractionMessageComponent,
		GuildID: "g1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1"}},
	}
}

func ackWith(text string) any {
	return mock.MatchedBy(func(r *discordgo.InteractionResponse) bool {
		return r.Data != nil && r.Data.Content == text && r.Data.Flags&discordgo.MessageFlagsEphemeral != 0
	})
}

func TestExecuteReply(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	res, err := Resolve(f.doc, render.ButtonCustomID(f.replyBtn), nil)
	require.NoError(t, err)

	d := new(MockDiscord)
	i := guildInteraction()
	d.On("InteractionRespond", i, mock.MatchedBy(func(r *discordgo.InteractionResponse) bool {
		return r.Type == discordgo.InteractionResponseChannelMessageWithSource &&
			r.Data.Flags&discordgo.MessageFlagsIsComponentsV2 != 0 &&
			r.Data.Flags&discordgo.MessageFlagsEphemeral != 0
	})).Return(nil).Once()

	require.NoError(t, NewExecutor(d).Execute(context.Background(), i, res.Action))
	d.AssertExpectations(t)
}

func TestExecuteAssignRole(t *testing.T) {
	t.Parallel()
	d := new(MockDiscord)
	i := guildInteraction()
	d.On("GuildMemberRoleAdd", "g1", "u1", "r1").Return(nil).Once()
	d.On("InteractionRespond", i, ackWith(AckRoleAssigned)).Return(nil).Once()

	action := message.BotAction{Name: "role", Type: message.ActionAssignRole, Parameters: message.ActionParameters{RoleID: "r1"}}
	require.NoError(t, NewExecutor(d).Execute(context.Background(), i, action))
	d.AssertExpectations(t)
}

func TestExecuteAssignRoleFailureNotifiesUser(t *testing.T) {
	t.Parallel()
	d := new(MockDiscord)
	i := guildInteraction()
	d.On("GuildMemberRoleAdd", "g1", "u1", "r1").Return(errors.New("missing permissions")).Once()
	d.On("InteractionRespond", i, ackWith(AckFailed)).Return(nil).Once()

	action := message.BotAction{Name: "role", Type: message.ActionAssignRole, Parameters: message.ActionParameters{RoleID: "r1"}}
	err := NewExecutor(d).Execute(context.Background(), i, action)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing permissions")
	d.AssertExpectations(t)
}

func TestExecuteSendDM(t *testing.T) {
	t.Parallel()
	d := new(MockDiscord)
	i := &discordgo.Interaction{ID: "i2", Type: discordgo.InteractionMessageComponent, User: &discordgo.User{ID: "u9"}}
	d.On("UserChannelCreate", "u9").Return(&discordgo.Channel{ID: "dm1"}, nil).Once()
	d.On("ChannelMessageSendComplex", "dm1", mock.MatchedBy(func(m *discordgo.MessageSend) bool {
		return m.Content == "welcome aboard" && len(m.Embeds) == 1
	})).Return(&discordgo.Message{ID: "m1"}, nil).Once()
	d.On("InteractionRespond", i, ackWith(AckDMSent)).Return(nil).Once()

	dm := message.NewDocument(message.ModeEmbed)
	dm.TextContent = "welcome aboard"
	action := message.BotAction{Name: "dm", Type: message.ActionSendDM, Parameters: message.ActionParameters{DMMessage: &dm}}
	require.NoError(t, NewExecutor(d).Execute(context.Background(), i, action))
	d.AssertExpectations(t)
}

func TestExecuteRejectsIncompleteAction(t *testing.T) {
	t.Parallel()
	d := new(MockDiscord)
	i := guildInteraction()
	d.On("InteractionRespond", i, ackWith(AckFailed)).Return(nil).Twice()

	ex := NewExecutor(d)
	assert.Error(t, ex.Execute(context.Background(), i, message.BotAction{Name: "r", Type: message.ActionReply}))
	assert.Error(t, ex.Execute(context.Background(), i, message.BotAction{Type: message.ActionAssignRole}))
	d.AssertExpectations(t)
	d.AssertNotCalled(t, "GuildMemberRoleAdd", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcherRoutesThroughStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	st := store.NewMemory()
	other := message.NewDocument(message.ModeEmbed)
	require.NoError(t, st.PutResponse(ctx, "g1", "aaa", message.RecordFromDocument(other)))
	require.NoError(t, st.PutResponse(ctx, "g1", "roles", message.RecordFromDocument(f.doc)))

	d := new(MockDiscord)
	i := guildInteraction()
	i.Data = discordgo.MessageComponentInteractionData{CustomID: render.SelectCustomID(f.menuID), Values: []string{"option_1"}}
	d.On("GuildMemberRoleAdd", "g1", "u1", "r1").Return(nil).Once()
	d.On("InteractionRespond", i, ackWith(AckRoleAssigned)).Return(nil).Once()

	disp := NewDispatcher(st, NewExecutor(d))
	require.NoError(t, disp.Dispatch(ctx, i))
	d.AssertExpectations(t)
}

func TestDispatcherUnknownAndForeignComponents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	d := new(MockDiscord)
	disp := NewDispatcher(st, NewExecutor(d))

	foreign := guildInteraction()
	foreign.Data = discordgo.MessageComponentInteractionData{CustomID: "ticket:open"}
	require.NoError(t, disp.Dispatch(ctx, foreign))
	require.NoError(t, disp.Dispatch(ctx, &discordgo.Interaction{Type: discordgo.InteractionPing}))

	stale := guildInteraction()
	stale.Data = discordgo.MessageComponentInteractionData{CustomID: render.ButtonCustomID("btn_gone")}
	d.On("InteractionRespond", stale, ackWith(AckUnconfigured)).Return(nil).Once()
	assert.ErrorIs(t, disp.Dispatch(ctx, stale), ErrUnknownComponent)
	d.AssertExpectations(t)
}

func TestInteractionUserID(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "u1", InteractionUserID(guildInteraction()))
	assert.Equal(t, "u2", InteractionUserID(&discordgo.Interaction{User: &discordgo.User{ID: "u2"}}))
	assert.Empty(t, InteractionUserID(&discordgo.Interaction{}))
	assert.Empty(t, InteractionUserID(nil))
}
