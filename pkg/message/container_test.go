package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerAddSeparatorDefaults(t *testing.T) {
	t.Parallel()

	c := NewContainer()
	id, err := c.AddComponent(BlockSeparator)
	require.NoError(t, err)

	require.Len(t, c.Components, 1)
	b := c.Components[0]
	assert.Equal(t, id, b.ID)
	assert.Equal(t, SeparatorBlock{Spacing: SpacingNormal, Divider: true}, *b.Separator)
}

func TestContainerBlockDefaults(t *testing.T) {
	t.Parallel()

	c := NewContainer()
	for _, bt := range []BlockType{BlockText, BlockActionRow, BlockSection, BlockMediaGallery, BlockFile, BlockSeparator} {
		_, err := c.AddComponent(bt)
		require.NoError(t, err)
	}

	data, err := json.Marshal(c.Components[2])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+c.Components[2].ID+`","type":"section","content":"","accessory":null}`, string(data))

	data, err = json.Marshal(c.Components[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+c.Components[1].ID+`","type":"actionRow","components":[]}`, string(data))

	_, err = c.AddComponent("poll")
	assert.True(t, IsValidation(err))
	assert.Len(t, c.Components, 6)
	require.NoError(t, c.Validate())
}

func TestContainerSeparatorTogglesIndependently(t *testing.T) {
	t.Parallel()

	c := NewContainer()
	id, _ := c.AddComponent(BlockSeparator)

	off := false
	ok, err := c.UpdateComponent(id, BlockPatch{Divider: &off})
	require.NoError(t, err)
	require.True(t, ok)
	b, _ := c.Block(id)
	assert.Equal(t, SpacingNormal, b.Separator.Spacing)
	assert.False(t, b.Separator.Divider)

	large := SpacingLarge
	_, err = c.UpdateComponent(id, BlockPatch{Spacing: &large})
	require.NoError(t, err)
	assert.Equal(t, SpacingLarge, b.Separator.Spacing)
	assert.False(t, b.Separator.Divider)

	bogus := SeparatorSpacing("huge")
	_, err = c.UpdateComponent(id, BlockPatch{Spacing: &bogus})
	assert.True(t, IsValidation(err))

	_, err = c.UpdateComponent(id, BlockPatch{Content: ptr("x")})
	assert.True(t, IsValidation(err))
}

func TestContainerSectionAccessoryReplacedWholesale(t *testing.T) {
	t.Parallel()

	c := NewContainer()
	id, _ := c.AddComponent(BlockSection)

	btn := NewButton()
	btn.Action = &BotAction{Name: "hi", Type: ActionReply}
	ok, err := c.SetAccessory(id, NewButtonAccessory(btn))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.SetAccessory(id, NewImageAccessory("https://cdn.example.com/a.png", ""))
	require.NoError(t, err)
	require.True(t, ok)

	b, _ := c.Block(id)
	require.NotNil(t, b.Section.Accessory)
	assert.Equal(t, AccessoryImage, b.Section.Accessory.Type)
	assert.Nil(t, b.Section.Accessory.Button)

	ok, err = c.SetAccessory(id, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, b.Section.Accessory)

	textID, _ := c.AddComponent(BlockText)
	_, err = c.SetAccessory(textID, NewImageAccessory("u", ""))
	assert.True(t, IsValidation(err))
}

func TestContainerSetActionOnSectionButton(t *testing.T) {
	t.Parallel()

	c := NewContainer()
	id, _ := c.AddComponent(BlockSection)
	_, err := c.SetAccessory(id, NewButtonAccessory(&Button{Label: "Go", Style: StylePrimary}))
	require.NoError(t, err)

	b, _ := c.Block(id)
	btnID := b.Section.Accessory.Button.ID
	require.NotEmpty(t, btnID)

	ok, err := c.SetAction(ActionTarget{OwnerKind: OwnerButton, OwnerID: btnID, BlockID: id}, &BotAction{Name: "dm", Type: ActionSendDM})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ActionSendDM, b.Section.Accessory.Button.Action.Type)
}

func TestContainerNestedRowDelegation(t *testing.T) {
	t.Parallel()

	c := NewContainer()
	rowID, _ := c.AddComponent(BlockActionRow)
	row, ok := c.Row(rowID)
	require.True(t, ok)

	btnID, err := row.AddComponent(KindButton)
	require.NoError(t, err)

	ok, err = c.SetAction(ActionTarget{OwnerKind: OwnerButton, OwnerID: btnID, BlockID: rowID}, &BotAction{Name: "reply", Type: ActionReply})
	require.NoError(t, err)
	require.True(t, ok)

	b, _ := c.Components[0].Row.Button(btnID)
	assert.Equal(t, "reply", b.Action.Name)

	assert.True(t, c.RemoveComponent(rowID))
	assert.False(t, c.RemoveComponent(rowID))
	assert.Empty(t, c.Components)
}

func TestContainerMediaGallery(t *testing.T) {
	t.Parallel()

	c := NewContainer()
	id, _ := c.AddComponent(BlockMediaGallery)
	for i := 0; i < MaxGalleryItems; i++ {
		ok, err := c.AddMediaItem(id, MediaItem{URL: "https://cdn.example.com/x.png"})
		require.NoError(t, err)
		require.True(t, ok)
	}
	_, err := c.AddMediaItem(id, MediaItem{URL: "u"})
	assert.True(t, IsCapacity(err))

	assert.True(t, c.RemoveMediaItem(id, 0))
	assert.False(t, c.RemoveMediaItem(id, 99))
	b, _ := c.Block(id)
	assert.Len(t, b.Gallery.Items, MaxGalleryItems-1)
}

func TestContainerJSONRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewContainer()
	require.NoError(t, c.SetAccentColor("#5865f2"))
	textID, _ := c.AddComponent(BlockText)
	_, _ = c.UpdateComponent(textID, BlockPatch{Content: ptr("hello **world**")})
	secID, _ := c.AddComponent(BlockSection)
	_, _ = c.SetAccessory(secID, NewImageAccessory("https://cdn.example.com/t.png", "thumb"))
	rowID, _ := c.AddComponent(BlockActionRow)
	row, _ := c.Row(rowID)
	menuID, _ := row.AddComponent(KindSelect)
	menu, _ := row.SelectMenu(menuID)
	_, _ = menu.AddOption()
	_, _ = c.AddComponent(BlockFile)
	_, _ = c.AddComponent(BlockSeparator)

	first, err := json.Marshal(c)
	require.NoError(t, err)

	var back Container
	require.NoError(t, json.Unmarshal(first, &back))
	second, err := json.Marshal(&back)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, c, &back)
}
