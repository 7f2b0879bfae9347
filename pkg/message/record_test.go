package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populatedEmbedDocument() Document {
	doc := NewDocument(ModeEmbed)
	doc.TextContent = "Welcome!"
	e := doc.Embed
	_ = e.Apply(EmbedPatch{
		AuthorName:   ptr("Bot"),
		Title:        ptr("Rules"),
		Description:  ptr("Be nice."),
		FooterText:   ptr("mods"),
		ThumbnailURL: ptr("https://cdn.example.com/t.png"),
		Color:        ptr("#5865F2"),
	})
	id := e.AddField()
	e.UpdateField(id, FieldPatch{Name: ptr("1"), Value: ptr("No spam")})
	e.AddField()
	return doc
}

func populatedContainerDocument() Document {
	doc := NewDocument(ModeContainer)
	c := doc.Container
	textID, _ := c.AddComponent(BlockText)
	_, _ = c.UpdateComponent(textID, BlockPatch{Content: ptr("# Roles")})
	rowID, _ := c.AddComponent(BlockActionRow)
	row, _ := c.Row(rowID)
	btnID, _ := row.AddComponent(KindButton)
	_, _ = c.SetAction(ActionTarget{OwnerKind: OwnerButton, OwnerID: btnID, BlockID: rowID}, &BotAction{
		Name: "give-role", Type: ActionAssignRole, Parameters: ActionParameters{RoleID: "123"},
	})
	nested := NewDocument(ModeEmbed)
	_ = nested.Embed.Apply(EmbedPatch{Title: ptr("Thanks")})
	_, _ = row.AddComponent(KindButton)
	_, _ = row.SetAction(ActionTarget{OwnerKind: OwnerButton, OwnerID: row.Components[1].ID()}, &BotAction{
		Name: "reply", Type: ActionReply, Parameters: ActionParameters{Message: &nested},
	})
	secID, _ := c.AddComponent(BlockSection)
	_, _ = c.SetAccessory(secID, NewButtonAccessory(&Button{Label: "Docs", Style: StyleLink, URL: "https://example.com"}))
	_, _ = c.AddComponent(BlockSeparator)
	return doc
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  Document
	}{
		{"embed", populatedEmbedDocument()},
		{"container", populatedContainerDocument()},
		{"empty embed", NewDocument(ModeEmbed)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.doc.Validate())

			data, err := json.Marshal(RecordFromDocument(tt.doc))
			require.NoError(t, err)

			rec, err := DecodeRecord(data)
			require.NoError(t, err)
			loaded, err := rec.Document()
			require.NoError(t, err)

			want, err := json.Marshal(tt.doc)
			require.NoError(t, err)
			got, err := json.Marshal(loaded)
			require.NoError(t, err)
			assert.Equal(t, string(want), string(got))
		})
	}
}

func TestRecordOmitsInactiveLayout(t *testing.T) {
	t.Parallel()

	doc := populatedEmbedDocument()
	doc.Container = NewContainer()

	data, err := json.Marshal(RecordFromDocument(doc))
	require.NoError(t, err)

	var raw map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw["response"], "embed")
	assert.NotContains(t, raw["response"], "container")
	assert.Contains(t, string(data), `"responseType":"embed"`)
}

func TestDecodeRecordRejectsBadInput(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{
		`not json`,
		`{"responseType":"poll","response":{}}`,
		`{"responseType":"embed","response":{"embed":{"color":"blue"}}}`,
		`{"responseType":"container","response":{"container":{"components":[{"id":"x","type":"weird"}]}}}`,
	} {
		_, err := DecodeRecord([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestRecordMissingLayoutFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	rec, err := DecodeRecord([]byte(`{"responseType":"container","response":{"content":"hi"}}`))
	require.NoError(t, err)
	doc, err := rec.Document()
	require.NoError(t, err)
	assert.Equal(t, "hi", doc.TextContent)
	require.NotNil(t, doc.Container)
	assert.Empty(t, doc.Container.Components)
	assert.Nil(t, doc.Embed)
}

func TestDocumentValidate(t *testing.T) {
	t.Parallel()

	doc := NewDocument(ModeEmbed)
	require.NoError(t, doc.Validate())

	doc.Container = NewContainer()
	assert.True(t, IsValidation(doc.Validate()))

	doc = Document{Mode: ModeContainer}
	assert.True(t, IsValidation(doc.Validate()))

	doc = Document{Mode: "plain"}
	assert.True(t, IsValidation(doc.Validate()))
}

func TestBotActionSetTypeClearsParameters(t *testing.T) {
	t.Parallel()

	a := &BotAction{Name: "x", Type: ActionAssignRole, Parameters: ActionParameters{RoleID: "1"}}
	a.SetType(ActionReply)
	assert.True(t, a.Parameters.IsZero())
	require.NoError(t, a.Validate())

	assert.True(t, IsValidation((&BotAction{Type: ActionReply}).Validate()))
	assert.True(t, IsValidation((&BotAction{Name: "x"}).Validate()))
	assert.True(t, IsValidation((&BotAction{Name: "x", Type: ActionReply, Parameters: ActionParameters{RoleID: "1"}}).Validate()))

	bad := Document{Mode: ModeEmbed}
	err := (&BotAction{Name: "x", Type: ActionSendDM, Parameters: ActionParameters{DMMessage: &bad}}).Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "parameters.dmMessage.embed", ve.Field)
}
