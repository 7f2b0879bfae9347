// Package render turns message documents into discordgo payloads.
package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/botdash/pkg/message"
)

// Message is the mode-independent rendering of a document.
type Message struct {
	Content    string                       `json:"content,omitempty"`
	Embeds     []*discordgo.MessageEmbed    `json:"embeds,omitempty"`
	Components []discordgo.MessageComponent `json:"components,omitempty"`
	Flags      discordgo.MessageFlags       `json:"flags,omitempty"`
}

// Document validates doc and renders it.
// Embed mode yields text content plus one embed. Container mode yields a
// Components V2 message; its text content becomes a leading text display
// because V2 messages cannot carry content.
func Document(doc message.Document) (*Message, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	switch doc.Mode {
	case message.ModeEmbed:
		embed, err := Embed(doc.Embed)
		if err != nil {
			return nil, err
		}
		return &Message{Content: doc.TextContent, Embeds: []*discordgo.MessageEmbed{embed}}, nil
	default:
		var comps []discordgo.MessageComponent
		if strings.TrimSpace(doc.TextContent) != "" {
			comps = append(comps, discordgo.TextDisplay{Content: doc.TextContent})
		}
		c, err := Container(doc.Container)
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
		return &Message{Components: comps, Flags: discordgo.MessageFlagsIsComponentsV2}, nil
	}
}

// MessageSend renders doc for a channel message.
func MessageSend(doc message.Document) (*discordgo.MessageSend, error) {
	m, err := Document(doc)
	if err != nil {
		return nil, err
	}
	return &discordgo.MessageSend{
		Content:    m.Content,
		Embeds:     m.Embeds,
		Components: m.Components,
		Flags:      m.Flags,
	}, nil
}

// WebhookParams renders doc for a webhook execution.
func WebhookParams(doc message.Document) (*discordgo.WebhookParams, error) {
	m, err := Document(doc)
	if err != nil {
		return nil, err
	}
	return &discordgo.WebhookParams{
		Content:    m.Content,
		Embeds:     m.Embeds,
		Components: m.Components,
		Flags:      m.Flags,
	}, nil
}

// WebhookEdit renders doc as a full replacement of a webhook message.
// Content is left untouched for container documents.
func WebhookEdit(doc message.Document) (*discordgo.WebhookEdit, error) {
	m, err := Document(doc)
	if err != nil {
		return nil, err
	}
	embeds := m.Embeds
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	comps := m.Components
	if comps == nil {
		comps = []discordgo.MessageComponent{}
	}
	edit := &discordgo.WebhookEdit{Embeds: &embeds, Components: &comps}
	if doc.Mode == message.ModeEmbed {
		content := m.Content
		edit.Content = &content
	}
	return edit, nil
}

// InteractionResponse renders doc as a channel message reply.
func InteractionResponse(doc message.Document, ephemeral bool) (*discordgo.InteractionResponse, error) {
	m, err := Document(doc)
	if err != nil {
		return nil, err
	}
	flags := m.Flags
	if ephemeral {
		flags |= discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    m.Content,
			Embeds:     m.Embeds,
			Components: m.Components,
			Flags:      flags,
		},
	}, nil
}

// Embed converts an embed draft.
func Embed(e *message.Embed) (*discordgo.MessageEmbed, error) {
	if e == nil {
		return nil, fmt.Errorf("render embed: nil embed")
	}
	color, err := ParseColor(e.Color)
	if err != nil {
		return nil, err
	}
	out := &discordgo.MessageEmbed{Color: color}
	if e.Author != nil {
		out.Author = &discordgo.MessageEmbedAuthor{Name: e.Author.Name, IconURL: e.Author.IconURL}
	}
	if e.Title != nil {
		out.Title = *e.Title
	}
	if e.Description != nil {
		out.Description = *e.Description
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != nil {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer.Text, IconURL: e.Footer.IconURL}
	}
	if e.Image != nil {
		out.Image = &discordgo.MessageEmbedImage{URL: e.Image.URL}
	}
	if e.Thumbnail != nil {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail.URL}
	}
	return out, nil
}

// ParseColor converts "#RRGGBB" into Discord's integer color.
func ParseColor(hex string) (int, error) {
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil || !strings.HasPrefix(hex, "#") || len(hex) != 7 {
		return 0, message.NewValidationError("color", hex, "color must be #RRGGBB")
	}
	return int(v), nil
}

// Container converts a container draft. Empty action rows are dropped and a
// section without an accessory degrades to a plain text display.
func Container(c *message.Container) (discordgo.Container, error) {
	if c == nil {
		return discordgo.Container{}, fmt.Errorf("render container: nil container")
	}
	out := discordgo.Container{Components: []discordgo.MessageComponent{}}
	if c.AccentColor != nil {
		color, err := ParseColor(*c.AccentColor)
		if err != nil {
			return discordgo.Container{}, err
		}
		out.AccentColor = &color
	}
	for _, b := range c.Components {
		comp, ok := block(b)
		if ok {
			out.Components = append(out.Components, comp)
		}
	}
	return out, nil
}

func block(b message.Block) (discordgo.MessageComponent, bool) {
	switch b.Type {
	case message.BlockText:
		return discordgo.TextDisplay{Content: b.Text.Content}, true
	case message.BlockActionRow:
		row := ActionRow(b.Row)
		return row, len(row.Components) > 0
	case message.BlockSection:
		text := discordgo.TextDisplay{Content: b.Section.Content}
		acc := b.Section.Accessory
		if acc == nil {
			return text, true
		}
		sec := discordgo.Section{Components: []discordgo.MessageComponent{text}}
		switch acc.Type {
		case message.AccessoryButton:
			sec.Accessory = Button(acc.Button)
		case message.AccessoryImage:
			th := discordgo.Thumbnail{Media: discordgo.UnfurledMediaItem{URL: acc.Image.URL}}
			if acc.Image.Description != "" {
				d := acc.Image.Description
				th.Description = &d
			}
			sec.Accessory = th
		}
		return sec, true
	case message.BlockMediaGallery:
		g := discordgo.MediaGallery{Items: make([]discordgo.MediaGalleryItem, 0, len(b.Gallery.Items))}
		for _, it := range b.Gallery.Items {
			item := discordgo.MediaGalleryItem{Media: discordgo.UnfurledMediaItem{URL: it.URL}, Spoiler: it.Spoiler}
			if it.Description != "" {
				d := it.Description
				item.Description = &d
			}
			g.Items = append(g.Items, item)
		}
		return g, len(g.Items) > 0
	case message.BlockFile:
		return discordgo.FileComponent{File: discordgo.UnfurledMediaItem{URL: b.File.URL}, Spoiler: b.File.Spoiler}, true
	case message.BlockSeparator:
		divider := b.Separator.Divider
		spacing := discordgo.SeparatorSpacingSizeSmall
		if b.Separator.Spacing == message.SpacingLarge {
			spacing = discordgo.SeparatorSpacingSizeLarge
		}
		return discordgo.Separator{Divider: &divider, Spacing: &spacing}, true
	}
	return nil, false
}

// ActionRow converts a row of buttons or a select menu.
func ActionRow(r *message.ActionRow) discordgo.ActionsRow {
	out := discordgo.ActionsRow{}
	if r == nil {
		return out
	}
	for _, c := range r.Components {
		switch c.Kind() {
		case message.KindButton:
			out.Components = append(out.Components, Button(c.Button))
		case message.KindSelect:
			out.Components = append(out.Components, SelectMenu(c.Select))
		}
	}
	return out
}

var buttonStyles = map[message.ButtonStyle]discordgo.ButtonStyle{
	message.StylePrimary:   discordgo.PrimaryButton,
	message.StyleSecondary: discordgo.SecondaryButton,
	message.StyleSuccess:   discordgo.SuccessButton,
	message.StyleDanger:    discordgo.DangerButton,
	message.StyleLink:      discordgo.LinkButton,
}

// Button converts a button. Link buttons carry their URL, all others a custom id.
func Button(b *message.Button) discordgo.Button {
	style, ok := buttonStyles[b.Style]
	if !ok {
		style = discordgo.PrimaryButton
	}
	out := discordgo.Button{
		Label:    b.Label,
		Style:    style,
		Disabled: b.Disabled,
		Emoji:    Emoji(b.Emoji),
	}
	if b.Style == message.StyleLink {
		out.URL = b.URL
	} else {
		out.CustomID = ButtonCustomID(b.ID)
	}
	return out
}

// SelectMenu converts a string select menu.
func SelectMenu(m *message.SelectMenu) discordgo.SelectMenu {
	out := discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    SelectCustomID(m.ID),
		Placeholder: m.Placeholder,
		MinValues:   m.MinValues,
		Options:     make([]discordgo.SelectMenuOption, 0, len(m.Options)),
	}
	if m.MaxValues != nil {
		out.MaxValues = *m.MaxValues
	}
	for _, o := range m.Options {
		out.Options = append(out.Options, discordgo.SelectMenuOption{
			Label:       o.Label,
			Value:       o.Value,
			Description: o.Description,
			Emoji:       Emoji(o.Emoji),
			Default:     o.Default,
		})
	}
	return out
}

var customEmoji = regexp.MustCompile(`^<(a?):([A-Za-z0-9_]+):(\d+)>$`)

// Emoji parses a unicode emoji or a custom "<:name:id>" reference.
func Emoji(s string) *discordgo.ComponentEmoji {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if m := customEmoji.FindStringSubmatch(s); m != nil {
		return &discordgo.ComponentEmoji{Name: m[2], ID: m[3], Animated: m[1] == "a"}
	}
	return &discordgo.ComponentEmoji{Name: s}
}
