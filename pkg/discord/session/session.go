// Package session creates discordgo sessions for REST calls and for the
// interaction gateway.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/small-frappuccino/botdash/pkg/errutil"
	"github.com/small-frappuccino/botdash/pkg/log"
)

// Error messages
const (
	ErrSessionCreationFailed   = "failed to create Discord session: %w"
	ErrSessionConnectionFailed = "failed to connect to Discord: %w"
)

// Stubbed in tests.
var (
	newSession   = discordgo.New
	openSession  = func(s *discordgo.Session) error { return s.Open() }
	closeSession = func(s *discordgo.Session) error { return s.Close() }
)

// NewRESTSession returns a session that never opens the gateway. An empty
// token is allowed: webhook calls authenticate through the webhook URL.
func NewRESTSession(token string) (*discordgo.Session, error) {
	auth := ""
	if t := strings.TrimSpace(token); t != "" {
		auth = "Bot " + t
	}
	var s *discordgo.Session
	if err := errutil.HandleDiscordError("create_session", func() error {
		var err error
		s, err = newSession(auth)
		return err
	}); err != nil {
		return nil, fmt.Errorf(ErrSessionCreationFailed, err)
	}
	s.UserAgent = "botdash (https://github.com/small-frappuccino/botdash)"
	return s, nil
}

// NewGatewaySession connects a bot session that receives component
// interactions. Handlers are registered before the connection opens.
func NewGatewaySession(token string, handlers ...any) (*discordgo.Session, error) {
	if strings.TrimSpace(token) == "" {
		log.ErrorLoggerRaw().Error("Discord bot token is empty; set discord.token before enabling the gateway")
		return nil, errors.New("discord bot token is empty")
	}
	s, err := NewRESTSession(token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	for _, h := range handlers {
		s.AddHandler(h)
	}

	log.DiscordLogger().Info("Connecting to Discord gateway")
	if err := errutil.HandleDiscordError("connect", func() error { return openSession(s) }); err != nil {
		_ = closeSession(s)
		return nil, fmt.Errorf(ErrSessionConnectionFailed, err)
	}
	log.DiscordLogger().Info("Connected to Discord gateway")
	return s, nil
}
