// Package handlers adapts gateway events to the command and playback
// layers.
package handlers

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/voxclip/voxclip/internal/commands"
)

// MessageHandler dispatches prefix commands. The bare "pp <clip>"
// shorthand plays a clip without the prefix.
type MessageHandler struct {
	commands *commands.Handler
	prefix   string
}

func NewMessageHandler(cmds *commands.Handler, prefix string) *MessageHandler {
	if prefix == "" {
		prefix = "!"
	}
	return &MessageHandler{commands: cmds, prefix: prefix}
}

func (h *MessageHandler) Handle(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore all messages created by the bot itself
	if m.Author.ID == s.State.User.ID {
		return
	}

	// "pp airhorn" is shorthand for "!play airhorn"
	fields := strings.Fields(m.Content)
	if len(fields) >= 2 && strings.EqualFold(fields[0], "pp") {
		h.commands.Play(s, m, fields[1:])
		return
	}

	if !strings.HasPrefix(m.Content, h.prefix) {
		return
	}

	args := strings.Fields(strings.TrimPrefix(m.Content, h.prefix))
	if len(args) == 0 {
		return
	}
	command := strings.ToLower(args[0])

	switch command {
	case "play":
		h.commands.Play(s, m, args[1:])
	case "list":
		h.commands.List(s, m, args[1:])
	case "tags":
		h.commands.Tags(s, m)
	case "addtag", "add-tag":
		h.commands.AddTag(s, m, args[1:])
	case "mostplayed":
		h.commands.MostPlayed(s, m, args[1:])
	case "leave":
		h.commands.Leave(s, m)
	case "normalize":
		h.commands.Normalize(s, m, args[1:])
	case "help":
		s.ChannelMessageSend(m.ChannelID, "Commands: `!play <clip>`, `!list`, `!tags`, `!addtag <clip> <tag>`, `!mostplayed`, `!leave`, `!normalize <clip>`. You can also use `pp <clip>` as a shortcut for play.")
	}
}
