package commands

import (
	"github.com/bwmarrin/discordgo"
)

// Leave drops any queued clips and disconnects the bot from the
// guild's voice channel.
func (h *Handler) Leave(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" {
		s.ChannelMessageSend(m.ChannelID, "This command is not supported in private messages.")
		return
	}

	h.player.HandleForcedDisconnect(m.GuildID)
	h.player.Leave(m.GuildID)
	s.ChannelMessageSend(m.ChannelID, "Left the voice channel.")
}
