package handlers

import (
	"github.com/bwmarrin/discordgo"
)

// Disconnector is notified when the bot loses its voice connection
// outside of its own control, such as a moderator disconnect.
type Disconnector interface {
	HandleForcedDisconnect(guildID string)
}

// VoiceStateHandler watches the bot's own voice state so queued clips
// are dropped when someone kicks the bot out of a channel.
type VoiceStateHandler struct {
	playback Disconnector
}

func NewVoiceStateHandler(playback Disconnector) *VoiceStateHandler {
	return &VoiceStateHandler{playback: playback}
}

func (h *VoiceStateHandler) Handle(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.UserID != s.State.User.ID {
		return
	}
	// ChannelID is empty when the bot left or was removed from voice.
	if v.ChannelID == "" {
		h.playback.HandleForcedDisconnect(v.GuildID)
	}
}
