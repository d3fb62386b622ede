package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/voxclip/voxclip/pkg/clips"
)

// Play queues the named clip for playback in the caller's voice channel.
func (h *Handler) Play(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if m.GuildID == "" {
		s.ChannelMessageSend(m.ChannelID, "This command is not supported in private messages.")
		return
	}
	if len(args) < 1 {
		s.ChannelMessageSend(m.ChannelID, "Please provide a clip name. **Usage:** `!play <clip>`")
		return
	}

	channelID := userVoiceChannel(s, m.GuildID, m.Author.ID)
	if channelID == "" {
		s.ChannelMessageSend(m.ChannelID, "You must be joined to a voice channel to play a clip.")
		return
	}

	clipName := strings.ToLower(strings.Join(args, " "))
	clip, err := h.repo.GetByCommand(clipName)
	if errors.Is(err, clips.ErrNotFound) {
		s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("The requested clip \"%s\" was not found.", clipName))
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("clip", clipName).Msg("clip lookup failed")
		s.ChannelMessageSend(m.ChannelID, "Something went wrong looking up that clip.")
		return
	}

	path, err := h.files.EnsureLocal(context.Background(), clip)
	if err != nil {
		h.logger.Error().Err(err).Str("clip", clip.Command).Msg("clip download failed")
		s.ChannelMessageSend(m.ChannelID, "Unable to fetch the clip audio. Please try again later.")
		return
	}

	if !h.player.Play(m.GuildID, channelID, clip, path) {
		s.ChannelMessageSend(m.ChannelID, "Unable to queue clip, the queue may be full. Please try again later.")
		return
	}

	if err := h.repo.IncrementCounter(clip.ID); err != nil {
		h.logger.Warn().Err(err).Str("clip", clip.Command).Msg("play counter update failed")
	}
}
