package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/voxclip/voxclip/pkg/clips"
	"github.com/voxclip/voxclip/pkg/ffmpeg"
)

// Normalize runs loudness normalization on a clip's local audio file.
// Restricted to the bot owner; the job runs in the background and the
// status message is edited as it progresses.
func (h *Handler) Normalize(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if h.ownerID == "" || m.Author.ID != h.ownerID {
		s.ChannelMessageSend(m.ChannelID, "This command is restricted to the bot owner.")
		return
	}
	if h.normalizer == nil {
		s.ChannelMessageSend(m.ChannelID, "Normalization is not available, ffmpeg was not found.")
		return
	}
	if len(args) < 1 {
		s.ChannelMessageSend(m.ChannelID, "Please provide a clip name. **Usage:** `!normalize <clip>`")
		return
	}

	clipName := strings.ToLower(args[0])
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

	status, err := s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Normalizing **%s**...", clip.Name))
	if err != nil {
		h.logger.Error().Err(err).Msg("sending normalize status failed")
		return
	}

	go h.runNormalize(s, status, clip, path)
}

// runNormalize executes one normalization job and reports its outcome.
// Progress edits are throttled to quarter steps to stay well inside
// Discord's edit rate limits.
func (h *Handler) runNormalize(s *discordgo.Session, status *discordgo.Message, clip *clips.Clip, path string) {
	lastQuarter := 0
	progress := func(fraction float64) {
		quarter := int(fraction * 4)
		if quarter <= lastQuarter || quarter >= 4 {
			return
		}
		lastQuarter = quarter
		content := fmt.Sprintf("Normalizing **%s**... %d%%", clip.Name, quarter*25)
		s.ChannelMessageEdit(status.ChannelID, status.ID, content)
	}

	result, err := h.normalizer.Normalize(context.Background(), path, progress)
	if h.metrics != nil {
		h.metrics.NormalizationFinished(result.String())
	}

	var content string
	switch result {
	case ffmpeg.ResultUpdated:
		content = fmt.Sprintf("Normalized **%s**.", clip.Name)
	case ffmpeg.ResultSkipped:
		content = fmt.Sprintf("Skipped **%s**, no local audio to normalize.", clip.Name)
	default:
		h.logger.Error().Err(err).Str("clip", clip.Command).Msg("normalization failed")
		content = fmt.Sprintf("Normalization of **%s** failed, the original audio was restored.", clip.Name)
	}
	if _, err := s.ChannelMessageEdit(status.ChannelID, status.ID, content); err != nil {
		h.logger.Error().Err(err).Msg("editing normalize status failed")
	}
}
