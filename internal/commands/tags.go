package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/voxclip/voxclip/pkg/clips"
)

// Tags lists every distinct tag across all clips.
func (h *Handler) Tags(s *discordgo.Session, m *discordgo.MessageCreate) {
	tags, err := h.repo.AllTags()
	if err != nil {
		h.logger.Error().Err(err).Msg("tag listing failed")
		s.ChannelMessageSend(m.ChannelID, "Something went wrong listing the tags.")
		return
	}
	if len(tags) == 0 {
		s.ChannelMessageSend(m.ChannelID, "No clips have been tagged yet.")
		return
	}
	s.ChannelMessageSend(m.ChannelID, "Tags: "+strings.Join(tags, ", "))
}

// AddTag adds one or more tags to a clip, skipping tags it already has.
func (h *Handler) AddTag(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 2 {
		s.ChannelMessageSend(m.ChannelID, "Please provide a clip and at least one tag. **Usage:** `!addtag <clip> <tag> [tag...]`")
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

	merged, added := mergeTags(clip.Tags, args[1:])
	if added == 0 {
		s.ChannelMessageSend(m.ChannelID, "All specified tags already exist. Please enter new tags if needed.")
		return
	}

	clip.Tags = merged
	clip.ModifiedBy = m.Author.Username
	if err := h.repo.Update(clip); err != nil {
		h.logger.Error().Err(err).Str("clip", clip.Command).Msg("tag update failed")
		s.ChannelMessageSend(m.ChannelID, "Record failed to update.")
		return
	}
	s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("Added %d tag(s) to **%s**.", added, clip.Name))
}

// mergeTags unions incoming tags into existing ones, case-insensitive,
// and reports how many were actually new.
func mergeTags(existing, incoming []string) ([]string, int) {
	seen := make(map[string]bool, len(existing))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, t := range existing {
		seen[strings.ToLower(t)] = true
		merged = append(merged, t)
	}

	added := 0
	for _, t := range incoming {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		merged = append(merged, t)
		added++
	}
	return merged, added
}
