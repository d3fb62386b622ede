package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const defaultMostPlayedCount = 10

// MostPlayed shows the most-played clips by play counter.
func (h *Handler) MostPlayed(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	limit := defaultMostPlayedCount
	if len(args) >= 1 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}

	list, err := h.repo.MostPlayed(limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("most played listing failed")
		s.ChannelMessageSend(m.ChannelID, "Something went wrong listing the clips.")
		return
	}
	if len(list) == 0 {
		s.ChannelMessageSend(m.ChannelID, "No clips have been played yet.")
		return
	}

	var body strings.Builder
	for i, clip := range list {
		body.WriteString(fmt.Sprintf("%d. **%s** (%d plays)\n", i+1, clip.Name, clip.Counter))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Most played clips",
		Description: body.String(),
		Color:       embedColor,
	}
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		h.logger.Error().Err(err).Msg("sending most played embed failed")
	}
}
