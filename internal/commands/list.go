package commands

import (
	"sort"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/voxclip/voxclip/pkg/clips"
)

// List sends the clip catalog as embeds. An optional count argument
// limits the listing, and `!list tag <tag>` filters by tag.
func (h *Handler) List(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	var list []*clips.Clip
	var err error
	if len(args) >= 2 && strings.EqualFold(args[0], "tag") {
		list, err = h.repo.ByTags(args[1:])
	} else {
		list, err = h.repo.All()
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("clip listing failed")
		s.ChannelMessageSend(m.ChannelID, "Something went wrong listing the clips.")
		return
	}

	if len(args) == 1 {
		if n, convErr := strconv.Atoi(args[0]); convErr == nil && n >= 0 && n < len(list) {
			list = list[:n]
		}
	}

	if len(list) == 0 {
		s.ChannelMessageSend(m.ChannelID, "There are no clips to list.")
		return
	}

	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})

	for _, embed := range ClipListEmbeds(list) {
		if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
			h.logger.Error().Err(err).Msg("sending clip list embed failed")
			return
		}
	}
}
