package commands

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/voxclip/voxclip/pkg/clips"
)

const (
	embedColor = 0x7289DA

	// Discord caps embeds at 6000 characters and 25 fields; both
	// checks stay under by a margin.
	maxEmbedLength = 5900
	maxEmbedFields = 22
	maxFieldLength = 1024

	listTitle          = "These are the audio clip commands you can use"
	listTitleContinued = listTitle + " (Continued)"
)

// ClipListEmbeds builds the clip list as a series of embeds, with one
// inline column per starting letter, a 0-9 column for names starting
// with a digit, and trailing Other columns for everything else.
// Columns that exceed the field limit spill into "(Continued)" columns,
// and embeds that hit Discord's size limits spill into further embeds.
func ClipListEmbeds(list []*clips.Clip) []*discordgo.MessageEmbed {
	var embeds []*discordgo.MessageEmbed

	embed := &discordgo.MessageEmbed{Title: listTitle, Color: embedColor}
	var numbers, current strings.Builder
	var otherNames []string
	totalLength := 0
	lastStart := 'a'
	lastColumnTitle := ""

	flushColumn := func() {
		if current.Len() == 0 {
			return
		}
		title := strings.ToUpper(string(lastStart))
		if title == lastColumnTitle {
			title += " (Continued)"
		} else {
			lastColumnTitle = title
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   title,
			Value:  current.String(),
			Inline: true,
		})
		totalLength += current.Len()
		current.Reset()
	}

	flushEmbed := func() {
		flushColumn()
		if numbers.Len() > 0 {
			embed.Fields = append([]*discordgo.MessageEmbedField{{
				Name:   "0-9",
				Value:  numbers.String(),
				Inline: true,
			}}, embed.Fields...)
			numbers.Reset()
		}
		embeds = append(embeds, embed)
		embed = &discordgo.MessageEmbed{Title: listTitleContinued, Color: embedColor}
		totalLength = 0
	}

	for _, clip := range list {
		if clip.Name == "" {
			continue
		}
		name := clip.Name + "\n"
		first, _ := utf8.DecodeRuneInString(clip.Name)

		if !unicode.IsLetter(first) && !unicode.IsDigit(first) {
			otherNames = append(otherNames, name)
			continue
		}

		if totalLength+current.Len()+len(name) >= maxEmbedLength ||
			len(embed.Fields) >= maxEmbedFields {
			flushEmbed()
		}

		if unicode.IsDigit(first) {
			numbers.WriteString(name)
			totalLength += len(name)
			continue
		}

		if unicode.ToLower(lastStart) != unicode.ToLower(first) ||
			current.Len()+len(name) >= maxFieldLength {
			flushColumn()
		}
		current.WriteString(name)
		lastStart = first
	}

	flushColumn()
	if numbers.Len() > 0 {
		embed.Fields = append([]*discordgo.MessageEmbedField{{
			Name:   "0-9",
			Value:  numbers.String(),
			Inline: true,
		}}, embed.Fields...)
	}

	// The Other columns obey the same field and embed limits as the
	// lettered ones.
	otherTitle := "Other"
	flushOther := func() {
		if current.Len() == 0 {
			return
		}
		if totalLength+current.Len() >= maxEmbedLength ||
			len(embed.Fields) >= maxEmbedFields {
			embeds = append(embeds, embed)
			embed = &discordgo.MessageEmbed{Title: listTitleContinued, Color: embedColor}
			totalLength = 0
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   otherTitle,
			Value:  current.String(),
			Inline: true,
		})
		totalLength += current.Len()
		current.Reset()
		otherTitle = "Other (Continued)"
	}
	for _, name := range otherNames {
		if current.Len()+len(name) >= maxFieldLength {
			flushOther()
		}
		current.WriteString(name)
	}
	flushOther()

	if len(embed.Fields) > 0 || len(embeds) == 0 {
		embeds = append(embeds, embed)
	}
	return embeds
}
