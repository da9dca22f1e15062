package discord

import (
	"bytes"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// RespondEphemeral sends an ephemeral text response to an interaction.
func RespondEphemeral(s Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		slog.Warn("discord: failed to send ephemeral response", "err", err)
	}
}

// RespondModal opens a modal dialog.
func RespondModal(s Session, i *discordgo.InteractionCreate, modal *discordgo.InteractionResponseData) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: modal,
	})
	if err != nil {
		slog.Warn("discord: failed to open modal", "err", err)
	}
}

// DeferReply acknowledges an interaction whose answer follows later through
// [FollowUp], [FollowUpEmbed] or [FollowUpFile].
func DeferReply(s Session, i *discordgo.InteractionCreate, ephemeral bool) {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
	if err != nil {
		slog.Warn("discord: failed to defer reply", "err", err)
	}
}

// FollowUp sends an ephemeral follow-up message after a deferred response.
func FollowUp(s Session, i *discordgo.InteractionCreate, content string) {
	followUp(s, i, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// FollowUpEmbed sends an ephemeral embed follow-up.
func FollowUpEmbed(s Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	followUp(s, i, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	})
}

// FollowUpFile sends a file as a follow-up. It is visible to the channel only
// when the deferred reply was not ephemeral.
func FollowUpFile(s Session, i *discordgo.InteractionCreate, content, name, contentType string, data []byte) {
	followUp(s, i, &discordgo.WebhookParams{
		Content: content,
		Files: []*discordgo.File{{
			Name:        name,
			ContentType: contentType,
			Reader:      bytes.NewReader(data),
		}},
	})
}

func followUp(s Session, i *discordgo.InteractionCreate, params *discordgo.WebhookParams) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		slog.Warn("discord: failed to send follow-up", "err", err)
	}
}
