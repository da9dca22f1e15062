// Package commands implements the stegovox Discord slash commands and the
// decode button offered on audio messages that carry a hidden message.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/stegovox/internal/config"
	"github.com/MrWong99/stegovox/internal/discord"
	"github.com/MrWong99/stegovox/internal/service"
	"github.com/MrWong99/stegovox/pkg/stego"
)

// commandTimeout bounds the work done for one interaction, download included.
const commandTimeout = 60 * time.Second

// Service is the subset of *service.Service the commands call.
type Service interface {
	EncodeBuffer(ctx context.Context, req service.EncodeRequest) (service.EncodeResponse, error)
	DecodeBuffer(ctx context.Context, req service.DecodeRequest) (service.DecodeResponse, error)
	Inspect(ctx context.Context, buf []byte) (stego.Report, error)
	Contains(buf []byte) bool
	SetPassword(ctx context.Context, conversationID, password string) error
}

// Config tunes [StegoCommands].
type Config struct {
	Downloader *Downloader

	// MinScanBytes is the smallest attachment scanned for a hidden message.
	MinScanBytes int64

	// MaxPending caps the decode buttons remembered at once. The oldest
	// button stops working when the cap is reached.
	MaxPending int
}

// StegoCommands handles /stego and the decode button flow. Channel ids are
// used as conversation ids, so a password stored with /stego password set
// applies to everyone in the channel.
type StegoCommands struct {
	svc     Service
	perms   *discord.PermissionChecker
	dl      *Downloader
	minScan atomic.Int64
	pending *pendingScans
}

// NewStegoCommands creates the command set. A nil Downloader uses one with
// the default download timeout.
func NewStegoCommands(svc Service, perms *discord.PermissionChecker, cfg Config) *StegoCommands {
	dl := cfg.Downloader
	if dl == nil {
		dl = &Downloader{Timeout: config.DefaultDownloadTimeout}
	}
	maxPending := cfg.MaxPending
	if maxPending <= 0 {
		maxPending = 1000
	}
	c := &StegoCommands{
		svc:     svc,
		perms:   perms,
		dl:      dl,
		pending: newPendingScans(maxPending),
	}
	c.minScan.Store(cfg.MinScanBytes)
	return c
}

// SetMinScanBytes changes the scan threshold for new messages.
func (c *StegoCommands) SetMinScanBytes(n int64) {
	c.minScan.Store(n)
}

// Register installs the handlers on router.
func (c *StegoCommands) Register(router *discord.CommandRouter) {
	def := c.Definition()
	router.RegisterCommand("stego/encode", def, c.handleEncode)
	router.RegisterCommand("stego/decode", def, c.handleDecode)
	router.RegisterCommand("stego/inspect", def, c.handleInspect)
	router.RegisterCommand("stego/password/set", def, c.handlePasswordSet)
	router.RegisterCommand("stego/password/clear", def, c.handlePasswordClear)
	router.RegisterComponentPrefix(decodeButtonPrefix, c.handleDecodeButton)
	router.RegisterModalPrefix(decodeModalPrefix, c.handleDecodeModal)
}

// Definition returns the /stego application command.
func (c *StegoCommands) Definition() *discordgo.ApplicationCommand {
	file := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionAttachment,
			Name:        "file",
			Description: desc,
			Required:    true,
		}
	}
	password := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "password",
		Description: "Password; defaults to the channel password",
	}
	return &discordgo.ApplicationCommand{
		Name:        "stego",
		Description: "Hide and recover messages in audio files",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "encode",
				Description: "Hide a message in an Ogg/Opus or WAV file",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "secret",
						Description: "The message to hide",
						Required:    true,
					},
					file("The audio file to hide it in"),
					password,
					{
						Type:        discordgo.ApplicationCommandOptionBoolean,
						Name:        "public",
						Description: "Post the encoded file to the channel",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "decode",
				Description: "Recover the message hidden in an audio file",
				Options:     []*discordgo.ApplicationCommandOption{file("The audio file"), password},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "inspect",
				Description: "Describe an audio file and whether it carries a message",
				Options:     []*discordgo.ApplicationCommandOption{file("The audio file")},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        "password",
				Description: "Manage this channel's password",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "set",
						Description: "Store a password for this channel",
						Options: []*discordgo.ApplicationCommandOption{{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "password",
							Description: "The channel password",
							Required:    true,
						}},
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "clear",
						Description: "Forget this channel's password",
					},
				},
			},
		},
	}
}

func (c *StegoCommands) handleEncode(s discord.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	opts := options(data)
	a := attachmentOption(data, opts, "file")
	if a == nil {
		discord.RespondEphemeral(s, i, "Attach an Ogg/Opus or WAV file.")
		return
	}
	discord.DeferReply(s, i, !boolOption(opts, "public"))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	buf, err := c.dl.Fetch(ctx, a)
	if err != nil {
		discord.FollowUp(s, i, downloadMessage(err))
		return
	}
	resp, err := c.svc.EncodeBuffer(ctx, service.EncodeRequest{
		Buffer:         buf,
		Secret:         stringOption(opts, "secret"),
		Password:       stringOption(opts, "password"),
		ConversationID: i.ChannelID,
	})
	if err != nil {
		discord.FollowUp(s, i, userMessage(err))
		return
	}
	discord.FollowUpFile(s, i, "", encodedName(a.Filename, resp.Format), resp.Format.MIMEType(), resp.Buffer)
}

func (c *StegoCommands) handleDecode(s discord.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	opts := options(data)
	a := attachmentOption(data, opts, "file")
	if a == nil {
		discord.RespondEphemeral(s, i, "Attach an Ogg/Opus or WAV file.")
		return
	}
	discord.DeferReply(s, i, true)
	c.decodeAndReply(s, i, a, stringOption(opts, "password"), i.ChannelID)
}

func (c *StegoCommands) handleInspect(s discord.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	a := attachmentOption(data, options(data), "file")
	if a == nil {
		discord.RespondEphemeral(s, i, "Attach an Ogg/Opus or WAV file.")
		return
	}
	discord.DeferReply(s, i, true)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	buf, err := c.dl.Fetch(ctx, a)
	if err != nil {
		discord.FollowUp(s, i, downloadMessage(err))
		return
	}
	r, err := c.svc.Inspect(ctx, buf)
	if err != nil {
		discord.FollowUp(s, i, userMessage(err))
		return
	}
	discord.FollowUpEmbed(s, i, reportEmbed(a.Filename, r))
}

func (c *StegoCommands) handlePasswordSet(s discord.Session, i *discordgo.InteractionCreate) {
	if !c.perms.Allowed(i) {
		discord.RespondEphemeral(s, i, "You need the configured role to change this channel's password.")
		return
	}
	password := stringOption(options(i.ApplicationCommandData()), "password")
	if password == "" {
		discord.RespondEphemeral(s, i, "The password must not be empty.")
		return
	}
	c.setPassword(s, i, password, "Password saved for this channel.")
}

func (c *StegoCommands) handlePasswordClear(s discord.Session, i *discordgo.InteractionCreate) {
	if !c.perms.Allowed(i) {
		discord.RespondEphemeral(s, i, "You need the configured role to change this channel's password.")
		return
	}
	c.setPassword(s, i, "", "Password cleared for this channel.")
}

func (c *StegoCommands) setPassword(s discord.Session, i *discordgo.InteractionCreate, password, done string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.svc.SetPassword(ctx, i.ChannelID, password); err != nil {
		slog.Error("discord: store channel password", "channel_id", i.ChannelID, "err", err)
		discord.RespondEphemeral(s, i, "Could not store the password.")
		return
	}
	discord.RespondEphemeral(s, i, done)
}

// decodeAndReply answers a deferred interaction with the message hidden in a.
func (c *StegoCommands) decodeAndReply(s discord.Session, i *discordgo.InteractionCreate, a *discordgo.MessageAttachment, password, channelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	buf, err := c.dl.Fetch(ctx, a)
	if err != nil {
		discord.FollowUp(s, i, downloadMessage(err))
		return
	}
	resp, err := c.svc.DecodeBuffer(ctx, service.DecodeRequest{
		Buffer:         buf,
		Password:       password,
		ConversationID: channelID,
	})
	if err != nil {
		discord.FollowUp(s, i, userMessage(err))
		return
	}
	if resp.Message == "" {
		discord.FollowUp(s, i, "The hidden message is empty.")
		return
	}
	discord.FollowUp(s, i, "**Hidden message:**\n>>> "+resp.Message)
}

// encodedName keeps the base name and switches the extension when the
// container changed, as it does for WAV uploads transcoded to Opus.
func encodedName(name string, f stego.Format) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "audio"
	}
	switch f {
	case stego.FormatOgg:
		if ext := strings.ToLower(filepath.Ext(name)); ext == ".opus" || ext == ".oga" {
			return base + ext
		}
		return base + ".ogg"
	case stego.FormatWav:
		return base + ".wav"
	}
	return name
}

func userMessage(err error) string {
	switch service.Code(err) {
	case service.CodeNoHiddenMessage:
		return "No hidden message found in this file."
	case service.CodeAuthentication:
		return "Wrong password."
	case service.CodeEmptyPassword:
		return "A password is required. Pass one or set a channel password with `/stego password set`."
	case service.CodeUnsupportedFormat:
		return "Only Ogg/Opus and WAV files are supported."
	case service.CodeInvalidContainer, service.CodeMalformedPayload:
		return "The file is damaged or not a valid audio container."
	}
	slog.Error("discord: stego command failed", "err", err)
	return "Something went wrong."
}

func downloadMessage(err error) string {
	if errors.Is(err, ErrAttachmentTooLarge) {
		return "The attachment is too large."
	}
	slog.Warn("discord: attachment download failed", "err", err)
	return "Could not download the attachment."
}

func reportEmbed(filename string, r stego.Report) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Format", Value: r.Format.String(), Inline: true},
		{Name: "Size", Value: fmt.Sprintf("%d bytes", r.Size), Inline: true},
		{Name: "Hidden message", Value: yesNo(r.HasPayload), Inline: true},
	}
	if r.SampleRate > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Sample rate", Value: fmt.Sprintf("%d Hz", r.SampleRate), Inline: true})
	}
	if r.Channels > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Channels", Value: fmt.Sprint(r.Channels), Inline: true})
	}
	if r.Vendor != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Vendor", Value: r.Vendor})
	}
	if len(r.CommentKeys) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Comments", Value: strings.Join(r.CommentKeys, ", ")})
	}
	if len(r.Chunks) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Chunks", Value: strings.Join(r.Chunks, ", ")})
	}
	return &discordgo.MessageEmbed{
		Title:  filename,
		Fields: fields,
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
