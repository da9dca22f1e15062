package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/MrWong99/stegovox/internal/discord"
)

const (
	decodeButtonPrefix = "stego_decode:"
	decodeModalPrefix  = "stego_decode_modal:"
	passwordInputID    = "stego_password"
)

type pendingScan struct {
	attachment *discordgo.MessageAttachment
	channelID  string
}

// pendingScans remembers the attachments behind decode buttons, dropping the
// oldest entry once limit is reached.
type pendingScans struct {
	mu    sync.Mutex
	limit int
	items map[string]pendingScan
	order []string
}

func newPendingScans(limit int) *pendingScans {
	return &pendingScans{limit: limit, items: make(map[string]pendingScan)}
}

func (p *pendingScans) put(token string, scan pendingScan) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.order) >= p.limit {
		delete(p.items, p.order[0])
		p.order = p.order[1:]
	}
	p.items[token] = scan
	p.order = append(p.order, token)
}

func (p *pendingScans) get(token string) (pendingScan, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	scan, ok := p.items[token]
	return scan, ok
}

// OnMessage scans audio attachments of m and, for each that carries a hidden
// message, replies with a button that starts the decode flow. Attachments
// smaller than the scan threshold are skipped.
func (c *StegoCommands) OnMessage(s discord.Session, m *discordgo.MessageCreate) {
	if m.Author != nil && m.Author.Bot {
		return
	}
	minScan := c.minScan.Load()
	for _, a := range m.Attachments {
		if !IsAudio(a) || int64(a.Size) < minScan {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		buf, err := c.dl.Fetch(ctx, a)
		cancel()
		if err != nil {
			slog.Debug("discord: scan download failed", "attachment", a.Filename, "err", err)
			continue
		}
		if !c.svc.Contains(buf) {
			continue
		}

		token := uuid.NewString()
		c.pending.put(token, pendingScan{attachment: a, channelID: m.ChannelID})
		_, err = s.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
			Content: fmt.Sprintf("`%s` carries a hidden message.", a.Filename),
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Decode",
						Style:    discordgo.PrimaryButton,
						CustomID: decodeButtonPrefix + token,
					},
				}},
			},
			Reference: m.Reference(),
		})
		if err != nil {
			slog.Warn("discord: failed to offer decode button", "channel_id", m.ChannelID, "err", err)
		}
	}
}

func (c *StegoCommands) handleDecodeButton(s discord.Session, i *discordgo.InteractionCreate) {
	token := strings.TrimPrefix(i.MessageComponentData().CustomID, decodeButtonPrefix)
	if _, ok := c.pending.get(token); !ok {
		discord.RespondEphemeral(s, i, "This decode button has expired.")
		return
	}
	discord.RespondModal(s, i, &discordgo.InteractionResponseData{
		CustomID: decodeModalPrefix + token,
		Title:    "Decode hidden message",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    passwordInputID,
					Label:       "Password",
					Style:       discordgo.TextInputShort,
					Placeholder: "Leave empty to use the channel password",
				},
			}},
		},
	})
}

func (c *StegoCommands) handleDecodeModal(s discord.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	token := strings.TrimPrefix(data.CustomID, decodeModalPrefix)
	scan, ok := c.pending.get(token)
	if !ok {
		discord.RespondEphemeral(s, i, "This decode button has expired.")
		return
	}

	var password string
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			if ti, ok := comp.(*discordgo.TextInput); ok && ti.CustomID == passwordInputID {
				password = ti.Value
			}
		}
	}

	discord.DeferReply(s, i, true)
	c.decodeAndReply(s, i, scan.attachment, password, scan.channelID)
}
