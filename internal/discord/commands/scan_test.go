package commands

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/stegovox/internal/discord/mock"
	"github.com/MrWong99/stegovox/pkg/stego"
	"github.com/MrWong99/stegovox/pkg/stego/stegotest"
)

func TestOnMessage_DecodeFlow(t *testing.T) {
	t.Parallel()

	files := newCDN(t)
	encoded, err := stego.Encode("found you", "pw", stegotest.Opus(t))
	if err != nil {
		t.Fatal(err)
	}
	clean := stegotest.Opus(t)
	c := newTestCommands(t, "", int64(len(clean)))
	s := &mock.Session{}

	c.OnMessage(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "chan",
		Author:    &discordgo.User{ID: "u1"},
		Attachments: []*discordgo.MessageAttachment{
			files.attach("1", "clean.ogg", clean),
			files.attach("2", "secret.ogg", encoded),
			files.attach("3", "notes.txt", encoded),
			files.attach("4", "tiny.wav", stegotest.WAV(t, 2)),
		},
	}})

	sent := s.SentTo("chan")
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if !strings.Contains(sent[0].Content, "secret.ogg") {
		t.Errorf("content = %q", sent[0].Content)
	}
	if sent[0].Reference == nil || sent[0].Reference.MessageID != "m1" {
		t.Errorf("reference = %+v, want reply to m1", sent[0].Reference)
	}
	button := sent[0].Components[0].(discordgo.ActionsRow).Components[0].(discordgo.Button)
	if !strings.HasPrefix(button.CustomID, decodeButtonPrefix) {
		t.Fatalf("button custom id = %q", button.CustomID)
	}

	// Pressing the button opens the password modal.
	handle(c, s, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: button.CustomID},
	}})
	modal := s.LastResponse()
	if modal.Type != discordgo.InteractionResponseModal {
		t.Fatalf("response type = %v, want modal", modal.Type)
	}
	if !strings.HasPrefix(modal.Data.CustomID, decodeModalPrefix) {
		t.Fatalf("modal custom id = %q", modal.Data.CustomID)
	}

	submit := func(password string) string {
		s.Reset()
		handle(c, s, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionModalSubmit,
			Data: discordgo.ModalSubmitInteractionData{
				CustomID: modal.Data.CustomID,
				Components: []discordgo.MessageComponent{
					&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
						&discordgo.TextInput{CustomID: passwordInputID, Value: password},
					}},
				},
			},
		}})
		return s.LastFollowUp().Content
	}
	if got := submit("pw"); !strings.Contains(got, "found you") {
		t.Errorf("modal decode = %q", got)
	}
	if got := submit("wrong"); got != "Wrong password." {
		t.Errorf("modal decode with wrong password = %q", got)
	}
}

func TestOnMessage_IgnoresBots(t *testing.T) {
	t.Parallel()

	files := newCDN(t)
	encoded, err := stego.Encode("x", "pw", stegotest.Opus(t))
	if err != nil {
		t.Fatal(err)
	}
	c := newTestCommands(t, "", 0)
	s := &mock.Session{}

	c.OnMessage(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		ChannelID:   "chan",
		Author:      &discordgo.User{ID: "b1", Bot: true},
		Attachments: []*discordgo.MessageAttachment{files.attach("1", "a.ogg", encoded)},
	}})
	if n := len(s.SentTo("chan")); n != 0 {
		t.Errorf("sent %d messages for a bot author", n)
	}
}

func TestExpiredButton(t *testing.T) {
	t.Parallel()

	c := newTestCommands(t, "", 0)
	s := &mock.Session{}
	handle(c, s, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: decodeButtonPrefix + "unknown"},
	}})
	if got := s.LastResponse().Data.Content; got != "This decode button has expired." {
		t.Errorf("response = %q", got)
	}
}

func TestPendingScans_Evicts(t *testing.T) {
	t.Parallel()

	p := newPendingScans(2)
	p.put("a", pendingScan{channelID: "1"})
	p.put("b", pendingScan{channelID: "2"})
	p.put("c", pendingScan{channelID: "3"})

	if _, ok := p.get("a"); ok {
		t.Error("oldest entry survived")
	}
	for _, token := range []string{"b", "c"} {
		if _, ok := p.get(token); !ok {
			t.Errorf("entry %q evicted", token)
		}
	}
}
