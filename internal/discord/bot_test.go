package discord_test

import (
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/stegovox/internal/discord"
	"github.com/MrWong99/stegovox/internal/discord/mock"
)

func TestPermissionChecker_Allowed(t *testing.T) {
	t.Parallel()

	member := func(roles ...string) *discordgo.InteractionCreate {
		return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{Roles: roles},
		}}
	}

	tests := []struct {
		name   string
		roleID string
		inter  *discordgo.InteractionCreate
		want   bool
	}{
		{name: "member with role", roleID: "role-123", inter: member("role-456", "role-123"), want: true},
		{name: "member without role", roleID: "role-123", inter: member("role-456"), want: false},
		{name: "empty role allows all", roleID: "", inter: member(), want: true},
		{name: "nil member", roleID: "role-123", inter: &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := discord.NewPermissionChecker(tt.roleID).Allowed(tt.inter); got != tt.want {
				t.Errorf("Allowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommandKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data discordgo.ApplicationCommandInteractionData
		want string
	}{
		{name: "bare command", data: discordgo.ApplicationCommandInteractionData{Name: "stego"}, want: "stego"},
		{
			name: "subcommand",
			data: discordgo.ApplicationCommandInteractionData{Name: "stego", Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "decode", Type: discordgo.ApplicationCommandOptionSubCommand, Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "password", Type: discordgo.ApplicationCommandOptionString, Value: "pw"},
				}},
			}},
			want: "stego/decode",
		},
		{
			name: "subcommand group",
			data: discordgo.ApplicationCommandInteractionData{Name: "stego", Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "password", Type: discordgo.ApplicationCommandOptionSubCommandGroup, Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "set", Type: discordgo.ApplicationCommandOptionSubCommand},
				}},
			}},
			want: "stego/password/set",
		},
	}
	for _, tt := range tests {
		if got := discord.CommandKey(tt.data); got != tt.want {
			t.Errorf("%s: CommandKey = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRouter_Dispatch(t *testing.T) {
	t.Parallel()

	r := discord.NewCommandRouter()
	var hits []string
	record := func(name string) discord.HandlerFunc {
		return func(discord.Session, *discordgo.InteractionCreate) { hits = append(hits, name) }
	}
	cmd := &discordgo.ApplicationCommand{Name: "stego"}
	r.RegisterCommand("stego/decode", cmd, record("decode"))
	r.RegisterCommand("stego/encode", cmd, record("encode"))
	r.RegisterComponent("exact-button", record("exact-button"))
	r.RegisterComponentPrefix("btn:", record("prefix-button"))
	r.RegisterModalPrefix("modal:", record("prefix-modal"))

	if n := len(r.ApplicationCommands()); n != 1 {
		t.Errorf("ApplicationCommands() returned %d definitions, want 1", n)
	}

	s := &mock.Session{}
	interactions := []*discordgo.InteractionCreate{
		{Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{Name: "stego", Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "encode", Type: discordgo.ApplicationCommandOptionSubCommand},
			}},
		}},
		{Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionMessageComponent,
			Data: discordgo.MessageComponentInteractionData{CustomID: "exact-button"},
		}},
		{Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionMessageComponent,
			Data: discordgo.MessageComponentInteractionData{CustomID: "btn:1234"},
		}},
		{Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionModalSubmit,
			Data: discordgo.ModalSubmitInteractionData{CustomID: "modal:abcd"},
		}},
	}
	for _, i := range interactions {
		r.Handle(s, i)
	}

	want := []string{"encode", "exact-button", "prefix-button", "prefix-modal"}
	if len(hits) != len(want) {
		t.Fatalf("hits = %v, want %v", hits, want)
	}
	for idx := range want {
		if hits[idx] != want[idx] {
			t.Errorf("hit %d = %q, want %q", idx, hits[idx], want[idx])
		}
	}
	if len(s.Responses) != 0 {
		t.Errorf("router responded %d times for known ids", len(s.Responses))
	}
}

func TestRouter_Unknown(t *testing.T) {
	t.Parallel()

	r := discord.NewCommandRouter()
	s := &mock.Session{}
	r.Handle(s, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionModalSubmit,
		Data: discordgo.ModalSubmitInteractionData{CustomID: "nobody"},
	}})

	resp := s.LastResponse()
	if resp == nil || resp.Data.Content != "Unknown modal." {
		t.Fatalf("response = %+v, want Unknown modal.", resp)
	}
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("unknown-id response is not ephemeral")
	}
}

func TestDeferReply(t *testing.T) {
	t.Parallel()

	for _, ephemeral := range []bool{true, false} {
		s := &mock.Session{}
		discord.DeferReply(s, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}, ephemeral)
		resp := s.LastResponse()
		if resp.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
			t.Errorf("type = %v", resp.Type)
		}
		if got := resp.Data.Flags&discordgo.MessageFlagsEphemeral != 0; got != ephemeral {
			t.Errorf("ephemeral = %v, want %v", got, ephemeral)
		}
	}
}
