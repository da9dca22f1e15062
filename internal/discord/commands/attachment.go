package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrAttachmentTooLarge is returned for attachments above the download limit.
var ErrAttachmentTooLarge = errors.New("commands: attachment too large")

// Downloader fetches attachment bodies from the Discord CDN.
type Downloader struct {
	// Client defaults to http.DefaultClient.
	Client *http.Client

	// Timeout bounds one download. Zero means no timeout beyond ctx.
	Timeout time.Duration

	// MaxBytes rejects larger attachments. Zero means no limit.
	MaxBytes int64
}

// Fetch downloads a. The declared size is checked before the request and the
// body is cut off at MaxBytes+1 so a lying size cannot exhaust memory.
func (d *Downloader) Fetch(ctx context.Context, a *discordgo.MessageAttachment) ([]byte, error) {
	if a == nil {
		return nil, errors.New("commands: attachment is nil")
	}
	if d.MaxBytes > 0 && int64(a.Size) > d.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrAttachmentTooLarge, a.Filename, a.Size)
	}
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("commands: create download request: %w", err)
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("commands: download attachment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("commands: download attachment: status %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if d.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, d.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("commands: read attachment: %w", err)
	}
	if d.MaxBytes > 0 && int64(len(data)) > d.MaxBytes {
		return nil, fmt.Errorf("%w: %s", ErrAttachmentTooLarge, a.Filename)
	}
	return data, nil
}

// IsAudio reports whether a looks like an Ogg or WAV file, by content type or
// file extension.
func IsAudio(a *discordgo.MessageAttachment) bool {
	switch strings.ToLower(filepath.Ext(a.Filename)) {
	case ".ogg", ".oga", ".opus", ".wav":
		return true
	}
	ct := strings.ToLower(a.ContentType)
	return strings.HasPrefix(ct, "audio/ogg") || strings.HasPrefix(ct, "audio/wav") ||
		strings.HasPrefix(ct, "audio/x-wav") || strings.HasPrefix(ct, "audio/opus")
}

// options returns the options of the innermost subcommand keyed by name.
func options(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := data.Options
	for len(opts) > 0 {
		t := opts[0].Type
		if t != discordgo.ApplicationCommandOptionSubCommand && t != discordgo.ApplicationCommandOptionSubCommandGroup {
			break
		}
		opts = opts[0].Options
	}
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := opts[name]; ok && o.Type == discordgo.ApplicationCommandOptionString {
		return o.StringValue()
	}
	return ""
}

func boolOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) bool {
	if o, ok := opts[name]; ok && o.Type == discordgo.ApplicationCommandOptionBoolean {
		return o.BoolValue()
	}
	return false
}

// attachmentOption resolves the attachment passed as option name.
func attachmentOption(data discordgo.ApplicationCommandInteractionData, opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.MessageAttachment {
	o, ok := opts[name]
	if !ok || o.Type != discordgo.ApplicationCommandOptionAttachment || data.Resolved == nil {
		return nil
	}
	id, _ := o.Value.(string)
	return data.Resolved.Attachments[id]
}
