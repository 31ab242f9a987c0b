package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/catfactsnode/catfacts/internal/domain"
)

const (
	controlApprove = "fact_approve"
	controlDeny    = "fact_deny"
)

// controlID binds a moderation button to a fact row by id. No closure
// capture: the id travels inside the button's custom id and is parsed back
// out when the control fires.
func controlID(action string, factID uint) string {
	return action + ":" + strconv.FormatUint(uint64(factID), 10)
}

func parseControlID(customID string) (action string, factID uint, err error) {
	action, raw, ok := strings.Cut(customID, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed control id %q", customID)
	}
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return "", 0, fmt.Errorf("malformed fact id in control %q", customID)
	}
	return action, uint(parsed), nil
}

// PostForReview sends a fact to the moderation channel with approve/deny
// buttons. With no channel configured this is a silent no-op.
func (b *Bot) PostForReview(_ context.Context, fact domain.Fact) error {
	if b.cfg.ModerationChannelID == "" {
		return nil
	}

	author := fact.Author
	if author == "" {
		author = "anonymous"
	}

	_, err := b.session.ChannelMessageSendComplex(b.cfg.ModerationChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "New Fact Submission",
				Description: fact.Text,
				Color:       0xffa500,
				Footer: &discordgo.MessageEmbedFooter{
					Text: fmt.Sprintf("Author: %s | ID: %d", author, fact.ID),
				},
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Approve",
						Style:    discordgo.SuccessButton,
						CustomID: controlID(controlApprove, fact.ID),
					},
					discordgo.Button{
						Label:    "Deny",
						Style:    discordgo.DangerButton,
						CustomID: controlID(controlDeny, fact.ID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("post review for fact #%d: %w", fact.ID, err)
	}
	return nil
}

// Announce publishes an approved fact to the announcement channel.
func (b *Bot) Announce(_ context.Context, fact domain.Fact) error {
	if b.cfg.AnnouncementChannelID == "" {
		return nil
	}
	if _, err := b.session.ChannelMessageSend(b.cfg.AnnouncementChannelID, announcementText(fact)); err != nil {
		return fmt.Errorf("announce fact #%d: %w", fact.ID, err)
	}
	return nil
}

func announcementText(fact domain.Fact) string {
	if fact.Author == "" {
		return fact.Text
	}
	return fmt.Sprintf("%s\nSubmitted by %s", fact.Text, fact.Author)
}

func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	action, factID, err := parseControlID(i.MessageComponentData().CustomID)
	if err != nil {
		log.Printf("component interaction: %v", err)
		return
	}

	switch action {
	case controlApprove:
		b.handleApprove(s, i, factID)
	case controlDeny:
		b.handleDeny(s, i, factID)
	}
}

func (b *Bot) handleApprove(s *discordgo.Session, i *discordgo.InteractionCreate, factID uint) {
	_, err := b.service.Approve(context.Background(), factID)
	switch {
	case errors.Is(err, domain.ErrAlreadyDecided):
		respondEphemeral(s, i, fmt.Sprintf("Fact #%d was already handled.", factID))
	case err != nil:
		log.Printf("approve fact #%d: %v", factID, err)
		respondEphemeral(s, i, "Something went wrong approving this fact.")
	default:
		editToTerminal(s, i, fmt.Sprintf("✅ **Fact #%d Approved**", factID))
	}
}

func (b *Bot) handleDeny(s *discordgo.Session, i *discordgo.InteractionCreate, factID uint) {
	err := b.service.Deny(context.Background(), factID)
	switch {
	case errors.Is(err, domain.ErrAlreadyDecided):
		respondEphemeral(s, i, fmt.Sprintf("Fact #%d was already handled.", factID))
	case err != nil:
		log.Printf("deny fact #%d: %v", factID, err)
		respondEphemeral(s, i, "Something went wrong denying this fact.")
	default:
		editToTerminal(s, i, fmt.Sprintf("❌ **Fact #%d Denied**", factID))
	}
}

// editToTerminal rewrites the originating review post into its terminal
// state and strips the controls.
func editToTerminal(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Embeds:     []*discordgo.MessageEmbed{},
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		log.Printf("edit review post: %v", err)
	}
}
