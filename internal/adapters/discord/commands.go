package discord

import (
	"context"
	"errors"
	"log"
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/catfactsnode/catfacts/internal/domain"
)

var commands = []*discordgo.ApplicationCommand{
	{
		Name:        "suggest",
		Description: "Submit a cat fact for review",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "fact",
				Description: "The fact text",
				Required:    true,
			},
		},
	},
	{
		Name:        "catfact",
		Description: "Get a random approved cat fact",
	},
	{
		Name:        "sound",
		Description: "Play a sound effect in your voice channel",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "name",
				Description: "Which sound to play",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "meow", Value: "meow"},
					{Name: "click", Value: "click"},
				},
			},
		},
	},
	{
		Name:        "status",
		Description: "Manage the bot status label",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Set the status label",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "text",
						Description: "Status text",
						Required:    true,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "clear",
				Description: "Clear the status label",
			},
		},
	},
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "suggest":
		b.handleSuggest(s, i, data)
	case "catfact":
		b.handleCatfact(s, i)
	case "sound":
		b.handleSound(s, i, data)
	case "status":
		b.handleStatus(s, i, data)
	}
}

func (b *Bot) handleSuggest(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	var text string
	if len(data.Options) > 0 {
		text = data.Options[0].StringValue()
	}

	_, err := b.service.SubmitChat(context.Background(), text, invokerName(i))
	switch {
	case errors.Is(err, domain.ErrEmptyText):
		respondEphemeral(s, i, "Usage: /suggest <fact> - the fact text cannot be empty.")
	case err != nil:
		log.Printf("suggest: %v", err)
		respondEphemeral(s, i, "Something went wrong storing your fact.")
	default:
		respondEphemeral(s, i, "Fact submitted for review!")
	}
}

func (b *Bot) handleCatfact(s *discordgo.Session, i *discordgo.InteractionCreate) {
	fact, err := b.service.RandomApproved(context.Background())
	switch {
	case errors.Is(err, domain.ErrNoFacts):
		respond(s, i, "No approved cat facts found in the database.")
	case err != nil:
		log.Printf("catfact: %v", err)
		respondEphemeral(s, i, "Something went wrong fetching a fact.")
	default:
		respond(s, i, fact.Text)
	}
}

func (b *Bot) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if !b.invokerHasAdminRole(i) {
		respondEphemeral(s, i, "You are not allowed to change the bot status.")
		return
	}
	if len(data.Options) == 0 {
		return
	}

	sub := data.Options[0]
	switch sub.Name {
	case "set":
		var text string
		if len(sub.Options) > 0 {
			text = sub.Options[0].StringValue()
		}
		if err := s.UpdateGameStatus(0, text); err != nil {
			log.Printf("status set: %v", err)
			respondEphemeral(s, i, "Failed to update the status.")
			return
		}
		respondEphemeral(s, i, "Status updated.")
	case "clear":
		if err := s.UpdateGameStatus(0, ""); err != nil {
			log.Printf("status clear: %v", err)
			respondEphemeral(s, i, "Failed to clear the status.")
			return
		}
		respondEphemeral(s, i, "Status cleared.")
	}
}

func (b *Bot) invokerHasAdminRole(i *discordgo.InteractionCreate) bool {
	if b.cfg.AdminRoleID == "" || i.Member == nil {
		return false
	}
	return slices.Contains(i.Member.Roles, b.cfg.AdminRoleID)
}
