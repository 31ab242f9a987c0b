package discord

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/catfactsnode/catfacts/internal/application"
)

type Config struct {
	// ModerationChannelID receives review posts with approve/deny controls.
	// Empty disables review posting.
	ModerationChannelID string
	// AnnouncementChannelID receives approved facts. Empty disables announcements.
	AnnouncementChannelID string
	// AdminRoleID gates the status commands.
	AdminRoleID string

	SoundDir          string
	VoiceIdleTimeout  time.Duration
	PromotionInterval time.Duration
}

type Bot struct {
	session *discordgo.Session
	service *application.FactService
	cfg     Config

	mu       sync.Mutex
	lastPlay map[string]time.Time
	playing  map[string]chan struct{}
	sounds   map[string][][]byte

	loopsOnce sync.Once
	done      chan struct{}
}

func New(token string, service *application.FactService, cfg Config) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	if cfg.VoiceIdleTimeout <= 0 {
		cfg.VoiceIdleTimeout = 60 * time.Second
	}
	if cfg.PromotionInterval <= 0 {
		cfg.PromotionInterval = 60 * time.Second
	}

	b := &Bot{
		session:  session,
		service:  service,
		cfg:      cfg,
		lastPlay: make(map[string]time.Time),
		playing:  make(map[string]chan struct{}),
		sounds:   make(map[string][][]byte),
		done:     make(chan struct{}),
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	return b, nil
}

// Start opens the gateway connection. The promotion poll and the voice idle
// check begin once the ready event arrives.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	close(b.done)
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("logged in as %s", r.User.String())

	for _, cmd := range commands {
		if _, err := s.ApplicationCommandCreate(r.User.ID, "", cmd); err != nil {
			log.Printf("register command %s: %v", cmd.Name, err)
		}
	}

	b.startLoops()
}

// startLoops begins the promotion poll and the voice idle check. The gateway
// re-fires READY on every re-identify, so the loops must only ever start once
// per Bot or each reconnect would stack another ticker.
func (b *Bot) startLoops() {
	b.loopsOnce.Do(func() {
		go b.runPromotionLoop()
		go b.runVoiceIdleLoop()
	})
}

func (b *Bot) runPromotionLoop() {
	ticker := time.NewTicker(b.cfg.PromotionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := b.service.PromotePending(context.Background())
			if err != nil {
				log.Printf("promotion poll: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("promoted %d web submission(s) to voting", n)
			}
		case <-b.done:
			return
		}
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	}
}

func invokerName(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return ""
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("interaction respond: %v", err)
	}
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		log.Printf("interaction respond: %v", err)
	}
}
