package discord

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/discordgo"
)

// voiceIdleCheckInterval is how often connected voice sessions are checked
// against the idle timeout.
const voiceIdleCheckInterval = 15 * time.Second

func (b *Bot) handleSound(s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	var name string
	if len(data.Options) > 0 {
		name = data.Options[0].StringValue()
	}
	if i.GuildID == "" || i.Member == nil {
		respondEphemeral(s, i, "Sounds only work inside a server.")
		return
	}

	channelID := b.invokerVoiceChannel(s, i.GuildID, i.Member.User.ID)
	if channelID == "" {
		respondEphemeral(s, i, "Join a voice channel first.")
		return
	}

	if err := b.playSound(s, i.GuildID, channelID, name); err != nil {
		log.Printf("play sound %q: %v", name, err)
		respondEphemeral(s, i, "Could not play that sound.")
		return
	}
	respondEphemeral(s, i, "🔊 "+name)
}

func (b *Bot) invokerVoiceChannel(s *discordgo.Session, guildID, userID string) string {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return ""
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

// playSound joins the target channel (or moves an existing connection),
// stops whatever is currently playing in that guild and starts the named
// sound. The last-play time feeds the idle disconnect.
func (b *Bot) playSound(s *discordgo.Session, guildID, channelID, name string) error {
	frames, err := b.loadSound(name)
	if err != nil {
		return err
	}

	vc, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("join voice channel: %w", err)
	}

	b.mu.Lock()
	if stop, ok := b.playing[guildID]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	b.playing[guildID] = stop
	b.lastPlay[guildID] = time.Now()
	b.mu.Unlock()

	go b.stream(vc, frames, stop)
	return nil
}

func (b *Bot) stream(vc *discordgo.VoiceConnection, frames [][]byte, stop <-chan struct{}) {
	if err := vc.Speaking(true); err != nil {
		log.Printf("voice speaking on: %v", err)
		return
	}
	defer func() {
		if err := vc.Speaking(false); err != nil {
			log.Printf("voice speaking off: %v", err)
		}
	}()

	for _, frame := range frames {
		select {
		case vc.OpusSend <- frame:
		case <-stop:
			return
		case <-b.done:
			return
		}
	}
}

// loadSound reads and caches a DCA file: a sequence of int16 frame lengths
// each followed by that many bytes of opus data.
func (b *Bot) loadSound(name string) ([][]byte, error) {
	b.mu.Lock()
	cached, ok := b.sounds[name]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}

	f, err := os.Open(filepath.Join(b.cfg.SoundDir, name+".dca"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	frames, err := decodeDCA(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s.dca: %w", name, err)
	}

	b.mu.Lock()
	b.sounds[name] = frames
	b.mu.Unlock()
	return frames, nil
}

func decodeDCA(r io.Reader) ([][]byte, error) {
	frames := make([][]byte, 0, 256)
	for {
		var length int16
		err := binary.Read(r, binary.LittleEndian, &length)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		if length <= 0 {
			return nil, fmt.Errorf("invalid frame length %d", length)
		}

		frame := make([]byte, length)
		if _, err := io.ReadFull(r, frame); err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
}

// runVoiceIdleLoop disconnects voice sessions that have not played anything
// for the configured idle period.
func (b *Bot) runVoiceIdleLoop() {
	ticker := time.NewTicker(voiceIdleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.disconnectIdleVoice()
		case <-b.done:
			return
		}
	}
}

func (b *Bot) disconnectIdleVoice() {
	b.session.RLock()
	conns := make(map[string]*discordgo.VoiceConnection, len(b.session.VoiceConnections))
	for guildID, vc := range b.session.VoiceConnections {
		conns[guildID] = vc
	}
	b.session.RUnlock()

	now := time.Now()
	for guildID, vc := range conns {
		b.mu.Lock()
		last, ok := b.lastPlay[guildID]
		b.mu.Unlock()
		if ok && now.Sub(last) < b.cfg.VoiceIdleTimeout {
			continue
		}
		if err := vc.Disconnect(); err != nil {
			log.Printf("voice disconnect guild %s: %v", guildID, err)
			continue
		}
		b.mu.Lock()
		delete(b.lastPlay, guildID)
		b.mu.Unlock()
	}
}
