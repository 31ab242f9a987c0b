package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sqliteadapter "github.com/catfactsnode/catfacts/internal/adapters/db/sqlite"
	discordadapter "github.com/catfactsnode/catfacts/internal/adapters/discord"
	httpadapter "github.com/catfactsnode/catfacts/internal/adapters/http"
	"github.com/catfactsnode/catfacts/internal/application"
	"github.com/catfactsnode/catfacts/internal/domain"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	_ = godotenv.Load()

	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "catfacts",
		Usage: "Cat fact submission, moderation and retrieval",
		Commands: []*cli.Command{
			webCommand(),
			botCommand(),
			authCommand(),
			factsCommand(),
			statsCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func webCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Run the HTTP intake service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address", Sources: cli.EnvVars("CATFACTS_ADDR")},
			&cli.StringFlag{Name: "db-path", Value: "catfacts.db", Usage: "SQLite database path", Sources: cli.EnvVars("CATFACTS_DB_PATH")},
			&cli.StringFlag{Name: "invite-link", Usage: "Discord invite URL behind /discord", Sources: cli.EnvVars("CATFACTS_INVITE_LINK")},
			&cli.StringFlag{Name: "admin-password-hash", Usage: "bcrypt hash guarding /api", Sources: cli.EnvVars("CATFACTS_ADMIN_PASSWORD_HASH")},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runWeb(ctx, c.String("addr"), c.String("db-path"), httpadapter.Config{
				InviteLink:        c.String("invite-link"),
				AdminPasswordHash: c.String("admin-password-hash"),
			})
		},
	}
}

func botCommand() *cli.Command {
	return &cli.Command{
		Name:  "bot",
		Usage: "Run the Discord service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "token", Required: true, Usage: "Discord bot token", Sources: cli.EnvVars("DISCORD_TOKEN")},
			&cli.StringFlag{Name: "db-path", Value: "catfacts.db", Usage: "SQLite database path", Sources: cli.EnvVars("CATFACTS_DB_PATH")},
			&cli.StringFlag{Name: "mod-channel", Usage: "moderation channel id", Sources: cli.EnvVars("CATFACTS_MOD_CHANNEL")},
			&cli.StringFlag{Name: "announce-channel", Usage: "announcement channel id", Sources: cli.EnvVars("CATFACTS_ANNOUNCE_CHANNEL")},
			&cli.StringFlag{Name: "admin-role", Usage: "role id allowed to change the bot status", Sources: cli.EnvVars("CATFACTS_ADMIN_ROLE")},
			&cli.StringFlag{Name: "sound-dir", Value: "sounds", Usage: "directory holding .dca sound files", Sources: cli.EnvVars("CATFACTS_SOUND_DIR")},
			&cli.DurationFlag{Name: "voice-idle", Value: 60 * time.Second, Usage: "disconnect voice after this much silence"},
			&cli.DurationFlag{Name: "promote-interval", Value: 60 * time.Second, Usage: "how often pending web submissions are promoted"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runBot(ctx, c.String("token"), c.String("db-path"), discordadapter.Config{
				ModerationChannelID:   c.String("mod-channel"),
				AnnouncementChannelID: c.String("announce-channel"),
				AdminRoleID:           c.String("admin-role"),
				SoundDir:              c.String("sound-dir"),
				VoiceIdleTimeout:      c.Duration("voice-idle"),
				PromotionInterval:     c.Duration("promote-interval"),
			})
		},
	}
}

func newService(ctx context.Context, dbPath string) (*application.FactService, error) {
	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return nil, err
	}
	repo := sqliteadapter.NewFactRepository(db)
	return application.NewFactService(repo, application.NewRateLimiter(application.SubmissionCooldown)), nil
}

func runWeb(ctx context.Context, addr, dbPath string, cfg httpadapter.Config) error {
	service, err := newService(ctx, dbPath)
	if err != nil {
		return err
	}

	router := httpadapter.NewRouter(service, cfg)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("web service listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runBot(ctx context.Context, token, dbPath string, cfg discordadapter.Config) error {
	service, err := newService(ctx, dbPath)
	if err != nil {
		return err
	}

	bot, err := discordadapter.New(token, service, cfg)
	if err != nil {
		return err
	}
	service.SetReviewPoster(bot)
	service.SetAnnouncer(bot)

	if err := bot.Start(); err != nil {
		return err
	}
	log.Printf("bot running, promotion poll every %s", cfg.PromotionInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %s, shutting down", sig)

	return bot.Close()
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Admin API credentials for the CLI",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Store server address and admin password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "server", Value: "http://127.0.0.1:8080"},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Server: c.String("server"), Password: c.String("password")}
					var counts domain.StatusCounts
					if err := doStats(ctx, cfg, &counts); err != nil {
						return err
					}
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("credentials verified against %s\n", cfg.Server)
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Clear the stored admin password",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					cfg.Password = ""
					return saveConfig(cfg)
				},
			},
		},
	}
}

func factsCommand() *cli.Command {
	return &cli.Command{
		Name:  "facts",
		Usage: "Inspect and moderate facts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List facts in a given status",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Value: "voting", Usage: "pending, voting or approved"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []factPayload
					if err := doFactsList(ctx, cfg, c.String("status"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printFacts(out)
					return nil
				},
			},
			{
				Name:  "random",
				Usage: "Fetch one random approved fact",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					text, err := doFactsRandom(ctx, cfg)
					if err != nil {
						return err
					}
					fmt.Println(text)
					return nil
				},
			},
			{
				Name:  "approve",
				Usage: "Approve a voting fact by id",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					id := uint(c.Uint("id"))
					var out map[string]any
					if err := doFactsApprove(ctx, cfg, id, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{{"id", fmt.Sprintf("%d", id)}, {"status", "approved"}})
					return nil
				},
			},
			{
				Name:  "deny",
				Usage: "Deny (delete) a voting fact by id",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					id := uint(c.Uint("id"))
					var out map[string]any
					if err := doFactsDeny(ctx, cfg, id, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printKV([][2]string{{"id", fmt.Sprintf("%d", id)}, {"deleted", "true"}})
					return nil
				},
			},
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show fact counts per status",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			var counts domain.StatusCounts
			if err := doStats(ctx, cfg, &counts); err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(counts)
			}
			printStats(counts)
			return nil
		},
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
