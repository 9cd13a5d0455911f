package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"llamabot/internal/bot"
	"llamabot/internal/command"
	"llamabot/internal/config"
	"llamabot/internal/httpapi"
	"llamabot/internal/inference"
	"llamabot/internal/registry"
)

// version is set at build time:
//
//	go build -ldflags "-X main.version=v1.2.3" ./cmd/llamabot
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions receives flag values; only flags the user set are applied.
type rootOptions struct {
	configPath string
	flags      config.Config
	models     string
	cors       string
}

func newRootCmd() *cobra.Command { return newRootCmdWith(&rootOptions{}) }

// newRootCmdWith binds the flags to o.
func newRootCmdWith(o *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "llamabot <homeserver> <username> [password]",
		Short: "Matrix bot that forwards !llama commands to an Ollama-style inference API",
		Example: "  llamabot https://matrix.example.org llama -P ~/.config/llamabot/password\n" +
			"  llamabot -c llamabot.yaml",
		Version:       version,
		Args:          cobra.RangeArgs(0, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.resolve(cmd, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr))
		},
	}

	f := root.Flags()
	f.StringVarP(&o.configPath, "config", "c", "", "Config file (.yaml, .yml, .json, .toml)")
	f.StringVarP(&o.flags.Address, "address", "a", config.DefaultAddress, "address of the server running an ollama API")
	f.IntVarP(&o.flags.Port, "port", "p", config.DefaultPort, "ollama API port")
	f.StringVarP(&o.flags.PasswordFile, "password-file", "P", "", "path to password file")
	f.StringVar(&o.models, "models", "", "comma-separated supported models (default deepseek-r1,mistral,llama3.2)")
	f.StringVar(&o.flags.DeviceName, "device-name", config.DefaultDeviceName, "display name of the login device")
	f.StringVar(&o.flags.AdminAddr, "admin-addr", "", "listen address of the admin HTTP server, e.g. :9100 (disabled when empty)")
	f.StringVar(&o.cors, "admin-cors-origins", "", "comma-separated origins allowed to call the admin server (CORS off when empty)")
	f.StringVar(&o.flags.LogLevel, "log-level", config.DefaultLogLevel, "Log level: debug|info|warn|error")
	f.StringVar(&o.flags.LogFormat, "log-format", config.DefaultLogFormat, "Log format: auto|console|json")
	f.IntVar(&o.flags.InferenceTimeoutSec, "inference-timeout-seconds", 0, "bound each ask request (0 = no limit)")
	return root
}

// resolve layers defaults < config file < environment < flags and arguments.
func (o *rootOptions) resolve(cmd *cobra.Command, args []string) (config.Config, error) {
	var base config.Config
	if o.configPath != "" {
		var err error
		if base, err = config.Load(o.configPath); err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
	}
	base = base.Merge(config.FromEnv())

	var over config.Config
	changed := cmd.Flags().Changed
	if changed("address") {
		over.Address = o.flags.Address
	}
	if changed("port") {
		over.Port = o.flags.Port
	}
	if changed("password-file") {
		over.PasswordFile = o.flags.PasswordFile
	}
	if changed("models") {
		over.Models = config.SplitCSV(o.models)
	}
	if changed("device-name") {
		over.DeviceName = o.flags.DeviceName
	}
	if changed("admin-addr") {
		over.AdminAddr = o.flags.AdminAddr
	}
	if changed("admin-cors-origins") {
		over.AdminCORSOrigins = config.SplitCSV(o.cors)
	}
	if changed("log-level") {
		over.LogLevel = o.flags.LogLevel
	}
	if changed("log-format") {
		over.LogFormat = o.flags.LogFormat
	}
	if changed("inference-timeout-seconds") {
		over.InferenceTimeoutSec = o.flags.InferenceTimeoutSec
	}
	if len(args) > 0 {
		over.Homeserver = args[0]
	}
	if len(args) > 1 {
		over.Username = args[1]
	}
	if len(args) > 2 {
		over.Password = args[2]
	}

	cfg := base.Merge(over).WithDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// run wires the pipeline and blocks until ctx is canceled or a component fails.
func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	password, err := cfg.ResolvePassword()
	if err != nil {
		return err
	}

	models := registry.Default()
	if len(cfg.Models) > 0 {
		models = registry.New(cfg.Models...)
	}
	client := inference.NewClient(
		inference.WithTimeout(time.Duration(cfg.InferenceTimeoutSec)*time.Second),
		inference.WithLogger(log.With().Str("component", "inference").Logger()),
	)
	exec := command.NewExecutor(client, models, cfg.Endpoint(),
		command.WithLogger(log.With().Str("component", "command").Logger()))
	router := bot.NewRouter(exec)
	b, err := bot.New(bot.Config{
		Homeserver: cfg.Homeserver,
		Username:   cfg.Username,
		Password:   password,
		DeviceName: cfg.DeviceName,
	}, router, bot.WithLogger(log))
	if err != nil {
		return err
	}

	log.Info().Str("homeserver", cfg.Homeserver).Str("endpoint", cfg.Endpoint()).Str("models", models.String()).Msg("starting llamabot")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := b.Login(gctx); err != nil {
			return err
		}
		return b.Run(gctx)
	})

	if cfg.AdminAddr != "" {
		httpapi.SetLogger(log.With().Str("component", "http").Logger())
		httpapi.SetBaseContext(gctx)
		if len(cfg.AdminCORSOrigins) > 0 {
			httpapi.SetCORSOptions(true, cfg.AdminCORSOrigins, []string{"GET", "POST", "OPTIONS"}, []string{"Content-Type", "X-Log-Level"})
		}
		srv := &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           httpapi.NewMux(newService(b, router, exec)),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("addr", cfg.AdminAddr).Msg("admin server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	log.Info().Err(err).Msg("llamabot stopped")
	return err
}
