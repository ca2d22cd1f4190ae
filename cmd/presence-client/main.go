// Command presence-client keeps a clinic workstation connected to the
// staff presence channel.
//
// Lines read from stdin are sent as messages. "@name text" sends a direct
// message; "/login name" and "/logout" switch the session.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/orchestra-mcp/presence/config"
	"github.com/orchestra-mcp/presence/providers"
	"github.com/orchestra-mcp/presence/src/session"
	"github.com/orchestra-mcp/presence/src/types"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "presence-client: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	cfg := config.FromEnv()

	var (
		identity string
		logLevel string
		noStatus bool
	)
	flags := pflag.NewFlagSet("presence-client", pflag.ContinueOnError)
	flags.StringVar(&cfg.BrokerURL, "broker", cfg.BrokerURL, "broker websocket URL")
	flags.StringVar(&cfg.Transport, "transport", cfg.Transport, "websocket driver: fasthttp or coder")
	flags.StringVar(&cfg.Store, "store", cfg.Store, "session store: memory or redis")
	flags.StringVar(&cfg.StatusAddr, "status-addr", cfg.StatusAddr, "listen address for the status API")
	flags.BoolVar(&noStatus, "no-status", false, "do not serve the status API")
	flags.StringVar(&identity, "identity", "", "log in as this identity instead of restoring the saved session")
	flags.StringVarP(&logLevel, "log-level", "l", envOr("LOG_LEVEL", "info"), "log level")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return exitOK, nil
		}
		return exitConfig, err
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return exitConfig, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plugin := providers.NewPresencePlugin(cfg, logger)
	if err := plugin.Activate(ctx); err != nil {
		return exitConfig, err
	}
	defer func() {
		if err := plugin.Deactivate(); err != nil {
			logger.Error().Err(err).Msg("deactivate failed")
		}
	}()

	plugin.Manager().OnStatus(func(ev types.StatusEvent) {
		logger.Info().Str("identity", ev.Identity).Stringer("status", ev.New).Msg("presence status")
	})

	gate := plugin.Gate()
	if identity != "" {
		if err := gate.Login(ctx, identity); err != nil {
			return exitRuntime, err
		}
	}

	if !noStatus {
		app := fiber.New()
		plugin.RegisterRoutes(app)
		go func() {
			if err := app.Listen(cfg.StatusAddr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
				logger.Error().Err(err).Str("addr", cfg.StatusAddr).Msg("status API stopped")
			}
		}()
		defer func() { _ = app.Shutdown() }()
		logger.Info().Str("addr", cfg.StatusAddr).Msg("status API listening")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down")
			return exitOK, nil
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if err := handleLine(ctx, gate, line); err != nil {
				logger.Warn().Err(err).Msg("command failed")
			}
		}
	}
}

func handleLine(ctx context.Context, gate *session.Gate, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "/logout":
		return gate.Logout(ctx)
	case strings.HasPrefix(line, "/login "):
		return gate.Login(ctx, strings.TrimPrefix(line, "/login "))
	case strings.HasPrefix(line, "@"):
		to, body, _ := strings.Cut(strings.TrimPrefix(line, "@"), " ")
		return gate.Send(ctx, body, to)
	default:
		return gate.Send(ctx, line, "")
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
