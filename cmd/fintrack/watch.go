package main

import (
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/logger"
	"github.com/tokmz/fintrack/pkg/request"
	"github.com/tokmz/fintrack/pkg/syncbridge"
	"github.com/tokmz/fintrack/pkg/ws"
	"github.com/tokmz/fintrack/pkg/wsclient"
)

func watchCmd() *cobra.Command {
	var (
		server string
		token  string
		debug  bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Mirror a user's records through the realtime channel",
		Long: `Connect to a running server as a client, load every collection over
REST and keep the local mirror current from realtime events. The mirror is
fully reloaded each time the session reconnects.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			level := logger.InfoLevel
			if debug {
				level = logger.DebugLevel
			}
			log, err := logger.NewWithOptions(logger.WithLevel(level), logger.WithFormat(logger.ConsoleFormat))
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			socketURL, err := socketURLFor(server)
			if err != nil {
				return err
			}

			cfg := wsclient.DefaultConfig()
			cfg.URL = socketURL
			cfg.Token = token
			session, err := wsclient.New(cfg, wsclient.WithLogger(log))
			if err != nil {
				return err
			}

			client := request.New(
				request.WithBaseURL(server),
				request.WithTimeout(10*time.Second),
				request.WithRetry(request.DefaultRetryConfig()),
				request.WithLogger(log),
				request.WithTokenSource(func() string { return token }),
			)
			state := syncbridge.NewMemoryState()
			bridge := syncbridge.New(state,
				syncbridge.NewRESTFetcher(client, nil),
				syncbridge.WithLogger(log),
				syncbridge.WithConflictHandler(func(c syncbridge.Conflict) {
					log.Warn("local edit replaced", zap.String("entity", string(c.Entity)), zap.String("id", c.ID))
				}),
				syncbridge.WithResyncHandler(func(err error) {
					if err == nil {
						logMirror(log, state)
					}
				}),
			)
			detach := bridge.Attach(ctx, session)
			defer detach()

			session.OnPersistent(wsclient.EventStatus, func(msg *wsclient.Message) {
				if ev, err := wsclient.DecodeStatus(msg); err == nil {
					log.Info("session", zap.String("status", string(ev.Status)), zap.Int("attempts", ev.Attempts))
				}
			})

			if err := bridge.Resync(ctx); err != nil {
				return err
			}
			logMirror(log, state)

			if err := session.Connect(ctx); err != nil {
				log.Warn("initial connect failed, retrying", zap.Error(err))
			}
			defer session.Destroy()

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://127.0.0.1:8080", "Server base URL")
	cmd.Flags().StringVarP(&token, "token", "t", "", "Access token (see fintrack token)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

// socketURLFor 由 HTTP 地址推导实时通道地址
func socketURLFor(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

func logMirror(log logger.Logger, state *syncbridge.MemoryState) {
	fields := make([]zap.Field, 0, len(ws.Entities))
	for _, entity := range ws.Entities {
		fields = append(fields, zap.Int(string(entity), len(state.List(entity))))
	}
	log.Info("mirror", fields...)
}
