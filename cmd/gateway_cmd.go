package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
	"github.com/nextlevelbuilder/goclaw/internal/config"
	"github.com/nextlevelbuilder/goclaw/internal/cron"
	"github.com/nextlevelbuilder/goclaw/internal/gateway"
	"github.com/nextlevelbuilder/goclaw/internal/gateway/methods"
	"github.com/nextlevelbuilder/goclaw/internal/heartbeat"
	"github.com/nextlevelbuilder/goclaw/internal/pairing"
	"github.com/nextlevelbuilder/goclaw/internal/store/file"
)

func gatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Run the WebSocket gateway (cron RPC, pairing, status)",
		Run: func(cmd *cobra.Command, args []string) {
			runGateway()
		},
	}
	return cmd
}

func runGateway() {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
		os.Exit(1)
	}

	pairingStorePath := config.ExpandHome("~/.openclaw/pairing.json")
	pairingSvc := pairing.NewService(pairingStorePath)
	pairingStore := file.NewFilePairingStore(pairingSvc)

	var lock cron.WriteLock
	if cfg.Cron.LockBackend == "redis" && cfg.Cron.RedisAddr != "" {
		lock = cron.NewRedisLock(cfg.Cron.RedisAddr)
	} else {
		lock = cron.NewLocalLock()
	}

	msgBus := bus.New()
	var heartbeatSvc *heartbeat.Service
	if cfg.Heartbeat.Enabled {
		heartbeatSvc = heartbeat.NewService(heartbeat.Config{
			AgentID:     cfg.Cron.DefaultAgentID,
			Interval:    cfg.Heartbeat.Interval,
			ActiveHours: cfg.Heartbeat.ActiveHours,
			Target:      cfg.Heartbeat.Target,
			To:          cfg.Heartbeat.To,
			Workspace:   cfg.Workspace,
		}, noopAgentRunner, msgBus, nil)
		heartbeatSvc.Start()
		defer heartbeatSvc.Stop()
	}

	cron.RegisterAnnounceChannels(msgBus, cron.AnnounceChannelTokens{
		DiscordBotToken:  cfg.Channels.DiscordBotToken,
		SlackBotToken:    cfg.Channels.SlackBotToken,
		TelegramBotToken: cfg.Channels.TelegramBotToken,
	})
	if err := cron.RegisterWhatsAppAnnounce(msgBus, cfg.Channels.WhatsAppDBPath); err != nil {
		fmt.Fprintf(os.Stderr, "whatsapp: %s\n", err)
	}

	deps := cron.Deps{
		Events:         gateway.LoggingEventSink{},
		Isolated:       gateway.LoggingIsolatedRunner{},
		Announcer:      msgBus,
		WebhookToken:   cfg.Cron.WebhookToken,
		DefaultAgentID: cfg.Cron.DefaultAgentID,
	}
	if heartbeatSvc != nil {
		deps.Heartbeat = heartbeatSvc
	}
	cronFacade := cron.NewFacade(lock, deps)

	srv := gateway.NewServer(cfg, pairingSvc, cronFacade)
	methods.NewCronMethods(cronFacade, srv).Register(srv.Router())

	pm := methods.NewPairingMethods(pairingStore, srv)
	pm.SetOnApprove(func(ctx context.Context, channel, chatID string) {
		msgBus.PublishOutbound(bus.OutboundMessage{
			Channel: channel,
			ChatID:  chatID,
			Content: "Pairing approved. You're all set.",
		})
	})
	pm.Register(srv.Router())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "gateway error: %s\n", err)
		os.Exit(1)
	}
}

// noopAgentRunner stands in for the interactive agent runtime, which is out
// of scope here; a deployment embedding one overrides this with the real
// turn executor.
func noopAgentRunner(ctx context.Context, agentID, sessionKey, message, runID string) (string, error) {
	return "", fmt.Errorf("no agent runner configured")
}
