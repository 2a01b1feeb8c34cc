package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/hookline/internal/config"
	"github.com/nextlevelbuilder/hookline/internal/discord"
	"github.com/nextlevelbuilder/hookline/internal/dispatch"
	"github.com/nextlevelbuilder/hookline/internal/hooks"
	"github.com/nextlevelbuilder/hookline/internal/processing"
	"github.com/nextlevelbuilder/hookline/internal/prompt"
	"github.com/nextlevelbuilder/hookline/internal/ratelimit"
)

// shutdownGrace is how long in-flight hook executions get to finish after a
// shutdown signal before the pool is abandoned.
const shutdownGrace = 10 * time.Second

var (
	listenHooksFile  string
	listenPromptsDir string
	listenWorkers    int
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Start the hook listener",
	RunE:  runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenHooksFile, "hooks-file", "", "hooks config file (default $HOOKS_FILE or ./hooks.yaml)")
	listenCmd.Flags().StringVar(&listenPromptsDir, "prompts-dir", "", "prompt templates directory (default $PROMPTS_DIR or ./prompts)")
	listenCmd.Flags().IntVar(&listenWorkers, "workers", 4, "hook execution worker count")
}

func runListen(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	hooksFile := cfg.HooksFile
	if listenHooksFile != "" {
		hooksFile = listenHooksFile
	}
	promptsDir := cfg.PromptsDir
	if listenPromptsDir != "" {
		promptsDir = listenPromptsDir
	}

	// Any config problem aborts startup before the gateway opens.
	set, err := hooks.Load(hooksFile, promptsDir)
	if err != nil {
		return err
	}

	registry, err := prompt.NewRegistry(promptsDir)
	if err != nil {
		return err
	}
	feed, err := discord.NewFeed(cfg.DiscordToken)
	if err != nil {
		return err
	}
	sender := discord.NewSender(feed.Session())

	engine := hooks.NewEngine(hooks.EngineConfig{
		Limiter:    ratelimit.New(),
		Prompts:    registry,
		Executor:   processing.NewExecutor(),
		Dispatcher: dispatch.New(sender),
		Sender:     sender,
		Workers:    listenWorkers,
	})
	engine.Swap(set)
	feed.OnMessage(engine.HandleMessage)
	feed.OnReady(engine.SetIdentity)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine.Start(ctx)
	if err := feed.Start(ctx); err != nil {
		engine.Stop(time.Second)
		return err
	}
	defer feed.Stop()

	reload := func() {
		newSet, err := hooks.Load(hooksFile, promptsDir)
		if err != nil {
			slog.Error("hooks reload failed, keeping previous set", "error", err)
			return
		}
		engine.Swap(newSet)
	}

	// Reload on SIGHUP and on edits to the hooks file.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var watchEvents chan fsnotify.Event
	var watchErrors chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("hooks file watch unavailable", "error", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(hooksFile); err != nil {
			slog.Warn("cannot watch hooks file", "path", hooksFile, "error", err)
		} else {
			watchEvents = watcher.Events
			watchErrors = watcher.Errors
		}
	}

	slog.Info("hookline listening", "hooks_file", hooksFile, "prompts_dir", promptsDir)

	for {
		select {
		case <-ctx.Done():
			engine.Stop(shutdownGrace)
			return nil
		case <-hup:
			slog.Info("SIGHUP received, reloading hooks")
			reload()
		case ev, ok := <-watchEvents:
			if !ok {
				watchEvents = nil
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) {
				slog.Info("hooks file changed, reloading", "path", ev.Name)
				reload()
			}
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			slog.Warn("hooks file watch error", "error", err)
		}
	}
}
