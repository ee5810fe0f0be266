package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/olivoil/otpwatch/internal/backend"
	"github.com/olivoil/otpwatch/internal/config"
	"github.com/olivoil/otpwatch/internal/dispatch"
	"github.com/olivoil/otpwatch/internal/logging"
	"github.com/olivoil/otpwatch/internal/metrics"
	"github.com/olivoil/otpwatch/internal/source"
	"github.com/olivoil/otpwatch/internal/watch"
)

// runCmd starts both watchers
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch messages and mail for one-time codes",
	Long: `Watch the message database, and the mail store when listen_to_mail is
set, until interrupted. The config file is re-read on every message, so
edits take effect without a restart.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Problems with the file are reported by the runner once logging is up.
	cfg, _ := newStore().Load()

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	store := config.NewStore(configPath, log.Named("config"))

	pidPath := backend.PIDPath(cfg.StateDir)
	if pid, ok := backend.RunningPID(pidPath); ok && pid != os.Getpid() {
		return fmt.Errorf("already running (pid %d)", pid)
	}
	if err := backend.WritePIDFile(pidPath); err != nil {
		return err
	}
	defer func() { _ = backend.RemovePIDFile(pidPath) }()

	if !dispatch.Supported() {
		log.Warn("no clipboard utility found; codes will only be logged")
	}

	history := backend.NewHistoryWriter(backend.HistoryPath(cfg.StateDir))
	d := dispatch.New(
		dispatch.WithClipboard(dispatch.SystemClipboard{}),
		dispatch.WithKeyboard(dispatch.NewKeyboard()),
		dispatch.WithHistory(history),
		dispatch.WithLogger(log.Named("dispatch")),
		dispatch.WithMetrics(metrics.New()),
	)

	db, err := source.OpenMessageStore(cfg.Watch.MessagesDB)
	if err != nil {
		return err
	}
	defer db.Close()
	messages := watch.NewStorePoller(cfg.Watch.MessagesDB, db, cfg.Watch.PollInterval, cfg.Watch.MessageWindow, log.Named("watch.messages"))

	var mail watch.Source
	mw, err := watch.NewMailWatcher(cfg.Watch, log.Named("watch.mail"))
	if err != nil {
		log.Warn("mail watcher disabled", zap.Error(err))
	} else {
		mail = mw
	}

	handler := watch.NewHandler(store, d, log.Named("watch.match"))
	runner := watch.NewRunner(store, handler, messages, mail, log.Named("watch"))

	log.Info("watching",
		zap.String("config", store.Path()),
		zap.String("messages_db", cfg.Watch.MessagesDB),
		zap.Bool("mail", cfg.ListenToMail),
		zap.Int("pid", os.Getpid()),
	)
	err = runner.Run(ctx)
	log.Info("stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
