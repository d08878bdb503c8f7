package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRunCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve chat and control-channel commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.config.RequireSession(); err != nil {
				return err
			}

			session, err := app.newSession(app.config.Discord.Token)
			if err != nil {
				return err
			}

			rt, err := app.wireRuntime(session)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancelCause(ctx)
			defer cancel(nil)
			rt.listener.OnFatal(cancel)

			rt.logger.Info("starting",
				zap.String("guild", app.config.Discord.GuildID),
				zap.String("control_path", app.config.Control.Path),
				zap.String("identity", app.config.Control.Identity),
				zap.Strings("vocabulary", rt.vocabulary.Snapshot().Words()),
			)

			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(func() error { return rt.bot.Run(groupCtx) })
			group.Go(func() error { return rt.vocabulary.Watch(groupCtx) })
			waitErr := group.Wait()

			if rt.listener.Running() {
				<-rt.listener.Done()
			}
			if waitErr != nil {
				return waitErr
			}
			if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				return cause
			}

			rt.logger.Info("stopped")
			return nil
		},
	}
}
