package main

import (
	"github.com/spf13/cobra"

	"dayplan/internal/ics"
	appLog "dayplan/internal/log"
	"dayplan/internal/refresh"
	"dayplan/internal/store"
	"dayplan/internal/web"
)

func serveCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and calendar page with scheduled refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if listen != "" {
				a.cfg.Listen = listen
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			cache := store.NewCache(st)
			importer := ics.NewImporter(st, ics.NewFetcher(a.cfg.ICSCacheDir, nil))

			r := refresh.New(a.feeds(), importer, cache)
			if _, err := r.Start(ctx, a.cfg.RefreshCron); err != nil {
				return err
			}
			// Feeds are imported once at startup so a fresh install has data
			// before the first tick.
			go func() {
				if err := r.Run(ctx); err != nil {
					appLog.Error("initial refresh failed", err)
				}
			}()

			appLog.Info("dayplan serving", "version", version, "listen", a.cfg.Listen, "owner", a.cfg.Owner)
			err = web.StartServer(ctx, a.cfg, st, cache)
			appLog.Info("dayplan exiting")
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	return cmd
}
