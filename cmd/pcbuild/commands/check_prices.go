package commands

import (
	"fmt"

	"pcbuilder/internal/app"
	"pcbuilder/internal/builds"
	"pcbuilder/internal/catalog"
	"pcbuilder/internal/notify"
	"pcbuilder/internal/pricedrop"
	"pcbuilder/internal/services/pricefeed"

	"github.com/spf13/cobra"
)

func newCheckPricesCmd(e *env) *cobra.Command {
	var skipFeed bool
	cmd := &cobra.Command{
		Use:   "check-prices",
		Short: "Refresh retailer prices and alert owners of saved builds about drops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := e.openDB()
			if err != nil {
				return err
			}
			repo := catalog.NewRepository(db)
			out := cmd.OutOrStdout()

			if e.cfg.PriceFeedURL != "" && !skipFeed {
				client := pricefeed.NewClient(e.cfg.PriceFeedURL, e.cfg.PriceFeedAPIKey)
				refresher := pricefeed.NewRefresher(client, repo, e.cfg.PriceFeedRetailers, e.logger(cmd, "[PriceFeed] "))
				report, err := refresher.Refresh(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Feed: %d retailers, %d prices added, %d unmatched\n", report.Retailers, report.Added, report.Unmatched)
				for _, r := range report.Failed {
					warn.Fprintf(out, "Feed failed for %s\n", r)
				}
			}

			logger := e.logger(cmd, "[PriceDrop] ")
			locker, closeLocker, err := app.Locker(ctx, e.cfg, logger)
			if err != nil {
				return err
			}
			defer closeLocker()

			snap, err := repo.LoadSnapshot(ctx)
			if err != nil {
				return err
			}
			notifier := notify.Fanout{app.EmailNotifier(e.cfg, logger)}
			detector := pricedrop.New(builds.NewStore(db), snap, notifier, app.DetectorOptions(e.cfg, locker, logger)...)
			report, err := detector.Run(ctx)
			if err != nil {
				return err
			}

			heading.Fprintf(out, "Checked %d saved builds\n", report.BuildsChecked)
			fmt.Fprintf(out, "  parts updated: %d\n  drops found:   %d\n", report.PartsUpdated, report.DropsFound)
			good.Fprintf(out, "  notified:      %d\n", report.Notified)
			if report.Skipped > 0 || report.Failed > 0 {
				warn.Fprintf(out, "  skipped: %d, failed: %d\n", report.Skipped, report.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipFeed, "skip-feed", false, "do not pull retailer prices first")
	return cmd
}
