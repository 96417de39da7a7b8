package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/browser"
	"github.com/sells-group/prospect-cli/internal/export"
	"github.com/sells-group/prospect-cli/internal/extract"
	"github.com/sells-group/prospect-cli/internal/robots"
	"github.com/sells-group/prospect-cli/internal/source"
	"github.com/sells-group/prospect-cli/internal/stats"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/internal/webhook"
)

var (
	scrapeSource   string
	scrapeLocation string
	scrapeCategory string
	scrapeMax      int
	scrapeOut      string
	scrapeNoStore  bool
)

// newSourceRegistry wires every discovery strategy against the shared
// browser and extraction engine.
func newSourceRegistry(b *browser.Browser, visitor source.Visitor, collector *stats.Collector) *source.Registry {
	reg := source.NewRegistry()
	reg.Register(source.NewPlaces(collector))
	reg.Register(source.NewYelp(b, visitor))
	reg.Register(source.NewYellowPages(b, visitor))
	reg.Register(source.NewGMaps(b, collector))
	return reg
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Discover clinics from one source and export prospect records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		collector := stats.NewCollector()

		b := browser.New(browser.Config{
			Headless: cfg.Scrape.Headless,
			Proxy:    cfg.Scrape.Proxy,
		})
		defer b.Close()

		gate := robots.NewGate(nil)
		engine := extract.New(b, gate, collector)
		engine.SetAgent(cfg.Scrape.UserAgent)

		reg := newSourceRegistry(b, engine, collector)
		src := reg.Get(scrapeSource)
		if src == nil {
			return eris.Errorf("unknown source %q (available: %v)", scrapeSource, reg.List())
		}

		ch, err := src.Stream(ctx, source.Options{
			Location: scrapeLocation,
			Category: scrapeCategory,
			Max:      scrapeMax,
			Delay:    cfg.Scrape.Delay(),
			Retries:  cfg.Scrape.Retries,
			Enrich:   cfg.Scrape.Enrich,
			Region:   cfg.Scrape.Region,
			APIKey:   cfg.Places.APIKey,
		})
		if err != nil {
			return err
		}

		outPath := scrapeOut
		if outPath == "" {
			outPath = cfg.Export.Path
		}
		csvOut, err := export.NewCSVFile(outPath)
		if err != nil {
			return err
		}
		defer csvOut.Close()

		var st store.Store
		if !scrapeNoStore {
			st, err = store.NewSQLite(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}
		}

		var hook *webhook.Dispatcher
		if cfg.Webhook.URL != "" {
			hook = webhook.NewDispatcher(ctx, cfg.Webhook.URL)
		}

		runID := uuid.NewString()
		count, err := consumeStream(ctx, ch, runID, csvOut, st, hook)
		if hook != nil {
			hook.Wait()
		}
		if err != nil {
			return err
		}

		if st != nil {
			if saveErr := st.SaveRun(ctx, store.Run{
				ID:        runID,
				Source:    src.Name(),
				Location:  scrapeLocation,
				Counters:  collector.Snapshot(),
				CreatedAt: time.Now().UTC(),
			}); saveErr != nil {
				zap.L().Warn("save run summary failed", zap.Error(saveErr))
			}
		}

		zap.L().Info("scrape complete",
			zap.String("source", src.Name()),
			zap.String("output", outPath),
			zap.Int("prospects", count),
		)
		collector.Log()
		return nil
	},
}

// consumeStream drains the source, fanning each record out to the CSV file,
// the lead store, and the webhook. A fatal stream error stops the run but
// keeps everything delivered so far.
func consumeStream(ctx context.Context, ch <-chan source.Item, runID string, csvOut *export.CSVWriter, st store.Store, hook *webhook.Dispatcher) (int, error) {
	count := 0
	for item := range ch {
		if item.Err != nil {
			return count, eris.Wrap(item.Err, "stream aborted")
		}
		if err := csvOut.Write(item.Prospect); err != nil {
			return count, err
		}
		if st != nil {
			if err := st.SaveProspect(ctx, runID, item.Prospect); err != nil {
				zap.L().Warn("save prospect failed",
					zap.String("clinic_id", item.Prospect.ClinicID),
					zap.Error(err),
				)
			}
		}
		if hook != nil {
			hook.Send(item.Prospect)
		}
		count++
	}
	return count, nil
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeSource, "source", "places", "discovery source")
	scrapeCmd.Flags().StringVar(&scrapeLocation, "location", "", "search location, e.g. \"Austin, TX\" (required)")
	scrapeCmd.Flags().StringVar(&scrapeCategory, "category", "", "business category (default \"dental clinics\")")
	scrapeCmd.Flags().IntVar(&scrapeMax, "max", 0, "cap on yielded records (default varies by source)")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "", "CSV output path (default from config)")
	scrapeCmd.Flags().BoolVar(&scrapeNoStore, "no-store", false, "skip the local lead database")
	_ = scrapeCmd.MarkFlagRequired("location")
	rootCmd.AddCommand(scrapeCmd)
}
