package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/estateforge/prospect-engine/internal/app"
	"github.com/estateforge/prospect-engine/internal/pipeline"
	"github.com/estateforge/prospect-engine/internal/storage"
)

func newProcessCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "process <url>",
		Short: "Run the full pipeline against a brochure PDF URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd.Context(), opts, args[0])
		},
	}
}

func runProcess(ctx context.Context, opts *cliOptions, url string) error {
	cfg, logger, err := loadEnvironment(opts)
	if err != nil {
		return err
	}

	engine, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Fetcher.ValidateURL(ctx, url); err != nil {
		return err
	}

	prospect := &storage.Prospect{
		ID:        uuid.New(),
		SourceURL: url,
		Status:    storage.StatusUploaded,
	}
	if err := engine.Repos.Prospects.Create(ctx, prospect); err != nil {
		return fmt.Errorf("create prospect: %w", err)
	}

	color.Cyan("Processing %s", url)
	color.White("Prospect: %s", prospect.ID)

	events, unsubscribe, err := engine.Broker.Subscribe(ctx, pipeline.EventChannel(prospect.ID))
	if err != nil {
		return fmt.Errorf("subscribe to events: %w", err)
	}
	defer unsubscribe()

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("starting"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan error, 1)
	go func() {
		done <- engine.Orchestrator.Process(ctx, prospect.ID)
	}()

	runErr := watchProgress(ctx, events, done, bar)
	_ = bar.Finish()
	if runErr != nil {
		color.Red("Processing failed: %v", runErr)
		return runErr
	}

	final, err := engine.Repos.Prospects.GetByID(ctx, prospect.ID)
	if err != nil {
		return err
	}
	printSummary(final)
	return nil
}

// watchProgress renders events onto the bar until the run finishes.
func watchProgress(ctx context.Context, events <-chan []byte, done <-chan error, bar *progressbar.ProgressBar) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			return err
		case payload, open := <-events:
			if !open {
				return <-done
			}
			var ev pipeline.Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				continue
			}
			bar.Describe(ev.Message)
			_ = bar.Set(ev.Progress)
		}
	}
}

func printSummary(p *storage.Prospect) {
	color.Green("Processing complete")
	fmt.Println()
	fmt.Printf("  Title:      %s\n", p.GeneratedTitle)
	fmt.Printf("  Pages:      %d\n", p.PageCount)
	fmt.Printf("  Confidence: %.2f\n", p.Confidence)
	if p.ProjectSlug != nil {
		fmt.Printf("  Project:    %s\n", *p.ProjectSlug)
	}
	if p.MiniSiteSlug != nil {
		fmt.Printf("  Mini-site:  %s\n", *p.MiniSiteSlug)
	}
}
