package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/estateforge/prospect-engine/internal/app"
	"github.com/estateforge/prospect-engine/internal/storage"
)

func newStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <prospect-id>",
		Short: "Show the current state of a prospect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), opts, args[0])
		},
	}
}

func runStatus(ctx context.Context, opts *cliOptions, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid prospect id: %w", err)
	}

	cfg, logger, err := loadEnvironment(opts)
	if err != nil {
		return err
	}

	engine, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	p, err := engine.Repos.Prospects.GetByID(ctx, id)
	if err != nil {
		return err
	}

	statusColor := color.New(color.FgYellow)
	switch p.Status {
	case storage.StatusPublished:
		statusColor = color.New(color.FgGreen)
	case storage.StatusFailed:
		statusColor = color.New(color.FgRed)
	}

	fmt.Printf("Prospect %s\n", p.ID)
	fmt.Printf("  Status:     %s\n", statusColor.Sprint(p.Status))
	fmt.Printf("  Source:     %s\n", p.SourceURL)
	fmt.Printf("  Pages:      %d\n", p.PageCount)
	fmt.Printf("  Confidence: %.2f\n", p.Confidence)
	fmt.Printf("  Retries:    %d\n", p.RetryCount)
	if p.ProjectSlug != nil {
		fmt.Printf("  Project:    %s\n", *p.ProjectSlug)
	}
	if p.MiniSiteSlug != nil {
		fmt.Printf("  Mini-site:  %s\n", *p.MiniSiteSlug)
	}
	if p.LastError != nil {
		fmt.Printf("  Last error: %s\n", color.RedString(*p.LastError))
	}
	return nil
}
