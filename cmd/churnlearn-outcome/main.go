// Command churnlearn-outcome labels CSV snapshots: a customer present at one
// snapshot is churned when absent from the snapshot offset days later
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"churnlearn/internal/platform/config"
	"churnlearn/internal/platform/logger"
	snapmod "churnlearn/internal/services/snapshots/module"
	snapsvc "churnlearn/internal/services/snapshots/service"
)

func main() {
	l := logger.Get()
	opts := snapmod.FromConfig(config.New())

	var (
		outcomeStr = flag.String("outcome-date", "", "newest outcome date, e.g. 2018-01-28")
		offset     = flag.Int("offset", 7, "days between a snapshot and its outcome")
		count      = flag.Int("count", 12, "number of outcome dates to label")
		workers    = flag.Int("workers", 4, "files labelled concurrently")
		dir        = flag.String("dir", opts.Dir, "snapshot root directory")
		label      = flag.String("label", opts.Label, "label column to write")
	)
	flag.Parse()

	if *outcomeStr == "" {
		l.Fatal().Msg("-outcome-date is required")
	}
	outcome, err := time.Parse(time.DateOnly, *outcomeStr)
	if err != nil {
		l.Fatal().Err(err).Msg("bad -outcome-date")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := snapsvc.LabelOutcomes(ctx, snapsvc.OutcomeJob{
		Root:        *dir,
		InputDir:    opts.InputDir,
		ResponseDir: opts.ResponseDir,
		Key:         opts.Key,
		Label:       *label,
		Outcome:     outcome,
		Offset:      *offset,
		Count:       *count,
		Workers:     *workers,
	})
	if err != nil {
		l.Error().Err(err).Msg("labelling failed")
		os.Exit(1)
	}

	churned, rows := 0, 0
	for _, r := range res {
		churned += r.Churned
		rows += r.Rows
	}
	l.Info().Int("files", len(res)).Int("rows", rows).Int("churned", churned).Msg("done")
}
