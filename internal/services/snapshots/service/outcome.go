package service

import (
	"context"
	"strconv"
	"time"

	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/logger"
	"churnlearn/internal/services/snapshots/repo"

	"golang.org/x/sync/errgroup"
)

// OutcomeJob labels CSV snapshots. For each of Count outcome dates stepping
// back Offset days from Outcome, the customers of the snapshot Offset days
// earlier are labelled churned when their key is absent at the outcome date
type OutcomeJob struct {
	Root        string
	InputDir    string
	ResponseDir string
	Key         string
	Label       string

	Outcome time.Time
	Offset  int
	Count   int
	Workers int
}

// OutcomeResult reports one written response file
type OutcomeResult struct {
	InputDate   time.Time
	OutcomeDate time.Time
	Path        string
	Rows        int
	Churned     int
}

// LabelOutcomes writes one response file per input date; results are in
// outcome order, newest first
func LabelOutcomes(ctx context.Context, job OutcomeJob) ([]OutcomeResult, error) {
	if job.Offset < 1 || job.Count < 1 {
		return nil, perr.Configurationf("outcome: offset and count must be >= 1, got %d and %d", job.Offset, job.Count)
	}
	if job.Key == "" || job.Label == "" {
		return nil, perr.Configurationf("outcome: key and label columns are required")
	}

	out := make([]OutcomeResult, job.Count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, job.Workers))
	for i := range job.Count {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome := job.Outcome.AddDate(0, 0, -job.Offset*i)
			res, err := labelOne(job, outcome.AddDate(0, 0, -job.Offset), outcome)
			if err != nil {
				return perr.WithOp(err, "label "+outcome.Format(repo.DateLayout))
			}
			out[i] = res
			logger.C(gctx).Info().
				Str("input_date", res.InputDate.Format(repo.DateLayout)).
				Int("rows", res.Rows).
				Int("churned", res.Churned).
				Str("path", res.Path).
				Msg("outcomes written")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func labelOne(job OutcomeJob, input, outcome time.Time) (OutcomeResult, error) {
	before, err := keys(repo.Path(job.Root, job.InputDir, input), job.Key)
	if err != nil {
		return OutcomeResult{}, err
	}
	after, err := keys(repo.Path(job.Root, job.InputDir, outcome), job.Key)
	if err != nil {
		return OutcomeResult{}, err
	}
	present := make(map[string]struct{}, len(after))
	for _, k := range after {
		present[k] = struct{}{}
	}

	res := OutcomeResult{InputDate: input, OutcomeDate: outcome, Rows: len(before)}
	records := make([][]string, len(before))
	for i, k := range before {
		_, stayed := present[k]
		if !stayed {
			res.Churned++
		}
		records[i] = []string{k, strconv.FormatBool(!stayed)}
	}
	res.Path = repo.Path(job.Root, job.ResponseDir, input)
	if err := repo.WriteCSV(res.Path, []string{job.Key, job.Label}, records); err != nil {
		return OutcomeResult{}, err
	}
	return res, nil
}

func keys(path, key string) ([]string, error) {
	header, records, err := repo.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	col := -1
	for i, h := range header {
		if h == key {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, perr.Configurationf("%s has no key column %q", path, key)
	}
	out := make([]string, 0, len(records))
	for _, r := range records {
		if col < len(r) && r[col] != "" {
			out = append(out, r[col])
		}
	}
	return out, nil
}
