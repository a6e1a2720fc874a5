// Command churnlearn-train runs one temporal cross-validated search over
// weekly customer snapshots and persists the refit winner
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"churnlearn/internal/core/frame"
	"churnlearn/internal/modkit"
	"churnlearn/internal/modkit/module"
	"churnlearn/internal/platform/config"
	perr "churnlearn/internal/platform/errors"
	"churnlearn/internal/platform/logger"
	"churnlearn/internal/platform/store"

	gridsmod "churnlearn/internal/services/grids/module"
	modelsmod "churnlearn/internal/services/models/module"
	snapdom "churnlearn/internal/services/snapshots/domain"
	snapmod "churnlearn/internal/services/snapshots/module"
	traindom "churnlearn/internal/services/training/domain"
	trainmod "churnlearn/internal/services/training/module"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// exit codes per failure class
const (
	exitOK       = 0
	exitInternal = 1
	exitConfig   = 2
	exitUpstream = 3
)

// setEnvIfSet exports v under k unless v is empty
func setEnvIfSet(k, v string) error {
	if v == "" {
		return nil
	}
	if err := os.Setenv(k, v); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeConfiguration, "set %s", k)
	}
	return nil
}

// flags are the command line settings; source and out override the
// CORE_SNAPSHOT_SOURCE and CORE_MODELS_DIR env
type flags struct {
	req    traindom.RunRequest
	source string
	out    string
	report string
	check  bool
}

func parseFlags(args []string) (flags, error) {
	fs := flag.NewFlagSet("churnlearn-train", flag.ContinueOnError)
	var (
		f       flags
		outcome = fs.String("outcome-date", "", "date of the newest snapshot, e.g. 2018-01-28")
	)
	fs.IntVar(&f.req.Snapshots, "snapshots", 8, "number of weekly snapshots to read")
	fs.IntVar(&f.req.Offset, "offset", 7, "days between snapshots")
	fs.IntVar(&f.req.Window, "window", 4, "snapshots per training window")
	fs.IntVar(&f.req.Budget, "budget", 0, "candidates to sample from the grid; 0 means all")
	fs.StringVar(&f.req.Grid, "grid", "default", "grid key under CORE_GRIDS_DIR")
	fs.StringVar(&f.req.ModelKey, "model", "", "key the winner is stored under; defaults to the outcome date")
	fs.StringVar(&f.req.Scoring, "scoring", "roc_auc", "scorer: roc_auc, neg_log_loss or precision_at_<k>")
	fs.Uint64Var(&f.req.Seed, "seed", 0, "candidate sampling seed")
	fs.IntVar(&f.req.Workers, "workers", 0, "concurrent candidate x fold units; 0 means NumCPU-1")
	fs.StringVar(&f.source, "source", "", "snapshot source: csv, pg or ch")
	fs.StringVar(&f.out, "out", "", "model directory for the fs backend")
	fs.StringVar(&f.report, "report", "", "write the run result as JSON to this file; - for stdout")
	fs.BoolVar(&f.check, "check", false, "summarise each snapshot's features and exit without training")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}

	if *outcome == "" {
		return flags{}, errors.New("-outcome-date is required")
	}
	d, err := time.Parse(time.DateOnly, *outcome)
	if err != nil {
		return flags{}, fmt.Errorf("bad -outcome-date: %w", err)
	}
	f.req.OutcomeDate = d
	if f.req.ModelKey == "" {
		f.req.ModelKey = "churn-" + d.Format(time.DateOnly)
	}
	return f, nil
}

// exitCode maps a run error to the process exit status
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var re *traindom.RunError
	if !errors.As(err, &re) {
		return exitInternal
	}
	switch re.Class {
	case traindom.ClassConfiguration:
		return exitConfig
	case traindom.ClassUpstream:
		return exitUpstream
	default:
		return exitInternal
	}
}

func writeReport(path string, res traindom.Result) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		fh, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() { _ = fh.Close() }()
		w = fh
	}
	res.Pipeline = nil
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func main() {
	os.Exit(run())
}

func run() int {
	l := logger.Get()

	f, err := parseFlags(os.Args[1:])
	if err != nil {
		l.Error().Err(err).Msg("bad flags")
		return exitConfig
	}

	// Pass CLI flags into module env so modules read their own config
	for k, v := range map[string]string{"CORE_SNAPSHOT_SOURCE": f.source, "CORE_MODELS_DIR": f.out} {
		if err := setEnvIfSet(k, v); err != nil {
			l.Error().Err(err).Msg("bad flags")
			return exitConfig
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := config.New()
	st, err := store.Open(ctx, store.FromConf(root, "churnlearn", "train"), store.WithLogger(*l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return exitUpstream
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.Deps{Cfg: root, PG: st.PG, CH: st.CH, Log: *l}

	// Build dependency modules first
	snaps, err := snapmod.New(deps, snapmod.FromConfig(root))
	if err != nil {
		l.Error().Err(err).Msg("snapshots module")
		return exitConfig
	}
	models, err := modelsmod.New(ctx, deps, modelsmod.FromConfig(root))
	if err != nil {
		l.Error().Err(err).Msg("models module")
		return exitCode(&traindom.RunError{Phase: traindom.PhaseInitialized, Class: traindom.Classify(err), Err: err})
	}
	if f.check {
		if err := checkInputs(ctx, module.MustPortsOf[snapmod.Ports](snaps).Reader, f.req.Dates(), os.Stdout); err != nil {
			l.Error().Err(err).Msg("check failed")
			return exitCode(&traindom.RunError{Phase: traindom.PhaseInitialized, Class: traindom.Classify(err), Err: err})
		}
		return exitOK
	}
	grids := gridsmod.New(deps, gridsmod.FromConfig(root))

	reg := prometheus.NewRegistry()
	tm := trainmod.New(deps, trainmod.Options{}, reg, modkit.WithPorts(traindom.Ports{
		Snapshots: module.MustPortsOf[snapmod.Ports](snaps).Reader,
		Grids:     module.MustPortsOf[gridsmod.Ports](grids).Store,
		Models:    module.MustPortsOf[modelsmod.Ports](models).Store,
	}))

	res, err := module.MustPortsOf[trainmod.Ports](tm).Runner.Run(ctx, f.req)
	pushMetrics(root, reg)
	if err != nil {
		return exitCode(err)
	}

	l.Info().
		Str("model_key", res.ModelKey).
		Str("run_id", res.RunID).
		Float64("score", res.Score).
		Interface("params", res.Params).
		Int("folds", res.Folds).
		Int("rows", res.Rows).
		Msg("model saved")

	if f.report != "" {
		if err := writeReport(f.report, res); err != nil {
			l.Error().Err(err).Msg("write report")
			return exitInternal
		}
	}
	return exitOK
}

// checkInputs prints dtype, missing share, distinct count and range of every
// feature of each snapshot
func checkInputs(ctx context.Context, r snapdom.ReaderPort, dates []time.Time, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range dates {
		snap, err := r.Read(ctx, d)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "snapshot %s\trows %d\t\t\t\t\n", d.Format(time.DateOnly), snap.Len())
		fmt.Fprintln(tw, "column\tkind\tpct_missing\tunique\tmin\tmax")
		for _, s := range frame.Summarize(snap.Features) {
			fmt.Fprintf(tw, "%s\t%s\t%.3f\t%d\t%s\t%s\n", s.Column, s.Kind, s.PctMissing, s.Unique, num(s.Min), num(s.Max))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// pushMetrics sends the run's instruments to a Pushgateway when one is set
func pushMetrics(root config.Conf, reg *prometheus.Registry) {
	url := root.Prefix("CORE_TRAIN_").MayString("PUSHGATEWAY", "")
	if url == "" {
		return
	}
	if err := push.New(url, "churnlearn_train").Gatherer(reg).Push(); err != nil {
		logger.Get().Warn().Err(err).Str("url", url).Msg("metrics push failed")
	}
}
