package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MrWong99/woohoo/internal/challenge"
	"github.com/MrWong99/woohoo/internal/observe"
	"github.com/MrWong99/woohoo/internal/tui"
	"github.com/MrWong99/woohoo/pkg/capture"
	"github.com/MrWong99/woohoo/pkg/capture/malgo"
	"github.com/MrWong99/woohoo/pkg/claim"
	"github.com/MrWong99/woohoo/pkg/loudness"
)

type recordOptions struct {
	name          string
	phone         string
	device        string
	submitAttempt bool
	plain         bool
}

func newRecordCmd(g *globals) *cobra.Command {
	var opts recordOptions
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Take the challenge with the local microphone",
		Long: `Captures ten seconds from the microphone while showing a live meter,
then prints the peak score and the pass it earned.

With --name and --phone a winning attempt is claimed with the reward API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (opts.name == "") != (opts.phone == "") {
				return errors.New("--name and --phone must be given together")
			}
			return runRecord(cmd.Context(), g, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "player name for the reward claim")
	cmd.Flags().StringVar(&opts.phone, "phone", "", "10-digit phone number for the reward claim")
	cmd.Flags().StringVar(&opts.device, "device", "", "capture device ID from \"woohoo devices\" (overrides capture.device_id)")
	cmd.Flags().BoolVar(&opts.submitAttempt, "submit-attempt", false, "record the attempt anonymously with the reward API")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print log lines instead of the interactive meter")
	return cmd
}

func runRecord(ctx context.Context, g *globals, opts recordOptions, out io.Writer) error {
	cfg := g.cfg
	metrics := observe.DefaultMetrics()

	client, err := newClaimClient(cfg.Claim, metrics)
	if err != nil {
		return err
	}
	if client == nil && (opts.name != "" || opts.submitAttempt) {
		return errors.New("claim.base_url is not configured; cannot submit")
	}

	device := cfg.Capture.DeviceID
	if opts.device != "" {
		device = opts.device
	}
	src := &malgo.Source{DeviceID: device, SampleRate: cfg.Capture.SampleRate}

	runner, err := challenge.NewRunner(src, submitter(client), challengeConfig(cfg), challenge.WithMetrics(metrics))
	if err != nil {
		return err
	}

	var res challenge.Result
	if opts.plain {
		res, err = runPlain(ctx, runner, out)
	} else {
		res, err = tui.Run(ctx, runner)
	}
	if err != nil {
		return recordError(err)
	}

	printResult(out, res)
	return submitResult(ctx, runner, res, opts, out)
}

// runPlain runs the attempt with one status line per second.
func runPlain(ctx context.Context, runner *challenge.Runner, out io.Writer) (challenge.Result, error) {
	var latest loudness.Reading
	fmt.Fprintln(out, "Waiting for the microphone...")
	return runner.Run(ctx, challenge.Hooks{
		OnStart: func(string) {
			fmt.Fprintln(out, "Scream!")
		},
		OnReading: func(r loudness.Reading) {
			latest = r
		},
		OnCountdown: func(n int) {
			fmt.Fprintf(out, "%2ds  score %4d  peak %4d\n", n, latest.Score, latest.Peak)
		},
	})
}

func printResult(out io.Writer, res challenge.Result) {
	fmt.Fprintf(out, "\nPeak score: %d (%s)\n", res.Peak, res.Strategy)
	if res.Strategy == loudness.StrategyRMS {
		fmt.Fprintf(out, "Peak level: %.1f dBFS\n", res.DBFS)
	}
	if res.Rewarded() {
		fmt.Fprintf(out, "You won a %s!\n", res.Label())
	} else {
		fmt.Fprintln(out, "No pass this time. Try again!")
	}
}

func submitResult(ctx context.Context, runner *challenge.Runner, res challenge.Result, opts recordOptions, out io.Writer) error {
	if opts.submitAttempt {
		ar, err := runner.SubmitAttempt(ctx, res)
		if err != nil {
			slog.Warn("record: attempt not recorded", "err", err)
			fmt.Fprintln(out, "Attempt could not be recorded:", claim.UserMessage(err))
		} else if ar.Message != "" {
			fmt.Fprintln(out, ar.Message)
		}
	}

	if opts.name == "" {
		return nil
	}
	if !res.Rewarded() {
		fmt.Fprintln(out, "Nothing to claim.")
		return nil
	}
	rec, err := runner.Claim(ctx, res, opts.name, opts.phone)
	if err != nil {
		return fmt.Errorf("claim: %s", claim.UserMessage(err))
	}
	fmt.Fprintf(out, "Claimed %s for %s. Your code: %s\n", rec.Reward.Label(), rec.Name, rec.UniqueKey)
	return nil
}

func recordError(err error) error {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return errors.New("microphone access was denied; allow access for this terminal and try again")
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return fmt.Errorf("no usable microphone: %w", err)
	default:
		return err
	}
}
