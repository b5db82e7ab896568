package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/bodymetrics/internal/domain/engine"
	"github.com/okian/bodymetrics/internal/domain/model"
	"github.com/okian/bodymetrics/internal/domain/scoring"
)

// queryFlags are shared by every subcommand.
type queryFlags struct {
	samples string
	kind    string
	mode    string
}

func (q *queryFlags) register(cmd *cobra.Command, withKind bool) {
	cmd.Flags().StringVarP(&q.samples, "samples", "s", "-", "JSON samples file, - for stdin")
	cmd.Flags().StringVarP(&q.mode, "mode", "m", string(model.ModeRaw), "raw or trend")
	if withKind {
		cmd.Flags().StringVarP(&q.kind, "kind", "k", string(model.KindWeight), "weight or body_fat")
	}
}

func (q *queryFlags) parse() ([]model.MetricSample, model.MetricKind, model.EstimateMode, error) {
	mode, err := model.ParseMode(q.mode)
	if err != nil {
		return nil, "", "", err
	}
	kind := model.KindWeight
	if q.kind != "" {
		if kind, err = model.ParseKind(q.kind); err != nil {
			return nil, "", "", err
		}
	}
	series, err := readSamples(q.samples)
	if err != nil {
		return nil, "", "", err
	}
	return series, kind, mode, nil
}

func dayFlag(v string) (time.Time, error) {
	if v == "" {
		return model.Day(time.Now()), nil
	}
	return model.ParseDay(v)
}

func estimateCmd() *cobra.Command {
	var (
		q    queryFlags
		date string
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate one metric on one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			series, kind, mode, err := q.parse()
			if err != nil {
				return err
			}
			d, err := dayFlag(date)
			if err != nil {
				return err
			}
			res, err := engine.New().Estimate(cmd.Context(), kind, series, d, mode)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	q.register(cmd, true)
	cmd.Flags().StringVarP(&date, "date", "d", "", "day as YYYY-MM-DD, default today")
	return cmd
}

func chartCmd() *cobra.Command {
	var (
		q        queryFlags
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Resolve one metric for every day of a range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			series, kind, mode, err := q.parse()
			if err != nil {
				return err
			}
			if from == "" {
				return errors.New("--from is required")
			}
			f, err := model.ParseDay(from)
			if err != nil {
				return err
			}
			t, err := dayFlag(to)
			if err != nil {
				return err
			}
			points, err := engine.New().Chart(cmd.Context(), kind, series, f, t, mode)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), points)
		},
	}
	q.register(cmd, true)
	cmd.Flags().StringVar(&from, "from", "", "first day as YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day as YYYY-MM-DD, default today")
	return cmd
}

func scoreCmd() *cobra.Command {
	var (
		q         queryFlags
		date, sex string
		birthYear int
		heightCm  float64
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the body score on one day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			series, _, mode, err := q.parse()
			if err != nil {
				return err
			}
			d, err := dayFlag(date)
			if err != nil {
				return err
			}
			profile := &model.Profile{Sex: model.Sex(sex), BirthYear: birthYear, HeightCm: heightCm}

			day, err := engine.New().ScoreOn(cmd.Context(), profile, series, d, mode)
			var incomplete *scoring.IncompleteInputError
			if errors.As(err, &incomplete) {
				// Still show what was resolved before failing.
				_ = writeJSON(cmd.ErrOrStderr(), day)
				return err
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), day)
		},
	}
	q.register(cmd, false)
	cmd.Flags().StringVarP(&date, "date", "d", "", "day as YYYY-MM-DD, default today")
	cmd.Flags().StringVar(&sex, "sex", "", "male or female")
	cmd.Flags().IntVar(&birthYear, "birth-year", 0, "year of birth")
	cmd.Flags().Float64Var(&heightCm, "height-cm", 0, "height in centimeters")
	return cmd
}
