package main

import (
	"fmt"
	"io"
	"os"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/okian/bodymetrics/internal/adapters/repository"
	"github.com/okian/bodymetrics/internal/domain/model"
)

// fileSample is one entry of a samples file.
type fileSample struct {
	Date           string   `json:"date"`
	WeightKg       *float64 `json:"weight_kg"`
	BodyFatPercent *float64 `json:"body_fat_percent"`
	Source         string   `json:"source"`
}

// readSamples parses a JSON array of samples from path, or stdin when path
// is "-". Later entries win when two share a day.
func readSamples(path string) ([]model.MetricSample, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open samples: %w", err)
		}
		defer f.Close()
		r = f
	}

	var raw []fileSample
	if err := go_json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode samples: %w", err)
	}

	byDay := make(map[time.Time]int, len(raw))
	out := make([]model.MetricSample, 0, len(raw))
	for i, fs := range raw {
		d, err := model.ParseDay(fs.Date)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		s := model.MetricSample{
			Date:           d,
			WeightKg:       fs.WeightKg,
			BodyFatPercent: fs.BodyFatPercent,
			Source:         model.Source{Kind: model.SourceKind(fs.Source)},
		}
		if s.Source.Kind == "" {
			s.Source.Kind = model.SourceManual
		}
		if err := repository.ValidateSample(s); err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if j, ok := byDay[d]; ok {
			out[j] = s
			continue
		}
		byDay[d] = len(out)
		out = append(out, s)
	}
	model.SortSamples(out)
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := go_json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
