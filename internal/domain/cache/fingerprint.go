package cache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/bodymetrics/internal/domain/model"
)

// Fingerprint is a content hash of a series or score input.
type Fingerprint uint64

func (f Fingerprint) String() string { return fmt.Sprintf("%016x", uint64(f)) }

type hasher struct {
	d   *xxhash.Digest
	buf [8]byte
}

func newHasher(tag string) *hasher {
	h := &hasher{d: xxhash.New()}
	_, _ = h.d.WriteString(tag)
	return h
}

func (h *hasher) u64(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[:], v)
	_, _ = h.d.Write(h.buf[:])
}

func (h *hasher) f64(v float64) { h.u64(math.Float64bits(v)) }

func (h *hasher) optF64(v *float64) {
	if v == nil {
		h.u64(0)
		return
	}
	h.u64(1)
	h.f64(*v)
}

func (h *hasher) sum() Fingerprint { return Fingerprint(h.d.Sum64()) }

// FingerprintSeries hashes the kind and every (day, value) point of series
// that carries a value for kind. Samples lacking the value and sources do not
// contribute, so two series that estimate identically share a fingerprint.
func FingerprintSeries(kind model.MetricKind, series []model.MetricSample) Fingerprint {
	h := newHasher("series:" + string(kind))
	for i := range series {
		v, ok := kind.Value(series[i])
		if !ok {
			continue
		}
		h.u64(uint64(model.Day(series[i].Date).Unix()))
		h.f64(v)
	}
	return h.sum()
}

// FingerprintInput hashes every field of a score input, including which are
// unset.
func FingerprintInput(in model.BodyScoreInput) Fingerprint {
	h := newHasher("input")
	if in.Sex == nil {
		_, _ = h.d.WriteString("-")
	} else {
		_, _ = h.d.WriteString(string(*in.Sex))
	}
	if in.BirthYear == nil {
		h.u64(0)
	} else {
		h.u64(1)
		h.u64(uint64(int64(*in.BirthYear)))
	}
	h.optF64(in.HeightCm)
	h.optF64(in.WeightKg)
	h.optF64(in.BodyFatPercent)
	return h.sum()
}

// FingerprintParams hashes a tagged list of configuration values. Engines
// built with different settings get different fingerprints, so they never
// read each other's cached answers.
func FingerprintParams(tag string, values ...float64) Fingerprint {
	h := newHasher("params:" + tag)
	h.u64(uint64(len(values)))
	for _, v := range values {
		h.f64(v)
	}
	return h.sum()
}
