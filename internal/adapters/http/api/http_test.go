package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/okian/bodymetrics/internal/adapters/http/api"
	service "github.com/okian/bodymetrics/internal/app"
	"github.com/okian/bodymetrics/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

// failingDeps wraps a real service and overrides the operations under test.
type failingDeps struct {
	*service.Service
	prewarmErr error
	seriesErr  error
}

func (f *failingDeps) Prewarm(ctx context.Context, userID string, from, to time.Time) (string, error) {
	if f.prewarmErr != nil {
		return "", f.prewarmErr
	}
	return f.Service.Prewarm(ctx, userID, from, to)
}

func (f *failingDeps) Estimate(ctx context.Context, userID string, kind model.MetricKind, date time.Time, mode model.EstimateMode) (model.Resolved, error) {
	if f.seriesErr != nil {
		return model.Resolved{}, f.seriesErr
	}
	return f.Service.Estimate(ctx, userID, kind, date, mode)
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(service.New())

		Convey("Then health serves Prometheus metrics", func() {
			w := do(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "bodymetrics_")
		})

		Convey("And stats returns the provider's map", func() {
			w := do(mux, "GET", "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("And unknown routes are not found", func() {
			So(do(mux, "GET", "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And wrong methods are rejected", func() {
			So(do(mux, "GET", "/prewarm/u1", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestSamplesAndEstimates(t *testing.T) {
	Convey("Given a user with two weight samples", t, func() {
		mux := newMux(service.New())
		So(do(mux, "POST", "/samples/u1", `{"date":"2024-01-01","weight_kg":80}`).Code, ShouldEqual, http.StatusNoContent)
		So(do(mux, "POST", "/samples/u1", `{"date":"2024-01-15","weight_kg":78,"source":"health_import"}`).Code, ShouldEqual, http.StatusNoContent)

		Convey("When reading the series", func() {
			w := do(mux, "GET", "/samples/u1", "")
			var series []model.MetricSample
			So(go_json.Unmarshal(w.Body.Bytes(), &series), ShouldBeNil)
			So(series, ShouldHaveLength, 2)
			So(series[1].Source.Kind, ShouldEqual, model.SourceHealthImport)
		})

		Convey("When estimating between them", func() {
			w := do(mux, "GET", "/estimate/u1?kind=weight&date=2024-01-08", "")

			Convey("Then the interpolated value is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var res model.Resolved
				So(go_json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.Resolution, ShouldEqual, model.ResolutionInterpolated)
				So(res.Metric.Value, ShouldAlmostEqual, 79.0, 1e-9)
				So(res.Metric.Confidence, ShouldEqual, model.ConfidenceMedium)
			})
		})

		Convey("When estimating body fat that was never recorded", func() {
			w := do(mux, "GET", "/estimate/u1?kind=body_fat&date=2024-01-08", "")
			var res model.Resolved
			So(go_json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
			So(res.Resolution, ShouldEqual, model.ResolutionUnknown)
			So(res.Metric, ShouldBeNil)
		})

		Convey("When charting the range", func() {
			w := do(mux, "GET", "/chart/u1?from=2024-01-01&to=2024-01-15&mode=trend", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var points []model.ChartPoint
			So(go_json.Unmarshal(w.Body.Bytes(), &points), ShouldBeNil)
			So(points, ShouldHaveLength, 15)
		})

		Convey("When deleting a sample", func() {
			So(do(mux, "DELETE", "/samples/u1?date=2024-01-15", "").Code, ShouldEqual, http.StatusNoContent)
			So(do(mux, "DELETE", "/samples/u1?date=2024-01-15", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When requests are malformed", func() {
			So(do(mux, "POST", "/samples/u1", `{invalid`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/samples/u1", `{"weight_kg":80}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/samples/u1", `{"date":"2024-01-02"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "POST", "/samples/u1", `{"date":"2024-01-02","weight_kg":80,"source":"fax"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/estimate/u1?kind=height", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/estimate/u1?mode=smooth", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/estimate/u1?date=01/08/2024", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/chart/u1?to=2024-01-15", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/chart/u1?from=2024-01-15&to=2024-01-01", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "GET", "/chart/u1?from=2020-01-01&to=2024-01-01", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a request body exceeds the size limit", func() {
			padding := strings.Repeat("x", 70<<10)
			w := do(mux, "POST", "/samples/u1", `{"date":"2024-01-02","weight_kg":80,"integration_id":"`+padding+`"}`)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(w.Body.String(), ShouldContainSubstring, "body_too_large")
			So(do(mux, "PUT", "/profile/u1", `{"sex":"male","pad":"`+padding+`"}`).Code, ShouldEqual, http.StatusRequestEntityTooLarge)

			Convey("Then nothing is stored", func() {
				w := do(mux, "GET", "/samples/u1", "")
				var got []model.MetricSample
				So(go_json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
			})
		})
	})
}

func TestScoreEndpoint(t *testing.T) {
	Convey("Given a user with a complete sample", t, func() {
		mux := newMux(service.New())
		So(do(mux, "POST", "/samples/u1", `{"date":"2024-06-01","weight_kg":90,"body_fat_percent":12}`).Code, ShouldEqual, http.StatusNoContent)

		Convey("When no profile is stored", func() {
			w := do(mux, "GET", "/score/u1?date=2024-06-01", "")

			Convey("Then the missing fields are reported with 422", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				var body struct {
					Code          string         `json:"code"`
					MissingFields []string       `json:"missing_fields"`
					Weight        model.Resolved `json:"weight"`
				}
				So(go_json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Code, ShouldEqual, "incomplete_input")
				So(body.MissingFields, ShouldResemble, []string{"sex", "birth_year", "height_cm"})
				So(body.Weight.Resolution, ShouldEqual, model.ResolutionMeasured)
			})

			Convey("And the profile is not found", func() {
				So(do(mux, "GET", "/profile/u1", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a profile is stored", func() {
			So(do(mux, "PUT", "/profile/u1", `{"sex":"male","birth_year":1990,"height_cm":180}`).Code, ShouldEqual, http.StatusNoContent)
			w := do(mux, "GET", "/score/u1?date=2024-06-01", "")

			Convey("Then the score is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var day model.ScoredDay
				So(go_json.Unmarshal(w.Body.Bytes(), &day), ShouldBeNil)
				So(day.Result.Score, ShouldEqual, 86)
				So(day.Result.StatusTagline, ShouldNotBeEmpty)
			})
		})

		Convey("When the profile is invalid", func() {
			So(do(mux, "PUT", "/profile/u1", `{"sex":"robot","birth_year":1990,"height_cm":180}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, "PUT", "/profile/u1", `{"sex":"female","birth_year":1990,"height_cm":-1}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestPrewarmEndpoint(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		deps := &failingDeps{Service: svc}
		mux := newMux(deps)

		Convey("When prewarming a valid range", func() {
			w := do(mux, "POST", "/prewarm/u1?from=2024-01-01&to=2024-01-31", "")

			Convey("Then a job id is returned", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"job_id"`)
			})
		})

		Convey("When the queue is full", func() {
			deps.prewarmErr = service.ErrBackpressure
			So(do(mux, "POST", "/prewarm/u1?from=2024-01-01", "").Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("When from is missing", func() {
			So(do(mux, "POST", "/prewarm/u1", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an upstream call fails unexpectedly", func() {
			deps.seriesErr = errors.New("disk on fire")
			So(do(mux, "GET", "/estimate/u1", "").Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}
