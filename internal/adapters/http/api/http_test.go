package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/vigil/internal/adapters/http/api"
	"github.com/okian/vigil/internal/adapters/repository"
	"github.com/okian/vigil/internal/app"
	"github.com/okian/vigil/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// harness bundles a started monitor with a test HTTP server.
type harness struct {
	monitor *app.Monitor
	store   *repository.MemoryStore
	server  *httptest.Server
}

func newHarness(ctx context.Context) *harness {
	store := repository.NewMemoryStore()
	m := app.New(
		app.WithEventStore(store),
		app.WithSessionStore(store),
		app.WithWorkerCount(2),
	)
	if err := m.Start(ctx); err != nil {
		panic(err)
	}

	mux := http.NewServeMux()
	api.NewServer(m, store, m.Reports(), m).Register(ctx, mux)
	return &harness{
		monitor: m,
		store:   store,
		server:  httptest.NewServer(mux),
	}
}

func (h *harness) close() {
	h.server.Close()
	h.monitor.Stop()
}

func (h *harness) post(path string, body any) *http.Response {
	payload, _ := json.Marshal(body)
	resp, err := http.Post(h.server.URL+path, "application/json", bytes.NewReader(payload))
	So(err, ShouldBeNil)
	return resp
}

func (h *harness) get(path string) *http.Response {
	resp, err := http.Get(h.server.URL + path)
	So(err, ShouldBeNil)
	return resp
}

func decode[T any](resp *http.Response) T {
	defer resp.Body.Close()
	var out T
	So(json.NewDecoder(resp.Body).Decode(&out), ShouldBeNil)
	return out
}

type sessionBody struct {
	ID             string `json:"id"`
	Status         string `json:"status"`
	TotalEvents    int    `json:"total_events"`
	IntegrityScore *int   `json:"integrity_score"`
}

type ackBody struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

func (h *harness) startSession() string {
	resp := h.post("/sessions", map[string]string{
		"candidate_name": "Jane Doe",
		"interviewer":    "lee",
	})
	So(resp.StatusCode, ShouldEqual, http.StatusCreated)
	return decode[sessionBody](resp).ID
}

func eventPayload(sessionID string) map[string]any {
	return map[string]any{
		"session_id":  sessionID,
		"event_kind":  "phone_detected",
		"description": "Mobile phone detected in the video frame",
		"confidence":  0.9,
		"ts":          time.Now().UTC().Format(time.RFC3339),
	}
}

func TestSessionEndpoints(t *testing.T) {
	Convey("Given a running API server", t, func() {
		h := newHarness(context.Background())
		defer h.close()

		Convey("When a session is started over HTTP", func() {
			id := h.startSession()

			Convey("Then it can be fetched back", func() {
				resp := h.get("/sessions/" + id)
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				got := decode[sessionBody](resp)
				So(got.ID, ShouldEqual, id)
				So(got.Status, ShouldEqual, "active")
			})

			Convey("Then it appears in the active list", func() {
				resp := h.get("/sessions?status=active")
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				list := decode[[]sessionBody](resp)
				So(list, ShouldHaveLength, 1)
			})

			Convey("And when it is ended", func() {
				resp := h.post("/sessions/"+id+"/end", map[string]string{"notes": "done"})
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				got := decode[sessionBody](resp)
				So(got.Status, ShouldEqual, "completed")
				So(got.IntegrityScore, ShouldNotBeNil)

				Convey("Then a second end request conflicts", func() {
					again := h.post("/sessions/"+id+"/end", nil)
					defer again.Body.Close()
					So(again.StatusCode, ShouldEqual, http.StatusConflict)
				})
			})
		})

		Convey("When a bad candidate name is submitted", func() {
			resp := h.post("/sessions", map[string]string{"candidate_name": "J"})
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When an unknown session is fetched", func() {
			resp := h.get("/sessions/nope")
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When an unknown status filter is used", func() {
			resp := h.get("/sessions?status=paused")
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestEventEndpoints(t *testing.T) {
	Convey("Given a running API server with an active session", t, func() {
		h := newHarness(context.Background())
		defer h.close()
		id := h.startSession()

		Convey("When a valid event is posted", func() {
			resp := h.post("/events", eventPayload(id))

			Convey("Then it is accepted and stored", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)
				ack := decode[ackBody](resp)
				So(ack.Status, ShouldEqual, "accepted")
				So(ack.EventID, ShouldNotBeEmpty)

				events, _ := h.store.ListBySession(context.Background(), id)
				So(events, ShouldHaveLength, 1)
			})
		})

		Convey("When the same event id is posted twice", func() {
			payload := eventPayload(id)
			payload["event_id"] = "evt-1"
			first := h.post("/events", payload)
			first.Body.Close()
			second := h.post("/events", payload)

			Convey("Then the retry reports duplicate", func() {
				So(second.StatusCode, ShouldEqual, http.StatusOK)
				So(decode[ackBody](second).Duplicate, ShouldBeTrue)
			})
		})

		Convey("When the payload is invalid", func() {
			Convey("Then a missing ts is rejected", func() {
				payload := eventPayload(id)
				delete(payload, "ts")
				resp := h.post("/events", payload)
				defer resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then an unknown kind is rejected", func() {
				payload := eventPayload(id)
				payload["event_kind"] = "weather_changed"
				resp := h.post("/events", payload)
				defer resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a short description is rejected", func() {
				payload := eventPayload(id)
				payload["description"] = "hey"
				resp := h.post("/events", payload)
				defer resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting to an ended session", func() {
			end := h.post("/sessions/"+id+"/end", nil)
			end.Body.Close()
			resp := h.post("/events", eventPayload(id))
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusConflict)
		})

		Convey("When the event log is queried", func() {
			resp := h.post("/events", eventPayload(id))
			resp.Body.Close()

			list := h.get("/sessions/" + id + "/events")

			So(list.StatusCode, ShouldEqual, http.StatusOK)
			events := decode[[]map[string]any](list)
			So(events, ShouldHaveLength, 1)
			So(events[0]["event_kind"], ShouldEqual, "phone_detected")
		})
	})
}

func TestReportEndpoint(t *testing.T) {
	Convey("Given a session with recorded events", t, func() {
		h := newHarness(context.Background())
		defer h.close()
		id := h.startSession()

		resp := h.post("/events", eventPayload(id))
		resp.Body.Close()
		end := h.post("/sessions/"+id+"/end", nil)
		end.Body.Close()

		Convey("When the summary report is fetched", func() {
			r := h.get("/sessions/" + id + "/report")

			So(r.StatusCode, ShouldEqual, http.StatusOK)
			summary := decode[map[string]any](r)
			So(summary["integrity_score"], ShouldEqual, 95)
			So(summary["risk_level"], ShouldEqual, "HIGH")
		})

		Convey("When the rows report is fetched", func() {
			r := h.get("/sessions/" + id + "/report?format=rows")

			So(r.StatusCode, ShouldEqual, http.StatusOK)
			body := decode[map[string]any](r)
			So(body["columns"], ShouldNotBeNil)
			So(body["rows"], ShouldNotBeNil)
		})

		Convey("When the narrative report is fetched", func() {
			r := h.get("/sessions/" + id + "/report?format=narrative")
			defer r.Body.Close()

			So(r.StatusCode, ShouldEqual, http.StatusOK)
			So(r.Header.Get("Content-Type"), ShouldStartWith, "text/plain")
		})

		Convey("When an unknown format is requested", func() {
			r := h.get("/sessions/" + id + "/report?format=pdf")
			defer r.Body.Close()

			So(r.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestEventStatsEndpoint(t *testing.T) {
	Convey("Given a session with recorded events", t, func() {
		h := newHarness(context.Background())
		defer h.close()
		id := h.startSession()

		first := h.post("/events", eventPayload(id))
		first.Body.Close()
		lower := eventPayload(id)
		lower["confidence"] = 0.7
		second := h.post("/events", lower)
		second.Body.Close()

		Convey("When the per-kind stats are fetched", func() {
			r := h.get("/sessions/" + id + "/events/stats")

			So(r.StatusCode, ShouldEqual, http.StatusOK)
			stats := decode[[]map[string]any](r)
			So(stats, ShouldHaveLength, 1)
			So(stats[0]["event_kind"], ShouldEqual, "phone_detected")
			So(stats[0]["count"], ShouldEqual, 2)
			So(stats[0]["average_confidence"], ShouldAlmostEqual, 0.8)
		})

		Convey("When stats are fetched for an unknown session", func() {
			r := h.get("/sessions/nope/events/stats")
			defer r.Body.Close()

			So(r.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestStatsAndHealth(t *testing.T) {
	Convey("Given a running API server", t, func() {
		h := newHarness(context.Background())
		defer h.close()

		Convey("When stats are fetched", func() {
			resp := h.get("/stats")

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			stats := decode[map[string]any](resp)
			So(stats["started"], ShouldEqual, true)
		})

		Convey("When metrics are scraped", func() {
			resp := h.get("/healthz")
			defer resp.Body.Close()

			So(resp.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}
