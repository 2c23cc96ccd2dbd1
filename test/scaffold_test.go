package test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	checkinHandler "turnstile/internal/checkin/handler"
	checkinService "turnstile/internal/checkin/service"
	"turnstile/internal/checkin/store/feed"
	"turnstile/internal/checkin/store/scanlog"
	"turnstile/internal/device"
	deviceHandler "turnstile/internal/device/handler"
	deviceService "turnstile/internal/device/service"
	devicestore "turnstile/internal/device/store/device"
	"turnstile/internal/device/store/revocation"
	httpapi "turnstile/internal/http"
	jwttoken "turnstile/internal/jwt_token"
	registrationHandler "turnstile/internal/registration/handler"
	registrationService "turnstile/internal/registration/service"
	regstore "turnstile/internal/registration/store/registration"
	reportHandler "turnstile/internal/report/handler"
	reportService "turnstile/internal/report/service"
	rosterHandler "turnstile/internal/roster/handler"
	rosterService "turnstile/internal/roster/service"
	eventstore "turnstile/internal/roster/store/event"
	studentstore "turnstile/internal/roster/store/student"
	"turnstile/pkg/platform/tx"
	"turnstile/pkg/testutil"
)

const adminToken = "test-admin-token"

// newTestRouter assembles the full route tree on in-memory stores, the same
// shape main wires when no external backends are configured.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	students := studentstore.New()
	events := eventstore.New()
	ledger := regstore.New()
	scans := scanlog.New()
	devices := devicestore.New()
	recentFeed := feed.NewInMemory(25)
	trl := revocation.NewInMemoryTRL()
	fingerprints := device.NewService(false)
	jwtService := jwttoken.NewJWTService("test-secret", "turnstile", "scanners")

	rosterSvc := rosterService.New(students, events, rosterService.WithLogger(log))
	registrationSvc := registrationService.New(ledger, rosterSvc, registrationService.WithLogger(log))
	checkinSvc := checkinService.New(ledger, scans, rosterSvc, tx.NewShardedRunner(),
		checkinService.WithLogger(log),
		checkinService.WithFeed(recentFeed),
	)
	deviceSvc := deviceService.New(devices, jwtService, trl, fingerprints,
		deviceService.WithLogger(log),
	)
	reportSvc := reportService.New(ledger, students, events, scans,
		reportService.WithLogger(log),
		reportService.WithFeed(recentFeed),
	)

	return httpapi.NewRouter(httpapi.Deps{
		Logger:            log,
		AdminToken:        adminToken,
		TokenValidator:    jwttoken.NewJWTServiceAdapter(jwtService),
		RevocationChecker: trl,

		Roster:        rosterHandler.New(rosterSvc, log),
		Registrations: registrationHandler.New(registrationSvc, log),
		CheckIns:      checkinHandler.New(checkinSvc, log),
		Reports: reportHandler.New(reportSvc, reportHandler.DocumentFor{
			Report:     reportService.ReportDocument,
			Attendance: reportService.AttendanceDocument,
		}, log),
		Devices: deviceHandler.New(deviceSvc, log),
	})
}

func TestRouterScaffold(t *testing.T) {
	testutil.Given(t, "the assembled HTTP router", func(t *testing.T) {
		router := newTestRouter(t)

		testutil.When(t, "calling GET /healthz", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

			testutil.Then(t, "it should report ok", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
				var body map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("invalid health body: %v", err)
				}
				if body["status"] != "ok" {
					t.Fatalf("expected status ok, got %q", body["status"])
				}
			})
		})

		testutil.When(t, "calling GET /metrics", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))

			testutil.Then(t, "it should expose the metrics endpoint", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
				}
			})
		})

		testutil.When(t, "calling POST /scan without a device token", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/scan", map[string]string{
				"pass": "not-a-pass",
			}))

			testutil.Then(t, "it should be rejected as unauthorized", func(t *testing.T) {
				if rec.Code != http.StatusUnauthorized {
					t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
				}
			})
		})

		testutil.When(t, "calling POST /students without the admin token", func(t *testing.T) {
			rec := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/students", map[string]string{
				"name":       "Dana Osei",
				"student_no": "S-1001",
			}))

			testutil.Then(t, "it should be rejected as unauthorized", func(t *testing.T) {
				if rec.Code != http.StatusUnauthorized {
					t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
				}
			})
		})

		testutil.When(t, "creating a student with the admin token", func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/students", map[string]string{
				"name":       "Dana Osei",
				"student_no": "S-1001",
				"email":      "dana@example.edu",
			})
			req.Header.Set("X-Admin-Token", adminToken)
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "it should create the student", func(t *testing.T) {
				if rec.Code != http.StatusCreated {
					t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
				}
				var body map[string]any
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("invalid response body: %v", err)
				}
				if body["id"] == "" {
					t.Fatal("expected a student id in the response")
				}
			})
		})

		testutil.When(t, "creating an event with the admin token", func(t *testing.T) {
			now := time.Now().UTC()
			req := testutil.NewJSONRequest(t, http.MethodPost, "/events", map[string]any{
				"title":     "Orientation",
				"venue":     "Main Hall",
				"starts_at": now.Add(time.Hour),
				"ends_at":   now.Add(3 * time.Hour),
				"capacity":  200,
			})
			req.Header.Set("X-Admin-Token", adminToken)
			rec := testutil.DoRequest(router, req)

			testutil.Then(t, "it should create the event", func(t *testing.T) {
				if rec.Code != http.StatusCreated {
					t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
				}
			})
		})
	})
}
