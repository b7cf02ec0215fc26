package hub

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router exposing the hub API over the repository.
// Tenancy middleware is mounted by the caller so the same router works in
// single- and multi-tenant deployments.
func NewRouter(repo *Repository) chi.Router {
	r := chi.NewRouter()

	r.Route("/sources", func(r chi.Router) {
		r.Post("/bootstrap-samples", bootstrapSamplesHandler(repo))
		r.Route("/{source_id}", func(r chi.Router) {
			r.Put("/", upsertSourceHandler(repo))
			r.Get("/", getSourceHandler(repo))
			r.Put("/schedule", upsertScheduleHandler(repo))
			r.Get("/schedule", getScheduleHandler(repo))
			r.Post("/fetch-now", fetchNowHandler(repo))
			r.Post("/promote", promoteActiveHandler(repo))
			r.Get("/active-release", getActiveReleaseHandler(repo))
		})
	})

	r.Route("/snapshots", func(r chi.Router) {
		r.Post("/diff", diffSnapshotsHandler(repo))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getSnapshotHandler(repo))
			r.Post("/validate", validateSnapshotHandler(repo))
			r.Get("/quality", getQualityHandler(repo))
			r.Post("/publish", publishSnapshotHandler(repo))
		})
	})

	r.Get("/admin-division", queryAdminDivisionHandler(repo))
	r.Get("/road", queryRoadHandler(repo))
	r.Get("/poi", queryPOIHandler(repo))

	r.Route("/validation", func(r chi.Router) {
		r.Post("/evidence", validationEvidenceHandler(repo))
		r.Post("/replay", validationReplayHandler(repo))
		r.Get("/replay-runs", listReplayRunsHandler(repo))
	})

	r.Get("/audit-events", listAuditEventsHandler(repo))

	r.Get("/healthcheck", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
