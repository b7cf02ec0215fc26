package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/addressgov/trust-data-hub/pkg/tenancy"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with a machine-readable code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// writeHubError maps a hub error to its HTTP status. Not-found errors map to
// 404; gate failures split between 403 (authorization-shaped: disabled source,
// quality floor, unpublished snapshot) and 400 (caller can fix the request);
// persistence failures are 500.
func writeHubError(w http.ResponseWriter, err error) {
	he, ok := AsHubError(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	status := http.StatusInternalServerError
	switch he.Kind {
	case KindNotFound:
		status = http.StatusNotFound
	case KindPrecondition:
		switch he.Code {
		case CodeSourceDisabled, CodeQualityBelowMinimum, CodeSnapshotNotPublished:
			status = http.StatusForbidden
		default:
			status = http.StatusBadRequest
		}
	case KindPersistence:
		status = http.StatusInternalServerError
	}
	writeError(w, status, he.Code, he.Message)
}

func upsertSourceHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceID := chi.URLParam(r, "source_id")
		ns := tenancy.NamespaceFromContext(r.Context())

		var spec SourceSpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid request body: %v", err))
			return
		}

		src, err := repo.UpsertSource(r.Context(), ns, sourceID, spec)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, src)
	}
}

func getSourceHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		src, err := repo.GetSource(r.Context(), ns, chi.URLParam(r, "source_id"))
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, src)
	}
}

func upsertScheduleHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sourceID := chi.URLParam(r, "source_id")
		ns := tenancy.NamespaceFromContext(r.Context())

		var spec ScheduleSpec
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid request body: %v", err))
			return
		}

		sched, err := repo.UpsertSourceSchedule(r.Context(), ns, sourceID, spec)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sched)
	}
}

func getScheduleHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		sched, err := repo.GetSourceSchedule(r.Context(), ns, chi.URLParam(r, "source_id"))
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sched)
	}
}

func fetchNowHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		actor := tenancy.ActorFromContext(r.Context())
		snap, err := repo.FetchNow(r.Context(), ns, chi.URLParam(r, "source_id"), actor)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func getSnapshotHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		snap, err := repo.GetSnapshot(r.Context(), ns, chi.URLParam(r, "id"))
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func validateSnapshotHandler(repo *Repository) http.HandlerFunc {
	type response struct {
		Quality QualityReport `json:"quality_report"`
		Diff    *DiffReport   `json:"diff_report,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		quality, diff, err := repo.ValidateSnapshot(r.Context(), ns, chi.URLParam(r, "id"))
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{Quality: quality, Diff: diff})
	}
}

func getQualityHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		quality, err := repo.GetQualityReport(r.Context(), ns, chi.URLParam(r, "id"))
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, quality)
	}
}

func publishSnapshotHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		actor := tenancy.ActorFromContext(r.Context())
		job, err := repo.PublishSnapshot(r.Context(), ns, chi.URLParam(r, "id"), actor)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func promoteActiveHandler(repo *Repository) http.HandlerFunc {
	type request struct {
		SnapshotID      string `json:"snapshot_id"`
		ActivatedBy     string `json:"activated_by,omitempty"`
		ActivationNote  string `json:"activation_note,omitempty"`
		ConfirmHighDiff bool   `json:"confirm_high_diff,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sourceID := chi.URLParam(r, "source_id")
		ns := tenancy.NamespaceFromContext(r.Context())

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.SnapshotID == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "snapshot_id is required")
			return
		}
		if req.ActivatedBy == "" {
			req.ActivatedBy = tenancy.ActorFromContext(r.Context())
		}

		rel, err := repo.PromoteActive(r.Context(), ns, sourceID, req.SnapshotID, req.ActivatedBy, req.ActivationNote, req.ConfirmHighDiff)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rel)
	}
}

func getActiveReleaseHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		rel, err := repo.GetActiveRelease(r.Context(), ns, chi.URLParam(r, "source_id"))
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rel)
	}
}

func diffSnapshotsHandler(repo *Repository) http.HandlerFunc {
	type request struct {
		BaseSnapshotID string `json:"base_snapshot_id"`
		NewSnapshotID  string `json:"new_snapshot_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.BaseSnapshotID == "" || req.NewSnapshotID == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "base_snapshot_id and new_snapshot_id are required")
			return
		}

		diff, err := repo.DiffSnapshots(r.Context(), ns, req.BaseSnapshotID, req.NewSnapshotID)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, diff)
	}
}

func queryAdminDivisionHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		name := r.URL.Query().Get("name")
		parent := r.URL.Query().Get("parent_adcode")

		cands, err := repo.QueryAdminDivision(r.Context(), ns, name, parent)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"candidates": emptyIfNil(cands)})
	}
}

func queryRoadHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		name := r.URL.Query().Get("name")
		adcode := r.URL.Query().Get("adcode")

		cands, err := repo.QueryRoad(r.Context(), ns, name, adcode)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"candidates": emptyIfNil(cands)})
	}
}

func queryPOIHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		name := r.URL.Query().Get("name")
		adcode := r.URL.Query().Get("adcode")
		topK := 0
		if v := r.URL.Query().Get("top_k"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				topK = n
			}
		}

		cands, err := repo.QueryPOI(r.Context(), ns, name, adcode, topK)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"candidates": emptyIfNil(cands)})
	}
}

func validationEvidenceHandler(repo *Repository) http.HandlerFunc {
	type request struct {
		Input      ValidationInput `json:"input"`
		SnapshotID string          `json:"snapshot_id,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid request body: %v", err))
			return
		}

		var ev Evidence
		var err error
		if req.SnapshotID != "" {
			ev, err = repo.BuildValidationEvidenceBySnapshot(r.Context(), ns, req.SnapshotID, req.Input)
		} else {
			ev, err = repo.BuildValidationEvidence(r.Context(), ns, req.Input)
		}
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

func validationReplayHandler(repo *Repository) http.HandlerFunc {
	type request struct {
		Input      ValidationInput `json:"input"`
		SnapshotID string          `json:"snapshot_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())

		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.SnapshotID == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "snapshot_id is required")
			return
		}

		ev, err := repo.ReplayValidationEvidenceBySnapshot(r.Context(), ns, req.SnapshotID, req.Input)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

func listAuditEventsHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		events, err := repo.ListAuditEvents(r.Context(), ns, limit)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": emptyIfNilEvents(events)})
	}
}

func listReplayRunsHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		snapshotID := r.URL.Query().Get("snapshot_id")
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		runs, err := repo.ListReplayRuns(r.Context(), ns, snapshotID, limit)
		if err != nil {
			writeHubError(w, err)
			return
		}
		if runs == nil {
			runs = []ReplayRun{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

func bootstrapSamplesHandler(repo *Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns := tenancy.NamespaceFromContext(r.Context())
		sources, err := repo.BootstrapSampleSources(r.Context(), ns)
		if err != nil {
			writeHubError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
	}
}

func emptyIfNil(cands []Candidate) []Candidate {
	if cands == nil {
		return []Candidate{}
	}
	return cands
}

func emptyIfNilEvents(events []AuditEvent) []AuditEvent {
	if events == nil {
		return []AuditEvent{}
	}
	return events
}
