package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"appforge/internal/attachment"
	"appforge/internal/ledger"
	"appforge/internal/pipeline"
)

type intakeBody struct {
	Secret        *string              `json:"secret"`
	Email         *string              `json:"email"`
	Task          *string              `json:"task"`
	Round         *int                 `json:"round"`
	Nonce         *json.RawMessage     `json:"nonce"`
	EvaluationURL *string              `json:"evaluation_url"`
	Brief         string               `json:"brief"`
	Attachments   []attachment.Payload `json:"attachments"`
	Checks        []string             `json:"checks"`
}

func (s *Server) registerIntakeRoutes() {
	s.mux.HandleFunc("/hooks/task", s.handleTaskHook)
}

// handleTaskHook is the intake gate: secret check, field validation,
// duplicate suppression. It answers immediately; accepted work runs on a
// background goroutine that outlives this exchange.
func (s *Server) handleTaskHook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	var body intakeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	// Auth first: a bad secret causes no side effects and no payload logging.
	if body.Secret == nil || *body.Secret != s.deps.Secret {
		s.deps.Logger.Warn("webhook rejected: invalid secret")
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Invalid secret"})
		return
	}

	if missing := missingFields(body); len(missing) > 0 {
		s.deps.Logger.Error("webhook rejected: missing fields", "fields", missing)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Missing required fields: " + strings.Join(missing, ", "),
		})
		return
	}

	// Round is a closed set; anything outside it is rejected rather than
	// falling through to the update branch.
	if *body.Round != 1 && *body.Round != 2 {
		s.deps.Logger.Error("webhook rejected: invalid round", "round", *body.Round)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": fmt.Sprintf("Invalid round: %d (must be 1 or 2)", *body.Round),
		})
		return
	}

	req := pipeline.Request{
		Email:         *body.Email,
		Task:          *body.Task,
		Round:         *body.Round,
		Nonce:         rawToString(*body.Nonce),
		EvaluationURL: *body.EvaluationURL,
		Brief:         body.Brief,
		Attachments:   body.Attachments,
		Checks:        body.Checks,
	}
	key := req.Identity().Key()

	if prev, err := s.deps.Ledger.Get(key); err == nil {
		// Replay: the work is done; re-deliver the stored record so a lost
		// notification is recovered without redoing anything.
		s.deps.Logger.Info("duplicate request, re-notifying", "key", key)
		if nerr := s.deps.Notifier.Notify(r.Context(), req.EvaluationURL, prev); nerr != nil {
			s.deps.Logger.Error("replay notify failed", "key", key, "err", nerr)
		}
		s.publishEvent("task.duplicate", req.Task, map[string]any{"round": req.Round})
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"note":   "duplicate handled & re-notified",
		})
		return
	} else if !errors.Is(err, ledger.ErrNotFound) {
		// A sick ledger reads as empty; the round runs again, which is safe.
		s.deps.Logger.Warn("ledger lookup failed, treating as new", "key", key, "err", err)
	}

	runID := s.deps.Scheduler.Schedule(key, func(ctx context.Context) error {
		rec, err := s.deps.Runner.Run(ctx, req)
		if err != nil {
			s.publishEvent("run.failed", req.Task, map[string]any{"round": req.Round, "error": err.Error()})
			return err
		}
		s.publishEvent("run.completed", req.Task, map[string]any{"round": req.Round, "repo_url": rec.RepoURL})
		return nil
	})

	s.deps.Logger.Info("request accepted", "key", key, "run_id", runID)
	s.publishEvent("task.accepted", req.Task, map[string]any{"round": req.Round, "run_id": runID})
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
		"task":   req.Task,
		"round":  req.Round,
		"note":   fmt.Sprintf("Processing for round %d started in background.", req.Round),
	})
}

func missingFields(body intakeBody) []string {
	var missing []string
	if body.Email == nil {
		missing = append(missing, "email")
	}
	if body.Task == nil {
		missing = append(missing, "task")
	}
	if body.Round == nil {
		missing = append(missing, "round")
	}
	if body.Nonce == nil {
		missing = append(missing, "nonce")
	}
	if body.EvaluationURL == nil {
		missing = append(missing, "evaluation_url")
	}
	return missing
}

// rawToString normalizes the nonce, which callers send either as a JSON
// string or a bare number.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
