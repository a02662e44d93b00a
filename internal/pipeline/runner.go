package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"

	"appforge/internal/attachment"
	"appforge/internal/hosting"
	"appforge/internal/ledger"
)

type GenerateRequest struct {
	Brief       string
	Attachments []attachment.Saved
	Checks      []string
	Round       int
	PriorReadme string
}

type GenerateResult struct {
	Files       map[string]string
	Attachments []attachment.Saved
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

type Hosting interface {
	RepoHandle(task string) hosting.Repo
	CreateRepo(ctx context.Context, task, description string) (hosting.Repo, error)
	GetFile(ctx context.Context, repo hosting.Repo, path string) ([]byte, error)
	CommitText(ctx context.Context, repo hosting.Repo, path, content, message string) error
	CommitBinary(ctx context.Context, repo hosting.Repo, path string, data []byte, message string) error
	EnablePages(ctx context.Context, task string) (bool, error)
	LatestCommitSHA(ctx context.Context, repo hosting.Repo) (string, error)
	PagesURL(task string) string
	LicenseText() string
}

type Notifier interface {
	Notify(ctx context.Context, url string, rec ledger.Record) error
}

type Recorder interface {
	Put(rec ledger.Record) error
}

// Runner drives one admitted request through the round pipeline:
// generating, committing, publishing, notifying, recording. States run
// strictly in order and are never revisited; committing and publishing are
// best-effort and never roll anything back.
type Runner struct {
	Generator Generator
	Hosting   Hosting
	Notifier  Notifier
	Ledger    Recorder
	Logger    *slog.Logger
	WorkDir   string
}

const briefDescriptionLimit = 200

// Run executes one round for req and returns the completion record that was
// notified and written. An error is returned only when the round could not
// produce a record at all (generation or repository creation failed, or the
// final ledger write failed).
func (r *Runner) Run(ctx context.Context, req Request) (ledger.Record, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("task", req.Task, "round", req.Round)

	// Generating.
	workDir, err := os.MkdirTemp(r.WorkDir, "appforge_run_")
	if err != nil {
		return ledger.Record{}, fmt.Errorf("create work dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	saved, decodeErrs := attachment.DecodeAll(workDir, req.Attachments)
	for _, derr := range decodeErrs {
		log.Warn("attachment decode skipped", "err", derr)
	}

	priorReadme := r.fetchPriorReadme(ctx, req, log)

	gen, err := r.Generator.Generate(ctx, GenerateRequest{
		Brief:       req.Brief,
		Attachments: saved,
		Checks:      req.Checks,
		Round:       req.Round,
		PriorReadme: priorReadme.Value,
	})
	if err != nil {
		return ledger.Record{}, fmt.Errorf("generate: %w", err)
	}

	// Committing.
	var repo hosting.Repo
	if req.Round == 1 {
		description := req.Brief
		if len(description) > briefDescriptionLimit {
			description = description[:briefDescriptionLimit]
		}
		repo, err = r.Hosting.CreateRepo(ctx, req.Task, "Auto-generated app for task: "+description)
		if err != nil {
			return ledger.Record{}, fmt.Errorf("create repo: %w", err)
		}
		r.commitAttachments(ctx, repo, gen.Attachments, log)
		for name, content := range gen.Files {
			if err := r.Hosting.CommitText(ctx, repo, name, content, "Add "+name); err != nil {
				log.Error("file commit failed", "path", name, "err", err)
			}
		}
	} else {
		repo = r.Hosting.RepoHandle(req.Task)
		for name, content := range gen.Files {
			if err := r.Hosting.CommitText(ctx, repo, name, content, fmt.Sprintf("Update %s for round %d", name, req.Round)); err != nil {
				log.Error("file commit failed", "path", name, "err", err)
			}
		}
	}
	if err := r.Hosting.CommitText(ctx, repo, "LICENSE", r.Hosting.LicenseText(), "Add MIT license"); err != nil {
		log.Error("license commit failed", "err", err)
	}

	// Publishing.
	pagesURL := r.publish(ctx, req, log)

	// Notifying.
	commitSHA := r.latestCommit(ctx, repo, log)

	rec := ledger.Record{
		Email:   req.Email,
		Task:    req.Task,
		Round:   req.Round,
		Nonce:   req.Nonce,
		RepoURL: repo.HTMLURL,
	}
	if commitSHA.OK() {
		sha := commitSHA.Value
		rec.CommitSHA = &sha
	}
	if pagesURL.OK() {
		u := pagesURL.Value
		rec.PagesURL = &u
	}

	if err := r.Notifier.Notify(ctx, req.EvaluationURL, rec); err != nil {
		log.Error("evaluation notify failed", "url", req.EvaluationURL, "err", err)
	}

	// Recorded. Notify-first ordering: a crash before this write causes a
	// duplicate notification on replay, never a lost one.
	if err := r.Ledger.Put(rec); err != nil {
		return rec, fmt.Errorf("ledger write: %w", err)
	}
	log.Info("round finished", "repo_url", rec.RepoURL)
	return rec, nil
}

// fetchPriorReadme loads round-1 README content as generation context.
// Only round 2 has prior context; any fetch failure degrades to none.
func (r *Runner) fetchPriorReadme(ctx context.Context, req Request, log *slog.Logger) Outcome[string] {
	if req.Round != 2 {
		return Degraded[string]("first round has no prior context")
	}
	repo := r.Hosting.RepoHandle(req.Task)
	raw, err := r.Hosting.GetFile(ctx, repo, "README.md")
	if err != nil {
		log.Warn("prior readme unavailable, continuing without context", "err", err)
		return Degraded[string](err.Error())
	}
	return Ok(string(raw))
}

// commitAttachments pushes each decoded attachment. Text content goes in
// as-is; binary content is committed twice, raw at its own path and as a
// base64 text duplicate so text-only viewers can still retrieve it.
// Failures are isolated per attachment.
func (r *Runner) commitAttachments(ctx context.Context, repo hosting.Repo, atts []attachment.Saved, log *slog.Logger) {
	for _, att := range atts {
		data, err := os.ReadFile(att.Path)
		if err != nil {
			log.Error("attachment read failed", "path", att.Path, "err", err)
			continue
		}
		if att.IsText() {
			if err := r.Hosting.CommitText(ctx, repo, att.Name, string(data), "Add attachment "+att.Name); err != nil {
				log.Error("attachment commit failed", "path", att.Name, "err", err)
			}
			continue
		}
		if err := r.Hosting.CommitBinary(ctx, repo, att.Name, data, "Add binary "+att.Name); err != nil {
			log.Error("attachment commit failed", "path", att.Name, "err", err)
		}
		b64 := base64.StdEncoding.EncodeToString(data)
		backupPath := "attachments/" + att.Name + ".b64"
		if err := r.Hosting.CommitText(ctx, repo, backupPath, b64, "Backup "+att.Name+".b64"); err != nil {
			log.Error("attachment backup commit failed", "path", backupPath, "err", err)
		}
	}
}

// publish enables pages on round 1; round 2 assumes round 1 already enabled
// them and derives the URL unconditionally.
func (r *Runner) publish(ctx context.Context, req Request, log *slog.Logger) Outcome[string] {
	if req.Round != 1 {
		return Ok(r.Hosting.PagesURL(req.Task))
	}
	ok, err := r.Hosting.EnablePages(ctx, req.Task)
	if err != nil || !ok {
		reason := "pages enable refused"
		if err != nil {
			reason = err.Error()
		}
		log.Warn("pages enable failed", "err", reason)
		return Degraded[string](reason)
	}
	return Ok(r.Hosting.PagesURL(req.Task))
}

func (r *Runner) latestCommit(ctx context.Context, repo hosting.Repo, log *slog.Logger) Outcome[string] {
	sha, err := r.Hosting.LatestCommitSHA(ctx, repo)
	if err != nil {
		log.Warn("latest commit lookup failed", "err", err)
		return Degraded[string](err.Error())
	}
	return Ok(sha)
}
