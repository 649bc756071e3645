package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/customuploader/internal/client/config"
	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/client/repositories/history"
	"github.com/dmitrijs2005/customuploader/internal/client/services"
	"github.com/dmitrijs2005/customuploader/internal/client/storage"
	"github.com/dmitrijs2005/customuploader/internal/logging"
	"github.com/dmitrijs2005/customuploader/internal/netx"
	"github.com/dmitrijs2005/customuploader/internal/template"
)

// errUploadFailed makes the process exit non-zero after the result of a
// failed upload has been printed.
var errUploadFailed = errors.New("upload failed")

// App ties configuration, the upload service and the history log together
// for one CLI invocation or one shell session.
type App struct {
	config   *config.Config
	uploader services.UploadService
	history  history.Repository
	logger   logging.Logger
	db       *sql.DB

	// profile is the uploader override of the session, see SelectProfile.
	profile string

	out io.Writer
	in  io.Reader
}

// NewApp builds the upload stack from cfg. History is opened only when
// cfg.HistoryDSN is set.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	a := &App{config: cfg, logger: logger, in: in, out: out}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithKeyCheck(cfg.RequireKeyInRequest),
		services.WithMaxFileSize(cfg.MaxFileSize),
	}

	if cfg.HistoryDSN != "" {
		db, err := storage.InitDatabase(ctx, cfg.HistoryDSN)
		if err != nil {
			return nil, fmt.Errorf("opening history: %w", err)
		}
		a.db = db
		a.history = history.NewSQLiteRepository(db)
		opts = append(opts, services.WithHistory(a.history))
	}

	parser := template.NewParser()
	a.uploader = services.NewUploadService(
		netx.NewTransport(nil, cfg.Timeout, cfg.UserAgent),
		template.NewResolver(parser),
		template.NewExtractor(parser),
		opts...,
	)

	return a, nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *App) currentProfile() string {
	p, err := a.config.SelectProfile(a.profile)
	if err != nil {
		return ""
	}
	return p.Name
}

// UploadText uploads text under fileName. Empty text is read from a.in.
func (a *App) UploadText(ctx context.Context, text, fileName string) error {
	p, err := a.config.SelectProfile(a.profile)
	if err != nil {
		return err
	}

	if text == "" {
		if text, err = ReadInput(a.in, a.out); err != nil {
			return err
		}
	}
	if text == "" {
		return errors.New("nothing to upload")
	}

	result, err := a.uploader.Upload(ctx, text, fileName, p)
	if err != nil {
		return err
	}

	printResult(a.out, fileName, result)
	if result.IsError() {
		return errUploadFailed
	}
	return nil
}

// UploadFiles uploads one file directly and several as a batch.
func (a *App) UploadFiles(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return errors.New("no files given")
	}

	p, err := a.config.SelectProfile(a.profile)
	if err != nil {
		return err
	}

	if len(paths) == 1 {
		result, err := a.uploader.UploadFile(ctx, paths[0], p)
		if err != nil {
			return err
		}
		printResult(a.out, paths[0], result)
		if result.IsError() {
			return errUploadFailed
		}
		return nil
	}

	results, err := a.uploader.UploadBatch(ctx, paths, p, a.config.Parallel)

	failed := 0
	for i, result := range results {
		if result == nil {
			continue
		}
		printResult(a.out, paths[i], result)
		if result.IsError() {
			failed++
		}
	}

	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errUploadFailed, failed, len(paths))
	}
	return nil
}

// ListProfiles prints the configured uploaders, marking the active one.
func (a *App) ListProfiles(_ context.Context) error {
	current := a.currentProfile()

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\t#\tNAME\tMETHOD\tBODY\tENCRYPT\tURL")
	for i := range a.config.Uploaders {
		p := &a.config.Uploaders[i]
		mark := ""
		if p.Name == current {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%t\t%s\n", mark, i, p.Name, p.Method(), p.Body, p.Encrypt, p.RequestURL)
	}
	return tw.Flush()
}

// UseProfile switches the uploader for the rest of the session.
func (a *App) UseProfile(_ context.Context, name string) error {
	p, err := a.config.SelectProfile(name)
	if err != nil {
		return err
	}
	a.profile = p.Name
	fmt.Fprintf(a.out, "Using uploader %q\n", p.Name)
	return nil
}

// History prints the newest limit entries of the upload log.
func (a *App) History(ctx context.Context, limit int) error {
	if a.history == nil {
		return errors.New("history is disabled")
	}

	items, err := a.history.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No uploads yet")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tUPLOADER\tFILE\tRESULT")
	for _, it := range items {
		outcome := it.URL
		if it.Failed {
			outcome = "failed: " + it.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", shortID(it.ID), humanize.Time(it.CreatedAt), it.Uploader, it.FileName, outcome)
	}
	return tw.Flush()
}

// DeleteHistory removes one entry. id may be the short form printed by
// History.
func (a *App) DeleteHistory(ctx context.Context, id string) error {
	if a.history == nil {
		return errors.New("history is disabled")
	}

	full, err := a.resolveHistoryID(ctx, id)
	if err != nil {
		return err
	}
	if err := a.history.DeleteByID(ctx, full); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s\n", shortID(full))
	return nil
}

func (a *App) resolveHistoryID(ctx context.Context, id string) (string, error) {
	if _, err := a.history.GetByID(ctx, id); err == nil {
		return id, nil
	}

	items, err := a.history.List(ctx, 0)
	if err != nil {
		return "", err
	}

	var match string
	for _, it := range items {
		if strings.HasPrefix(it.ID, id) {
			if match != "" {
				return "", fmt.Errorf("ambiguous id %q", id)
			}
			match = it.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("history entry %q not found", id)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// printResult shows whatever the upload produced. A failed result can still
// carry links and, once the server has answered, the only copy of the key.
func printResult(w io.Writer, name string, r *models.UploadResult) {
	failed := r.IsError()
	if failed {
		fmt.Fprintf(w, "%s: failed\n", name)
		if r.URL != "" {
			fmt.Fprintf(w, "  URL:       %s\n", r.URL)
		}
	} else {
		fmt.Fprintf(w, "%s: %s\n", name, r.URL)
	}

	if r.ThumbnailURL != "" {
		fmt.Fprintf(w, "  Thumbnail: %s\n", r.ThumbnailURL)
	}
	if r.DeletionURL != "" {
		fmt.Fprintf(w, "  Deletion:  %s\n", r.DeletionURL)
	}
	if r.NonceAndKeyHex != "" && r.ResponseInfo != nil {
		fmt.Fprintf(w, "  Key:       %s\n", r.NonceAndKeyHex)
	}

	if !failed {
		return
	}
	if r.ResponseInfo != nil {
		fmt.Fprintf(w, "  Status:    %s\n", r.ResponseInfo.Status)
	}
	if r.ErrorMessage != "" {
		fmt.Fprintf(w, "  Message:   %s\n", r.ErrorMessage)
	}
	if err := r.Err(); err != nil {
		fmt.Fprintf(w, "  Error:     %v\n", err)
	}
}
