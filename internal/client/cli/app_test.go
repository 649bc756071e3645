package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/customuploader/internal/client/config"
	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/client/repositories/history"
	"github.com/dmitrijs2005/customuploader/internal/client/storage"
	"github.com/dmitrijs2005/customuploader/internal/common"
	"github.com/dmitrijs2005/customuploader/internal/netx"
)

type fakeUploader struct {
	profiles []string
	texts    []string
	paths    [][]string
	result   *models.UploadResult
	err      error
}

func (f *fakeUploader) Upload(_ context.Context, text, fileName string, p *models.UploaderProfile) (*models.UploadResult, error) {
	f.profiles = append(f.profiles, p.Name)
	f.texts = append(f.texts, fileName+"="+text)
	return f.result, f.err
}

func (f *fakeUploader) UploadFile(_ context.Context, path string, p *models.UploaderProfile) (*models.UploadResult, error) {
	f.profiles = append(f.profiles, p.Name)
	f.paths = append(f.paths, []string{path})
	return f.result, f.err
}

func (f *fakeUploader) UploadBatch(_ context.Context, paths []string, p *models.UploaderProfile, _ int) ([]*models.UploadResult, error) {
	f.profiles = append(f.profiles, p.Name)
	f.paths = append(f.paths, paths)
	out := make([]*models.UploadResult, len(paths))
	for i := range out {
		out[i] = f.result
	}
	return out, f.err
}

func testConfig() *config.Config {
	var c config.Config
	c.LoadDefaults()
	c.HistoryDSN = ""
	c.Uploaders = []models.UploaderProfile{
		{Name: "paste", RequestURL: "https://paste.example", Body: models.BodyJSON},
		{Name: "img", RequestURL: "https://img.example", Body: models.BodyMultipartFormData, Encrypt: true},
	}
	return &c
}

func ok(url string) *models.UploadResult {
	return &models.UploadResult{
		URL:          url,
		ResponseInfo: &netx.ResponseInfo{StatusCode: http.StatusOK, Status: "200 OK"},
	}
}

func newTestApp(up *fakeUploader, in string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{config: testConfig(), uploader: up, in: strings.NewReader(in), out: &out}, &out
}

func TestApp_UploadText(t *testing.T) {
	up := &fakeUploader{result: ok("https://paste.example/1")}
	a, out := newTestApp(up, "")

	require.NoError(t, a.UploadText(context.Background(), "hello", "note.txt"))
	assert.Equal(t, []string{"note.txt=hello"}, up.texts)
	assert.Equal(t, []string{"paste"}, up.profiles)
	assert.Equal(t, "note.txt: https://paste.example/1\n", out.String())
}

func TestApp_UploadTextFromInput(t *testing.T) {
	old := isTerminal
	isTerminal = func(io.Reader) bool { return false }
	t.Cleanup(func() { isTerminal = old })

	up := &fakeUploader{result: ok("u")}
	a, _ := newTestApp(up, "from stdin")

	require.NoError(t, a.UploadText(context.Background(), "", "text.txt"))
	assert.Equal(t, []string{"text.txt=from stdin"}, up.texts)

	empty, _ := newTestApp(up, "")
	require.Error(t, empty.UploadText(context.Background(), "", "text.txt"))
}

func TestApp_UploadTextFailure(t *testing.T) {
	up := &fakeUploader{result: &models.UploadResult{
		ResponseInfo: &netx.ResponseInfo{StatusCode: http.StatusRequestEntityTooLarge, Status: "413 Request Entity Too Large"},
		ErrorMessage: "too big",
	}}
	a, out := newTestApp(up, "")

	err := a.UploadText(context.Background(), "x", "a.txt")
	require.ErrorIs(t, err, errUploadFailed)
	assert.Contains(t, out.String(), "a.txt: failed")
	assert.Contains(t, out.String(), "413 Request Entity Too Large")
	assert.Contains(t, out.String(), "too big")
}

func TestApp_UploadTextFatal(t *testing.T) {
	up := &fakeUploader{err: common.ErrKeyNotReferenced}
	a, out := newTestApp(up, "")

	err := a.UploadText(context.Background(), "x", "a.txt")
	require.ErrorIs(t, err, common.ErrKeyNotReferenced)
	assert.Empty(t, out.String())
}

func TestApp_UploadFiles(t *testing.T) {
	res := ok("https://img.example/1")
	res.ThumbnailURL = "https://img.example/1/t"
	res.NonceAndKeyHex = "abcd"
	up := &fakeUploader{result: res}
	a, out := newTestApp(up, "")
	require.NoError(t, a.UseProfile(context.Background(), "img"))
	out.Reset()

	require.NoError(t, a.UploadFiles(context.Background(), []string{"a.png"}))
	assert.Contains(t, out.String(), "a.png: https://img.example/1")
	assert.Contains(t, out.String(), "Thumbnail: https://img.example/1/t")
	assert.Contains(t, out.String(), "Key:       abcd")

	require.NoError(t, a.UploadFiles(context.Background(), []string{"a.png", "b.png"}))
	assert.Equal(t, [][]string{{"a.png"}, {"a.png", "b.png"}}, up.paths)
	assert.Equal(t, []string{"img", "img"}, up.profiles)

	require.Error(t, a.UploadFiles(context.Background(), nil))
}

func TestApp_UploadFilesBatchFailures(t *testing.T) {
	up := &fakeUploader{result: &models.UploadResult{Errors: []error{errors.New("unreadable")}}}
	a, out := newTestApp(up, "")

	err := a.UploadFiles(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, errUploadFailed)
	assert.Contains(t, err.Error(), "2 of 2")
	assert.Equal(t, 2, strings.Count(out.String(), "failed"))
}

func TestApp_NoProfiles(t *testing.T) {
	a, _ := newTestApp(&fakeUploader{}, "")
	a.config.Uploaders = nil
	require.ErrorIs(t, a.UploadText(context.Background(), "x", "a"), common.ErrProfileNotFound)
	assert.Empty(t, a.currentProfile())
}

func TestApp_ListAndUseProfile(t *testing.T) {
	a, out := newTestApp(&fakeUploader{}, "")

	require.NoError(t, a.ListProfiles(context.Background()))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "*"), "first profile is active by default")
	assert.Contains(t, lines[2], "img")

	require.NoError(t, a.UseProfile(context.Background(), "1"))
	assert.Equal(t, "img", a.currentProfile())

	require.ErrorIs(t, a.UseProfile(context.Background(), "nope"), common.ErrProfileNotFound)
	assert.Equal(t, "img", a.currentProfile())
}

func setupHistory(t *testing.T) history.Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, storage.RunMigrations(context.Background(), db))
	return history.NewSQLiteRepository(db)
}

func TestApp_History(t *testing.T) {
	ctx := context.Background()
	repo := setupHistory(t)
	a, out := newTestApp(&fakeUploader{}, "")

	require.EqualError(t, a.History(ctx, 10), "history is disabled")

	a.history = repo
	require.NoError(t, a.History(ctx, 10))
	assert.Equal(t, "No uploads yet\n", out.String())

	now := time.Now()
	require.NoError(t, repo.Insert(ctx, &models.HistoryItem{ID: "11111111-aaaa", Uploader: "paste", FileName: "a.txt", URL: "https://x/1", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Insert(ctx, &models.HistoryItem{ID: "22222222-bbbb", Uploader: "img", FileName: "b.png", Failed: true, Error: "413", CreatedAt: now}))

	out.Reset()
	require.NoError(t, a.History(ctx, 10))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "22222222")
	assert.Contains(t, lines[1], "failed: 413")
	assert.Contains(t, lines[2], "1 hour ago")
	assert.Contains(t, lines[2], "https://x/1")

	require.NoError(t, a.DeleteHistory(ctx, "2222"))
	_, err := repo.GetByID(ctx, "22222222-bbbb")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, a.DeleteHistory(ctx, "11111111-aaaa"))
	require.Error(t, a.DeleteHistory(ctx, "3333"))
}

func TestApp_DeleteHistoryAmbiguous(t *testing.T) {
	ctx := context.Background()
	repo := setupHistory(t)
	a, _ := newTestApp(&fakeUploader{}, "")
	a.history = repo

	require.NoError(t, repo.Insert(ctx, &models.HistoryItem{ID: "abc-1", Uploader: "u", FileName: "f"}))
	require.NoError(t, repo.Insert(ctx, &models.HistoryItem{ID: "abc-2", Uploader: "u", FileName: "f"}))

	err := a.DeleteHistory(ctx, "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestNewApp(t *testing.T) {
	cfg := testConfig()
	cfg.HistoryDSN = t.TempDir() + "/nested/history.db"

	a, err := NewApp(context.Background(), cfg, nil, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	require.NotNil(t, a.history)
	require.NotNil(t, a.uploader)
	require.NoError(t, a.History(context.Background(), 1))
	require.NoError(t, a.Close())

	cfg.HistoryDSN = ""
	a, err = NewApp(context.Background(), cfg, nil, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Nil(t, a.history)
	require.NoError(t, a.Close())
}
