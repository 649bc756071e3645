package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/client/repositories/history"
	"github.com/dmitrijs2005/customuploader/internal/common"
	"github.com/dmitrijs2005/customuploader/internal/cryptox"
	"github.com/dmitrijs2005/customuploader/internal/filex"
	"github.com/dmitrijs2005/customuploader/internal/logging"
	"github.com/dmitrijs2005/customuploader/internal/mimex"
	"github.com/dmitrijs2005/customuploader/internal/netx"
	"github.com/dmitrijs2005/customuploader/internal/shared"
	"github.com/dmitrijs2005/customuploader/internal/template"
)

// Transport sends exactly one HTTP request per call.
type Transport interface {
	SendRequest(ctx context.Context, method, url string, body []byte, contentType string, headers map[string]string) (*netx.ResponseInfo, error)
	SendMultipart(ctx context.Context, method, url string, fields map[string]string, file *netx.FilePart, headers map[string]string) (*netx.ResponseInfo, error)
	SendURLEncoded(ctx context.Context, method, url string, fields map[string]string, headers map[string]string) (*netx.ResponseInfo, error)
}

// RequestResolver expands the request templates of a profile. All fields of
// one request are resolved against the same Context, which records whether
// {key} was expanded.
type RequestResolver interface {
	ResolveURL(p *models.UploaderProfile, c *template.Context) (string, error)
	ResolveHeaders(p *models.UploaderProfile, c *template.Context) (map[string]string, error)
	ResolveArguments(p *models.UploaderProfile, c *template.Context) (map[string]string, error)
	ResolveBody(p *models.UploaderProfile, c *template.Context) (string, error)
	ResolveFileFormName(p *models.UploaderProfile, c *template.Context) (string, error)
}

// ResponseExtractor fills the derived fields of a result from the response.
type ResponseExtractor interface {
	Extract(p *models.UploaderProfile, result *models.UploadResult, info *netx.ResponseInfo, in models.Input)
}

// UploadService uploads text and files to user-defined endpoints.
//
// Configuration faults (unsupported body mode, unresolvable templates,
// unreferenced key) and crypto failures are returned as errors. Transport and
// extraction failures are recorded on the returned result instead.
type UploadService interface {
	Upload(ctx context.Context, text, fileName string, p *models.UploaderProfile) (*models.UploadResult, error)
	UploadFile(ctx context.Context, path string, p *models.UploaderProfile) (*models.UploadResult, error)
	UploadBatch(ctx context.Context, paths []string, p *models.UploaderProfile, parallel int) ([]*models.UploadResult, error)
}

type uploadService struct {
	transport   Transport
	resolver    RequestResolver
	extractor   ResponseExtractor
	history     history.Repository
	logger      logging.Logger
	mimeType    func(string) string
	requireKey  bool
	maxFileSize int64
}

// Option configures an UploadService.
type Option func(*uploadService)

// WithHistory records every upload in repo.
func WithHistory(repo history.Repository) Option {
	return func(s *uploadService) { s.history = repo }
}

func WithLogger(l logging.Logger) Option {
	return func(s *uploadService) { s.logger = l }
}

// WithKeyCheck controls whether encrypted uploads must expand {key} in a
// template that goes on the wire. Enabled by default.
func WithKeyCheck(enabled bool) Option {
	return func(s *uploadService) { s.requireKey = enabled }
}

// WithMaxFileSize limits UploadFile; zero means no limit.
func WithMaxFileSize(n int64) Option {
	return func(s *uploadService) { s.maxFileSize = n }
}

// WithMimeLookup replaces the file name to Content-Type mapping used for
// Binary and multipart file bodies.
func WithMimeLookup(fn func(string) string) Option {
	return func(s *uploadService) { s.mimeType = fn }
}

func NewUploadService(t Transport, r RequestResolver, e ResponseExtractor, opts ...Option) UploadService {
	s := &uploadService{
		transport:  t,
		resolver:   r,
		extractor:  e,
		logger:     logging.Nop(),
		mimeType:   mimex.TypeForFileName,
		requireKey: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *uploadService) Upload(ctx context.Context, text, fileName string, p *models.UploaderProfile) (*models.UploadResult, error) {
	result, item, err := s.upload(ctx, []byte(text), fileName, "", p)
	s.record(ctx, item)
	return result, err
}

func (s *uploadService) UploadFile(ctx context.Context, path string, p *models.UploaderProfile) (*models.UploadResult, error) {
	result, item, err := s.uploadFile(ctx, path, p)
	s.record(ctx, item)
	return result, err
}

// UploadBatch uploads paths with at most parallel requests in flight.
// Results keep the order of paths. The first fatal error or a cancelled ctx
// stops the uploads that have not started yet; their slots stay nil and the
// error is returned. History of the requests that were sent is still written.
// A file that cannot be read yields a result carrying the read error.
func (s *uploadService) UploadBatch(ctx context.Context, paths []string, p *models.UploaderProfile, parallel int) ([]*models.UploadResult, error) {
	if parallel < 1 {
		parallel = 1
	}

	results := make([]*models.UploadResult, len(paths))
	items := make([]*models.HistoryItem, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, item, err := s.uploadFile(gctx, path, p)
			results[i], items[i] = result, item
			switch {
			case err == nil:
				return nil
			case IsFatal(err):
				return fmt.Errorf("%s: %w", path, err)
			}
			// an unreadable source only fails its own slot
			results[i] = &models.UploadResult{Errors: []error{err}}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	done := make([]*models.HistoryItem, 0, len(items))
	for _, item := range items {
		if item != nil {
			done = append(done, item)
		}
	}
	if s.history != nil && len(done) > 0 {
		// ctx may be done by now, but what was uploaded still belongs in the log
		if herr := s.history.InsertAll(context.WithoutCancel(ctx), done); herr != nil {
			s.logger.Warn(ctx, "recording history failed", "error", herr, "items", len(done))
		}
	}

	return results, err
}

func (s *uploadService) uploadFile(ctx context.Context, path string, p *models.UploaderProfile) (*models.UploadResult, *models.HistoryItem, error) {
	data, err := filex.ReadFile(path, s.maxFileSize)
	if err != nil {
		return nil, nil, err
	}
	return s.upload(ctx, data, filepath.Base(path), path, p)
}

// upload takes ownership of payload and wipes it before returning. The
// history item is nil when no request was sent or ctx aborted it.
func (s *uploadService) upload(ctx context.Context, payload []byte, fileName, input string, p *models.UploaderProfile) (*models.UploadResult, *models.HistoryItem, error) {
	defer shared.WipeByteArray(payload)

	if p == nil {
		return nil, nil, fmt.Errorf("%w: no profile", common.ErrInvalidProfile)
	}

	start := time.Now()
	log := s.logger.With("uploader", p.Name, "mode", string(p.Body), "file", fileName)

	toSend := payload
	var keyHex string
	if p.Encrypt {
		enc, err := cryptox.Encrypt(payload)
		if err != nil {
			return nil, nil, err
		}
		toSend = enc.Ciphertext
		keyHex = enc.NonceAndKeyHex
		defer shared.WipeByteArray(toSend)
	}

	in := models.NewInput(fileName, input, keyHex)
	tc := &template.Context{Input: in}

	send, err := s.prepare(p, tc, toSend)
	if err != nil {
		return nil, nil, err
	}

	if p.Encrypt && s.requireKey && !tc.KeyReferenced() {
		return nil, nil, fmt.Errorf("%w: profile %q", common.ErrKeyNotReferenced, p.Name)
	}

	log.Debug(ctx, "sending upload", "method", p.Method(), "size", len(toSend), "encrypted", p.Encrypt)

	result := &models.UploadResult{NonceAndKeyHex: keyHex}

	info, err := send(ctx)
	if err != nil {
		result.AddError(err)
		if ctx.Err() != nil {
			log.Warn(ctx, "upload aborted", "error", err)
			return result, nil, nil
		}
	} else {
		s.extractor.Extract(p, result, info, in)
	}

	args := []any{"duration", time.Since(start), "size", len(toSend)}
	if info != nil {
		args = append(args, "status", info.StatusCode)
	}
	if result.IsError() {
		if rerr := result.Err(); rerr != nil {
			args = append(args, "error", rerr)
		}
		log.Warn(ctx, "upload failed", args...)
	} else {
		log.Info(ctx, "upload finished", append(args, "url", result.URL)...)
	}

	return result, models.NewHistoryItem(p.Name, fileName, p.Encrypt, keyHex, result), nil
}

// sendFunc is a fully resolved request bound to its transport call.
type sendFunc func(ctx context.Context) (*netx.ResponseInfo, error)

// prepare resolves the templates and binds the transport call for the body
// mode. Nothing is sent yet, so every error here precedes any network I/O.
func (s *uploadService) prepare(p *models.UploaderProfile, tc *template.Context, body []byte) (sendFunc, error) {
	method := p.Method()
	in := tc.Input

	url, err := s.resolver.ResolveURL(p, tc)
	if err != nil {
		return nil, err
	}
	headers, err := s.resolver.ResolveHeaders(p, tc)
	if err != nil {
		return nil, err
	}

	var send sendFunc

	switch p.Body {
	case models.BodyNone:
		send = func(ctx context.Context) (*netx.ResponseInfo, error) {
			return s.transport.SendRequest(ctx, method, url, nil, "", headers)
		}

	case models.BodyMultipartFormData:
		args, err := s.resolver.ResolveArguments(p, tc)
		if err != nil {
			return nil, err
		}
		formName, err := s.resolver.ResolveFileFormName(p, tc)
		if err != nil {
			return nil, err
		}

		var file *netx.FilePart
		if formName != "" {
			file = &netx.FilePart{
				FieldName:   formName,
				FileName:    in.FileName,
				ContentType: s.mimeType(in.FileName),
				Data:        body,
			}
		}
		send = func(ctx context.Context) (*netx.ResponseInfo, error) {
			return s.transport.SendMultipart(ctx, method, url, args, file, headers)
		}

	case models.BodyFormURLEncoded:
		args, err := s.resolver.ResolveArguments(p, tc)
		if err != nil {
			return nil, err
		}
		send = func(ctx context.Context) (*netx.ResponseInfo, error) {
			return s.transport.SendURLEncoded(ctx, method, url, args, headers)
		}

	case models.BodyJSON, models.BodyXML:
		data, err := s.resolver.ResolveBody(p, tc)
		if err != nil {
			return nil, err
		}
		contentType := p.Body.ContentType()
		send = func(ctx context.Context) (*netx.ResponseInfo, error) {
			return s.transport.SendRequest(ctx, method, url, []byte(data), contentType, headers)
		}

	case models.BodyBinary:
		contentType := s.mimeType(in.FileName)
		send = func(ctx context.Context) (*netx.ResponseInfo, error) {
			return s.transport.SendRequest(ctx, method, url, body, contentType, headers)
		}

	default:
		return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedBodyFormat, p.Body)
	}

	return send, nil
}

func (s *uploadService) record(ctx context.Context, item *models.HistoryItem) {
	if s.history == nil || item == nil {
		return
	}
	if err := s.history.Insert(context.WithoutCancel(ctx), item); err != nil {
		s.logger.Warn(ctx, "recording history failed", "error", err, "uploader", item.Uploader)
	}
}

// IsFatal reports whether err came from configuration or crypto rather than
// from the network.
func IsFatal(err error) bool {
	return errors.Is(err, common.ErrUnsupportedBodyFormat) ||
		errors.Is(err, common.ErrInvalidProfile) ||
		errors.Is(err, common.ErrKeyNotReferenced) ||
		errors.Is(err, common.ErrCryptoFailure)
}
