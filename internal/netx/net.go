// Package netx sends upload requests over HTTP and captures the response in
// a form the extraction rules can work with.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/customuploader/internal/common"
	"github.com/dmitrijs2005/customuploader/internal/shared"
)

// maxResponseSize caps how much of a response body is kept in memory.
const maxResponseSize = 16 << 20

// ResponseInfo is the part of an HTTP response visible to extraction rules.
type ResponseInfo struct {
	StatusCode   int
	Status       string
	ResponseURL  string
	Headers      http.Header
	ResponseText string
}

// IsSuccess reports a 2xx status.
func (r *ResponseInfo) IsSuccess() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// FilePart is the file section of a multipart request.
type FilePart struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
}

// Transport issues exactly one HTTP request per Send call. Non-2xx statuses
// are not errors; only failures to get a response at all are.
type Transport struct {
	client    *http.Client
	userAgent string
}

// NewTransport wraps client. A nil client gets a fresh one with timeout.
func NewTransport(client *http.Client, timeout time.Duration, userAgent string) *Transport {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if userAgent == "" {
		userAgent = common.DefaultUserAgent
	}
	return &Transport{client: client, userAgent: userAgent}
}

// SendRequest sends body as is. A nil body sends no body at all. contentType
// is applied unless headers already carry a Content-Type.
func (t *Transport) SendRequest(ctx context.Context, method, rawURL string, body []byte, contentType string, headers map[string]string) (*ResponseInfo, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := t.newRequest(ctx, method, rawURL, r, headers)
	if err != nil {
		return nil, err
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	return t.do(req)
}

// SendMultipart sends fields, in key order, followed by file when it is not
// nil. The encoded body is wiped once the request completes.
func (t *Transport) SendMultipart(ctx context.Context, method, rawURL string, fields map[string]string, file *FilePart, headers map[string]string) (*ResponseInfo, error) {
	var buf bytes.Buffer
	defer func() { shared.WipeByteArray(buf.Bytes()) }()

	w := multipart.NewWriter(&buf)

	for _, k := range sortedKeys(fields) {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("writing field %q: %w", k, err)
		}
	}

	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(file.FieldName), escapeQuotes(file.FileName)))
		ct := file.ContentType
		if ct == "" {
			ct = common.DefaultContentType
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("creating file part: %w", err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, fmt.Errorf("writing file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := t.newRequest(ctx, method, rawURL, bytes.NewReader(buf.Bytes()), headers)
	if err != nil {
		return nil, err
	}
	// the boundary must match the body, so this one is never overridable
	req.Header.Set("Content-Type", w.FormDataContentType())

	return t.do(req)
}

// SendURLEncoded sends fields as application/x-www-form-urlencoded.
func (t *Transport) SendURLEncoded(ctx context.Context, method, rawURL string, fields map[string]string, headers map[string]string) (*ResponseInfo, error) {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}

	req, err := t.newRequest(ctx, method, rawURL, strings.NewReader(values.Encode()), headers)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return t.do(req)
}

func (t *Transport) newRequest(ctx context.Context, method, rawURL string, body io.Reader, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", common.ErrTransportFailure, err)
	}

	req.Header.Set("User-Agent", t.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func (t *Transport) do(req *http.Request) (*ResponseInfo, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", common.ErrTransportFailure, req.Method, req.URL.Redacted(), err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", common.ErrTransportFailure, err)
	}

	info := &ResponseInfo{
		StatusCode:   resp.StatusCode,
		Status:       resp.Status,
		ResponseURL:  req.URL.String(),
		Headers:      resp.Header,
		ResponseText: string(b),
	}
	// after redirects resp.Request is the last request made
	if resp.Request != nil && resp.Request.URL != nil {
		info.ResponseURL = resp.Request.URL.String()
	}

	return info, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
