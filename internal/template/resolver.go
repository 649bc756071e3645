package template

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/common"
)

// Resolver expands the request side of a profile. Every call evaluates the
// templates afresh, so {random}, {guid} and {unixtime} differ per upload.
// Callers pass one Context for all fields of a request and read
// Context.KeyReferenced afterwards.
type Resolver struct {
	parser *Parser
}

func NewResolver(p *Parser) *Resolver {
	if p == nil {
		p = NewParser()
	}
	return &Resolver{parser: p}
}

func (r *Resolver) eval(field, tmpl string, c *Context, esc Escaper) (string, error) {
	v, err := r.parser.Evaluate(tmpl, c, esc)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", common.ErrInvalidProfile, field, err)
	}
	return v, nil
}

// ResolveURL expands RequestURL and appends Parameters as query values.
func (r *Resolver) ResolveURL(p *models.UploaderProfile, c *Context) (string, error) {
	raw, err := r.eval("RequestURL", p.RequestURL, c, nil)
	if err != nil {
		return "", err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty request URL", common.ErrInvalidProfile)
	}
	if len(p.Parameters) == 0 {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: RequestURL: %w", common.ErrInvalidProfile, err)
	}

	params, err := r.resolveMap("Parameters", p.Parameters, c)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (r *Resolver) ResolveHeaders(p *models.UploaderProfile, c *Context) (map[string]string, error) {
	return r.resolveMap("Headers", p.Headers, c)
}

func (r *Resolver) ResolveArguments(p *models.UploaderProfile, c *Context) (map[string]string, error) {
	return r.resolveMap("Arguments", p.Arguments, c)
}

// ResolveBody expands Data. For JSON and XML bodies placeholder output is
// escaped so that inserted values cannot break the document structure.
func (r *Resolver) ResolveBody(p *models.UploaderProfile, c *Context) (string, error) {
	var esc Escaper
	switch p.Body {
	case models.BodyJSON:
		esc = escapeJSON
	case models.BodyXML:
		esc = escapeXML
	}
	return r.eval("Data", p.Data, c, esc)
}

func (r *Resolver) ResolveFileFormName(p *models.UploaderProfile, c *Context) (string, error) {
	return r.eval("FileFormName", p.FileFormName, c, nil)
}

func (r *Resolver) resolveMap(field string, m map[string]string, c *Context) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, tmpl := range m {
		v, err := r.eval(field+"."+k, tmpl, c, nil)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func escapeJSON(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return s
	}
	// drop the surrounding quotes and the trailing newline
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return string(out[1 : len(out)-1])
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}
