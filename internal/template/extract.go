package template

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/customuploader/internal/client/models"
	"github.com/dmitrijs2005/customuploader/internal/common"
	"github.com/dmitrijs2005/customuploader/internal/netx"
)

// Extractor applies the response rules of a profile to an upload result.
type Extractor struct {
	parser *Parser
}

func NewExtractor(p *Parser) *Extractor {
	if p == nil {
		p = NewParser()
	}
	return &Extractor{parser: p}
}

// Extract fills result from info. On a 2xx response the URL, ThumbnailURL and
// DeletionURL rules are applied, with an empty URL rule meaning the trimmed
// body; otherwise only ErrorMessage is. Rule failures are appended to
// result.Errors and never stop the remaining rules.
func (e *Extractor) Extract(p *models.UploaderProfile, result *models.UploadResult, info *netx.ResponseInfo, in models.Input) {
	if info == nil {
		return
	}
	result.ResponseInfo = info
	result.Response = info.ResponseText

	c := &Context{Input: in, Response: info}

	if !info.IsSuccess() {
		result.ErrorMessage = e.apply(result, "ErrorMessage", p.ErrorMessage, c)
		return
	}

	if p.URL == "" {
		result.URL = strings.TrimSpace(info.ResponseText)
	} else {
		result.URL = e.apply(result, "URL", p.URL, c)
	}
	result.ThumbnailURL = e.apply(result, "ThumbnailURL", p.ThumbnailURL, c)
	result.DeletionURL = e.apply(result, "DeletionURL", p.DeletionURL, c)
}

func (e *Extractor) apply(result *models.UploadResult, field, tmpl string, c *Context) string {
	if tmpl == "" {
		return ""
	}
	v, err := e.parser.Evaluate(tmpl, c, nil)
	if err != nil {
		result.AddError(fmt.Errorf("%w: %s: %w", common.ErrExtractionFailure, field, err))
		return ""
	}
	return strings.TrimSpace(v)
}
