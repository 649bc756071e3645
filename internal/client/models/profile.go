// Package models defines the uploader profile, request input and upload
// result types shared by the client packages.
package models

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/customuploader/internal/common"
)

// BodyMode selects how the request body is encoded. The set is closed:
// ParseBodyMode rejects anything that is not listed below.
type BodyMode string

const (
	BodyNone              BodyMode = "None"
	BodyMultipartFormData BodyMode = "MultipartFormData"
	BodyFormURLEncoded    BodyMode = "FormURLEncoded"
	BodyJSON              BodyMode = "JSON"
	BodyXML               BodyMode = "XML"
	BodyBinary            BodyMode = "Binary"
)

// BodyModes lists every supported body mode in display order.
var BodyModes = []BodyMode{
	BodyNone, BodyMultipartFormData, BodyFormURLEncoded, BodyJSON, BodyXML, BodyBinary,
}

// ParseBodyMode matches s case-insensitively against the supported modes.
// An empty string means BodyMultipartFormData, the usual default for upload
// endpoints.
func ParseBodyMode(s string) (BodyMode, error) {
	if strings.TrimSpace(s) == "" {
		return BodyMultipartFormData, nil
	}
	for _, m := range BodyModes {
		if strings.EqualFold(string(m), s) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", common.ErrUnsupportedBodyFormat, s)
}

func (m *BodyMode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseBodyMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ContentType returns the Content-Type for structured text bodies.
func (m BodyMode) ContentType() string {
	switch m {
	case BodyJSON:
		return "application/json"
	case BodyXML:
		return "application/xml"
	}
	return ""
}

// UploaderProfile is a user-defined upload destination. JSON names follow the
// ShareX custom uploader (.sxcu) layout.
//
// All string fields except Name, RequestMethod and Body may contain
// placeholders, see package template.
type UploaderProfile struct {
	Name          string            `json:"Name" validate:"required"`
	RequestMethod string            `json:"RequestMethod" validate:"omitempty,oneof=GET POST PUT PATCH DELETE"`
	RequestURL    string            `json:"RequestURL" validate:"required"`
	Parameters    map[string]string `json:"Parameters,omitempty"`
	Headers       map[string]string `json:"Headers,omitempty"`
	Body          BodyMode          `json:"Body"`
	Arguments     map[string]string `json:"Arguments,omitempty"`
	FileFormName  string            `json:"FileFormName,omitempty"`
	Data          string            `json:"Data,omitempty"`
	Encrypt       bool              `json:"Encrypt,omitempty"`

	// Extraction rules applied to the response.
	URL          string `json:"URL,omitempty"`
	ThumbnailURL string `json:"ThumbnailURL,omitempty"`
	DeletionURL  string `json:"DeletionURL,omitempty"`
	ErrorMessage string `json:"ErrorMessage,omitempty"`
}

// Method returns the upper-cased request method, POST when unset.
func (p *UploaderProfile) Method() string {
	if p.RequestMethod == "" {
		return http.MethodPost
	}
	return strings.ToUpper(p.RequestMethod)
}

// Normalize fills defaults in place: method case and body mode.
func (p *UploaderProfile) Normalize() {
	p.RequestMethod = p.Method()
	if p.Body == "" {
		p.Body = BodyMultipartFormData
	}
}
