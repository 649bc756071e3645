package models

import (
	"errors"

	"github.com/dmitrijs2005/customuploader/internal/netx"
)

// UploadResult is what an upload produced. Transport and extraction problems
// land in Errors rather than failing the call, so a partial result (status,
// raw response) is still available to the caller.
type UploadResult struct {
	Response     string
	ResponseInfo *netx.ResponseInfo

	URL          string
	ThumbnailURL string
	DeletionURL  string
	ErrorMessage string

	// NonceAndKeyHex is set for encrypted uploads. It is the only copy of the
	// key the caller ever gets.
	NonceAndKeyHex string

	Errors []error
}

// IsError reports whether the upload failed at any stage.
func (r *UploadResult) IsError() bool {
	if len(r.Errors) > 0 {
		return true
	}
	return r.ResponseInfo != nil && !r.ResponseInfo.IsSuccess()
}

// Err joins the recorded errors, nil when there are none.
func (r *UploadResult) Err() error {
	return errors.Join(r.Errors...)
}

// AddError records err, ignoring nil.
func (r *UploadResult) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}
