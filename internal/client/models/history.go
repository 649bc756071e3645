package models

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/customuploader/internal/logging"
)

// HistoryItem is one upload attempt as recorded locally. It never carries
// key material: the key of an encrypted upload lives only in the request
// that was sent and in the result handed back to the caller.
type HistoryItem struct {
	// ID is a random UUID assigned on insert.
	ID string

	// Uploader is the profile name used for the upload.
	Uploader string

	// FileName is the name reported to the endpoint.
	FileName string

	// Extracted links, empty when the rule produced nothing.
	URL          string
	ThumbnailURL string
	DeletionURL  string

	// Encrypted marks uploads whose payload was ciphertext.
	Encrypted bool

	// Failed marks uploads where the result carried errors or a non-2xx status.
	Failed bool
	// Error is the joined error text of a failed upload.
	Error string

	// CreatedAt is the upload time in UTC.
	CreatedAt time.Time
}

// NewHistoryItem summarizes result for the history log. Every occurrence of
// keyHex, and any other run of nonce and key hex, is replaced in the stored
// strings.
func NewHistoryItem(uploader, fileName string, encrypted bool, keyHex string, result *UploadResult) *HistoryItem {
	item := &HistoryItem{
		Uploader:  uploader,
		FileName:  fileName,
		Encrypted: encrypted,
		CreatedAt: time.Now().UTC(),
	}
	if result == nil {
		return item
	}

	redact := func(s string) string {
		if keyHex != "" {
			s = strings.ReplaceAll(s, keyHex, logging.Redacted)
		}
		return logging.Scrub(s)
	}

	item.URL = redact(result.URL)
	item.ThumbnailURL = redact(result.ThumbnailURL)
	item.DeletionURL = redact(result.DeletionURL)
	item.Failed = result.IsError()

	if err := result.Err(); err != nil {
		item.Error = redact(err.Error())
	} else if item.Failed {
		item.Error = redact(result.ErrorMessage)
		if item.Error == "" && result.ResponseInfo != nil {
			item.Error = result.ResponseInfo.Status
		}
	}

	return item
}
