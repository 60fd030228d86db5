package share

import (
	"net/url"
	"strconv"
)

// Query parameters carried on the redirect to the payment route
const (
	ParamFileID   = "fileId"
	ParamFileName = "fileName"
	ParamFileType = "fileType"
	ParamFileSize = "fileSize"
	ParamShared   = "shared"
	ParamTitle    = "title"
	ParamText     = "text"
	ParamURL      = "url"
	ParamError    = "error"

	ErrorShareFailed = "share_failed"
)

// ShareData describes a shared file waiting to be attached to a payment.
// It travels as query parameters and as the SHARE_DATA_RECEIVED payload.
type ShareData struct {
	FileID   string `json:"fileId,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileType string `json:"fileType,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
}

// HasFile reports whether a stored file is referenced
func (d ShareData) HasFile() bool {
	return d.FileID != ""
}

// Query encodes d as redirect parameters, always including shared=1
func (d ShareData) Query() url.Values {
	q := url.Values{ParamShared: []string{"1"}}
	set := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	set(ParamFileID, d.FileID)
	set(ParamFileName, d.FileName)
	set(ParamFileType, d.FileType)
	if d.FileID != "" {
		q.Set(ParamFileSize, strconv.FormatInt(d.FileSize, 10))
	}
	set(ParamTitle, d.Title)
	set(ParamText, d.Text)
	set(ParamURL, d.URL)
	return q
}

// ParseQuery reads ShareData back from redirect parameters. ok is false
// when q does not come from the share target.
func ParseQuery(q url.Values) (data ShareData, ok bool) {
	if q.Get(ParamShared) != "1" {
		return ShareData{}, false
	}
	size, _ := strconv.ParseInt(q.Get(ParamFileSize), 10, 64)
	return ShareData{
		FileID:   q.Get(ParamFileID),
		FileName: q.Get(ParamFileName),
		FileType: q.Get(ParamFileType),
		FileSize: size,
		Title:    q.Get(ParamTitle),
		Text:     q.Get(ParamText),
		URL:      q.Get(ParamURL),
	}, true
}
