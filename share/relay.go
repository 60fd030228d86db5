package share

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/synco-portal/internal/metrics"
	"github.com/jrsteele09/synco-portal/messages"
	"github.com/jrsteele09/synco-portal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Multipart field names sent by the OS share action
const (
	FieldFile  = "file"
	FieldTitle = "title"
	FieldText  = "text"
	FieldURL   = "url"
)

const (
	defaultPaymentRoute   = "/payments/new"
	defaultMaxUploadBytes = 20 << 20
	multipartMemory       = 8 << 20
)

// Notifier is the message channel to live application instances
type Notifier interface {
	HasSubscribers() bool
	Publish(msg messages.Message) int
}

// Relay receives OS share actions. It stores the shared file under a new
// identifier and sends the browser to the payment route with the
// identifier and metadata in the query. Live instances are also told
// through the message channel.
type Relay struct {
	objects        storage.ObjectStore
	notifier       Notifier
	paymentRoute   string
	maxUploadBytes int64

	nowTime func() time.Time
	newID   func() string
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type RelayOption func(*Relay)

func WithNotifier(n Notifier) RelayOption {
	return func(r *Relay) {
		r.notifier = n
	}
}

// WithPaymentRoute sets the redirect target
func WithPaymentRoute(route string) RelayOption {
	return func(r *Relay) {
		r.paymentRoute = route
	}
}

func WithMaxUploadBytes(n int64) RelayOption {
	return func(r *Relay) {
		r.maxUploadBytes = n
	}
}

func WithNowTime(nowFunc func() time.Time) RelayOption {
	return func(r *Relay) {
		r.nowTime = nowFunc
	}
}

// WithIDFunc replaces uuid generation (primarily for testing)
func WithIDFunc(f func() string) RelayOption {
	return func(r *Relay) {
		r.newID = f
	}
}

func WithLogger(logger zerolog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

func NewRelay(objects storage.ObjectStore, options ...RelayOption) *Relay {
	r := &Relay{
		objects:        objects,
		paymentRoute:   defaultPaymentRoute,
		maxUploadBytes: defaultMaxUploadBytes,
		nowTime:        time.Now,
		newID:          uuid.NewString,
		logger:         log.Logger,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		r.logger.Warn().Err(err).Msg("share: unreadable multipart form")
		r.redirect(w, req, ShareData{}, ErrorShareFailed)
		return
	}
	defer req.MultipartForm.RemoveAll()

	data := ShareData{
		Title: req.FormValue(FieldTitle),
		Text:  req.FormValue(FieldText),
		URL:   req.FormValue(FieldURL),
	}

	file, header, err := req.FormFile(FieldFile)
	if errors.Is(err, http.ErrMissingFile) {
		r.logger.Debug().Msg("share: no file attached")
		r.redirect(w, req, data, "")
		return
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("share: reading file part")
		r.redirect(w, req, data, ErrorShareFailed)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		r.logger.Warn().Err(err).Msg("share: reading file")
		r.redirect(w, req, data, ErrorShareFailed)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(content)
	}

	data.FileID = r.newID()
	data.FileName = header.Filename
	data.FileType = mimeType
	data.FileSize = int64(len(content))

	obj := storage.Object{
		Data:         content,
		Name:         data.FileName,
		MIMEType:     data.FileType,
		Size:         data.FileSize,
		LastModified: r.nowTime(),
		Meta:         metadata(data),
	}
	if err := r.objects.PutObject(req.Context(), data.FileID, obj); err != nil {
		r.logger.Error().Err(err).Str("file_id", data.FileID).Msg("share: storing file")
		data.FileID, data.FileName, data.FileType, data.FileSize = "", "", "", 0
		r.redirect(w, req, data, ErrorShareFailed)
		return
	}
	r.metrics.IncrementSharedFile()
	r.logger.Info().Str("file_id", data.FileID).Str("type", data.FileType).Int64("size", data.FileSize).Msg("share: file stored")

	if r.notifier != nil && r.notifier.HasSubscribers() {
		r.notifier.Publish(messages.Message{Type: messages.TypeShareDataReceived, Data: data})
	}
	r.redirect(w, req, data, "")
}

func (r *Relay) redirect(w http.ResponseWriter, req *http.Request, data ShareData, errCode string) {
	q := data.Query()
	if errCode != "" {
		q.Set(ParamError, errCode)
	}
	http.Redirect(w, req, r.paymentRoute+"?"+q.Encode(), http.StatusSeeOther)
}

func metadata(d ShareData) map[string]string {
	meta := map[string]string{}
	if d.Title != "" {
		meta[FieldTitle] = d.Title
	}
	if d.Text != "" {
		meta[FieldText] = d.Text
	}
	if d.URL != "" {
		meta[FieldURL] = d.URL
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
