package share

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Per-tab keys used while a share waits for authentication
const (
	keyPendingID    = "pending_share_id"
	keyPendingQuery = "pending_share_query"
)

// UploadFunc sends a shared file to the backend as part of a payment
type UploadFunc func(ctx context.Context, file *storage.Object) error

// Intake is the payment page's side of the relay: it reads shared files
// back, hands them to an upload, and parks a pending share while the user
// is still logging in.
type Intake struct {
	objects storage.ObjectStore
	tabs    storage.Ephemeral
	logger  zerolog.Logger
}

type IntakeOption func(*Intake)

func WithIntakeLogger(logger zerolog.Logger) IntakeOption {
	return func(i *Intake) {
		i.logger = logger
	}
}

func NewIntake(objects storage.ObjectStore, tabs storage.Ephemeral, options ...IntakeOption) *Intake {
	i := &Intake{
		objects: objects,
		tabs:    tabs,
		logger:  log.Logger,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// Load reads the shared file stored under id. Any storage failure,
// including an unknown id, is reported as ErrFileUnavailable.
func (i *Intake) Load(ctx context.Context, id string) (*storage.Object, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: no file id", errors.ErrFileUnavailable)
	}
	obj, err := i.objects.GetObject(ctx, id)
	if err != nil {
		i.logger.Warn().Err(err).Str("file_id", id).Msg("loading shared file")
		return nil, fmt.Errorf("%w: %v", errors.ErrFileUnavailable, err)
	}
	return obj, nil
}

// Submit loads the file, passes it to upload and deletes the stored copy
// once the upload succeeds. A failed upload keeps the file for a retry.
func (i *Intake) Submit(ctx context.Context, id string, upload UploadFunc) error {
	obj, err := i.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := upload(ctx, obj); err != nil {
		return errors.Wrapf(err, "uploading shared file %s", id)
	}
	if err := i.objects.DeleteObject(ctx, id); err != nil {
		i.logger.Warn().Err(err).Str("file_id", id).Msg("deleting consumed shared file")
	}
	return nil
}

// Park remembers a pending share for tabID until Restore is called
func (i *Intake) Park(tabID, id string, query url.Values) {
	i.tabs.Set(tabID, keyPendingID, id)
	i.tabs.Set(tabID, keyPendingQuery, query.Encode())
}

// Restore returns and forgets the share parked for tabID
func (i *Intake) Restore(tabID string) (id string, query url.Values, ok bool) {
	id, ok = i.tabs.Get(tabID, keyPendingID)
	if !ok {
		return "", nil, false
	}
	raw, _ := i.tabs.Get(tabID, keyPendingQuery)
	i.tabs.Delete(tabID, keyPendingID)
	i.tabs.Delete(tabID, keyPendingQuery)

	query, err := url.ParseQuery(raw)
	if err != nil {
		i.logger.Warn().Err(err).Str("tab", tabID).Msg("discarding unreadable parked query")
		query = url.Values{}
	}
	return id, query, true
}
