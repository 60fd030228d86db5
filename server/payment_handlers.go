package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/portal"
	"github.com/jrsteele09/synco-portal/share"
	"github.com/jrsteele09/synco-portal/storage"
)

// AttachmentResponse is what the payment page receives for a shared file
type AttachmentResponse struct {
	Share      share.ShareData `json:"share"`
	Shared     bool            `json:"shared"`
	Attachment *Attachment     `json:"attachment,omitempty"`
}

type Attachment struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// PaymentRequest is the JSON body of a payment submission
type PaymentRequest struct {
	FileID  string  `json:"fileId,omitempty"`
	Amount  float64 `json:"amount"`
	Concept string  `json:"concept,omitempty"`
	Notes   string  `json:"notes,omitempty"`
}

const maxPaymentRequestBytes = 64 << 10

// PaymentAttachmentHandler resolves the shared file the payment page was
// opened with. A share arriving before login is parked for the tab and
// handed back after the login callback.
func (s *Server) PaymentAttachmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tab := s.tabID(w, r)
		data, shared := share.ParseQuery(r.URL.Query())
		if !shared {
			if id, query, ok := s.intake.Restore(tab); ok {
				data, shared = share.ParseQuery(query)
				if data.FileID == "" {
					data.FileID = id
				}
			}
		}

		if !s.auth.Store().IsAuthenticated() {
			if shared && data.HasFile() {
				s.intake.Park(tab, data.FileID, data.Query())
			}
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":    "authentication_required",
				"loginUrl": s.auth.LoginURL(false),
			})
			return
		}

		resp := AttachmentResponse{Share: data, Shared: shared}
		if !data.HasFile() {
			writeJSON(w, http.StatusOK, resp)
			return
		}

		obj, err := s.intake.Load(r.Context(), data.FileID)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Attachment = &Attachment{
			Name:         obj.Name,
			Type:         obj.MIMEType,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// PaymentSubmitHandler registers a payment, attaching the shared file when
// one is referenced. The stored file is removed only after the backend
// accepted it.
func (s *Server) PaymentSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPaymentRequestBytes)).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: %v", errors.ErrInvalidRequest, err))
			return
		}

		payment, err := s.registerPayment(r.Context(), req)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("file_id", req.FileID).
				Int("upstream_status", errors.StatusCode(err)).
				Msg("payment registration failed")
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, payment)
	}
}

func (s *Server) registerPayment(ctx context.Context, req PaymentRequest) (*portal.Payment, error) {
	in := portal.PaymentInput{Amount: req.Amount, Concept: req.Concept, Notes: req.Notes}
	if req.FileID == "" {
		return s.portal.RegisterPayment(ctx, in, nil)
	}

	var payment *portal.Payment
	err := s.intake.Submit(ctx, req.FileID, func(ctx context.Context, file *storage.Object) error {
		p, err := s.portal.RegisterPayment(ctx, in, portal.ReceiptFromObject(file))
		payment = p
		return err
	})
	return payment, err
}
