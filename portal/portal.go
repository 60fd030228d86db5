package portal

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/jrsteele09/synco-portal/gateway"
	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/users"
)

// Portal API paths
const (
	RouteEvents        = "/events"
	RoutePayments      = "/payments"
	RouteVerifyPayment = "/payments/%s/verify"
	RouteDebts         = "/debts"
	RouteUsers         = "/users"
	RouteUserRoles     = "/users/%s/roles"
)

// ReceiptField is the multipart field carrying the payment receipt
const ReceiptField = "receipt"

const (
	defaultReceiptMIME = "application/octet-stream"
	defaultReceiptName = "receipt"
)

// Caller is the part of gateway.Gateway the portal client uses
type Caller interface {
	Call(ctx context.Context, endpoint string, opts gateway.Options) (*gateway.Response, error)
	GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error
	PostJSON(ctx context.Context, endpoint string, in, out any) error
	PatchJSON(ctx context.Context, endpoint string, in, out any) error
}

// Client is a typed wrapper over the portal REST API. Every call goes
// through the authenticated gateway; no business rule is applied here.
type Client struct {
	api Caller
}

func New(api Caller) *Client {
	return &Client{api: api}
}

func (c *Client) Events(ctx context.Context) ([]Event, error) {
	var events []Event
	if err := c.api.GetJSON(ctx, RouteEvents, nil, &events); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

func (c *Client) CreateEvent(ctx context.Context, in EventInput) (*Event, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: event title is required", errors.ErrInvalidRequest)
	}
	var event Event
	if err := c.api.PostJSON(ctx, RouteEvents, in, &event); err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	return &event, nil
}

// Payments lists the payments visible to the current user
func (c *Client) Payments(ctx context.Context) ([]Payment, error) {
	var payments []Payment
	if err := c.api.GetJSON(ctx, RoutePayments, nil, &payments); err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	return payments, nil
}

// RegisterPayment posts the payment form with the receipt as a multipart
// upload. receipt may be nil.
func (c *Client) RegisterPayment(ctx context.Context, in PaymentInput, receipt *Receipt) (*Payment, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", errors.ErrInvalidRequest)
	}

	body, contentType, err := paymentForm(in, receipt)
	if err != nil {
		return nil, fmt.Errorf("building payment form: %w", err)
	}

	resp, err := c.api.Call(ctx, RoutePayments, gateway.Options{
		Method:      http.MethodPost,
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("registering payment: %w", err)
	}

	var payment Payment
	if err := resp.DecodeJSON(&payment); err != nil {
		return nil, fmt.Errorf("registering payment: %w", err)
	}
	return &payment, nil
}

// VerifyPayment approves or rejects a payment. The backend decides whether
// the caller may do so.
func (c *Client) VerifyPayment(ctx context.Context, id string, v Verification) (*Payment, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: payment id is required", errors.ErrInvalidRequest)
	}
	var payment Payment
	if err := c.api.PatchJSON(ctx, fmt.Sprintf(RouteVerifyPayment, url.PathEscape(id)), v, &payment); err != nil {
		return nil, fmt.Errorf("verifying payment %s: %w", id, err)
	}
	return &payment, nil
}

func (c *Client) Debts(ctx context.Context) ([]Debt, error) {
	var debts []Debt
	if err := c.api.GetJSON(ctx, RouteDebts, nil, &debts); err != nil {
		return nil, fmt.Errorf("listing debts: %w", err)
	}
	return debts, nil
}

func (c *Client) Users(ctx context.Context) ([]users.User, error) {
	var list []users.User
	if err := c.api.GetJSON(ctx, RouteUsers, nil, &list); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return list, nil
}

func (c *Client) UpdateUserRoles(ctx context.Context, id string, roles []users.RoleType) (*users.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user id is required", errors.ErrInvalidRequest)
	}
	in := struct {
		Roles []users.RoleType `json:"roles"`
	}{Roles: roles}

	var user users.User
	if err := c.api.PatchJSON(ctx, fmt.Sprintf(RouteUserRoles, url.PathEscape(id)), in, &user); err != nil {
		return nil, fmt.Errorf("updating roles for %s: %w", id, err)
	}
	return &user, nil
}

func paymentForm(in PaymentInput, receipt *Receipt) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"amount", strconv.FormatFloat(in.Amount, 'f', -1, 64)},
		{"concept", in.Concept},
		{"notes", in.Notes},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if receipt != nil {
		name := receipt.Name
		if name == "" {
			name = defaultReceiptName
		}
		mimeType := receipt.MIMEType
		if mimeType == "" {
			mimeType = defaultReceiptMIME
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, ReceiptField, name))
		h.Set("Content-Type", mimeType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(receipt.Data); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
