package portal_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/synco-portal/backend"
	"github.com/jrsteele09/synco-portal/gateway"
	"github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/portal"
	"github.com/jrsteele09/synco-portal/storage"
	"github.com/jrsteele09/synco-portal/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuth struct{}

func (staticAuth) GetAuthToken(context.Context) (string, error)       { return "acc", nil }
func (staticAuth) RefreshAccessToken(context.Context) (string, error) { return "acc", nil }
func (staticAuth) Logout(context.Context) error                       { return nil }

func newPortal(t *testing.T, mux *http.ServeMux) *portal.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := backend.New(srv.URL)
	require.NoError(t, err)
	g, err := gateway.New(client, staticAuth{})
	require.NoError(t, err)
	return portal.New(g)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestEventsAndDebts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"id": "e1", "title": "Entreno", "date": "2025-03-04T19:00:00Z"}})
	})
	mux.HandleFunc("GET /debts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"concept": "Cuota marzo", "amount": 25.5}})
	})
	p := newPortal(t, mux)
	ctx := context.Background()

	events, err := p.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Entreno", events[0].Title)
	assert.Equal(t, 19, events[0].Date.Hour())

	debts, err := p.Debts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25.5, debts[0].Amount)
}

func TestCreateEvent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /events", func(w http.ResponseWriter, r *http.Request) {
		var in portal.EventInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		writeJSON(w, portal.Event{ID: "e2", Title: in.Title})
	})
	p := newPortal(t, mux)

	_, err := p.CreateEvent(context.Background(), portal.EventInput{})
	require.ErrorIs(t, err, errors.ErrInvalidRequest)

	event, err := p.CreateEvent(context.Background(), portal.EventInput{Title: "Partido"})
	require.NoError(t, err)
	assert.Equal(t, "e2", event.ID)
}

func TestRegisterPaymentUploadsReceipt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /payments", func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "25.5", r.FormValue("amount"))
		assert.Equal(t, "Cuota marzo", r.FormValue("concept"))

		file, header, err := r.FormFile(portal.ReceiptField)
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "receipt.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, "png-bytes", string(data))

		w.WriteHeader(http.StatusCreated)
		writeJSON(w, portal.Payment{ID: "p1", Amount: 25.5, Status: portal.PaymentPending})
	})
	p := newPortal(t, mux)

	receipt := portal.ReceiptFromObject(&storage.Object{Name: "receipt.png", MIMEType: "image/png", Data: []byte("png-bytes")})
	payment, err := p.RegisterPayment(context.Background(), portal.PaymentInput{Amount: 25.5, Concept: "Cuota marzo"}, receipt)
	require.NoError(t, err)
	assert.Equal(t, "p1", payment.ID)
	assert.Equal(t, portal.PaymentPending, payment.Status)
}

func TestRegisterPaymentValidation(t *testing.T) {
	p := newPortal(t, http.NewServeMux())
	_, err := p.RegisterPayment(context.Background(), portal.PaymentInput{Amount: 0}, nil)
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestVerifyPaymentForbidden(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /payments/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "p1", r.PathValue("id"))
		w.WriteHeader(http.StatusForbidden)
	})
	p := newPortal(t, mux)

	_, err := p.VerifyPayment(context.Background(), "p1", portal.Verification{Approved: true})
	require.ErrorIs(t, err, errors.ErrForbidden)
}

func TestUsersAndRoles(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"id": "u1", "email": "ana@example.com", "role": "admin"}})
	})
	mux.HandleFunc("PATCH /users/{id}/roles", func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Roles []string `json:"roles"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		writeJSON(w, map[string]any{"id": r.PathValue("id"), "roles": in.Roles})
	})
	p := newPortal(t, mux)
	ctx := context.Background()

	list, err := p.Users(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsAdmin())

	updated, err := p.UpdateUserRoles(ctx, "u1", []users.RoleType{users.RoleTreasurer})
	require.NoError(t, err)
	assert.True(t, updated.CanVerifyPayments())

	_, err = p.UpdateUserRoles(ctx, "", nil)
	require.ErrorIs(t, err, errors.ErrInvalidRequest)
}
