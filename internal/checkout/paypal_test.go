package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sondaumoi/storechain-backend/pkg/config"
	pkgerrors "github.com/sondaumoi/storechain-backend/pkg/errors"
)

func newPayPalTestClient(t *testing.T, handler http.HandlerFunc) *PayPalClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewPayPalClient(config.PayPalConfig{
		BaseURL:      srv.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Timeout:      2 * time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestCaptureParsesAmountToCents(t *testing.T) {
	t.Parallel()

	client := newPayPalTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/checkout/orders/PP-ORDER-1/capture", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "client-id", user)
		require.Equal(t, "client-secret", pass)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"id": "PP-ORDER-1",
			"status": "COMPLETED",
			"purchase_units": [{
				"payments": {
					"captures": [{
						"status": "COMPLETED",
						"amount": {"currency_code": "USD", "value": "149.99"}
					}]
				}
			}]
		}`))
	})

	cents, err := client.Capture(context.Background(), "PP-ORDER-1")
	require.NoError(t, err)
	require.Equal(t, 14999, cents)
}

func TestCaptureNotCompleted(t *testing.T) {
	t.Parallel()

	client := newPayPalTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "PP-ORDER-2", "status": "PENDING", "purchase_units": []}`))
	})

	_, err := client.Capture(context.Background(), "PP-ORDER-2")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestCaptureRejectedStatusCode(t *testing.T) {
	t.Parallel()

	client := newPayPalTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	_, err := client.Capture(context.Background(), "PP-ORDER-3")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency))
}

func TestCaptureRequiresOrderID(t *testing.T) {
	t.Parallel()

	client := newPayPalTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("paypal must not be contacted")
	})

	_, err := client.Capture(context.Background(), " ")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
