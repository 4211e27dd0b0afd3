package fbr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digiinvoice/invoicing-backend/internal/model"
)

func sampleInvoice() *model.Invoice {
	return &model.Invoice{
		InvoiceNumber:      "INV-001",
		InvoiceType:        "Sale Invoice",
		InvoiceDate:        "2026-08-01",
		SellerNTNCNIC:      "1234567890123",
		SellerBusinessName: "Acme Traders",
		SellerProvince:     "Punjab",
		BuyerBusinessName:  "Retail Mart",
		Items: []model.InvoiceItem{
			{
				HSCode:      "0101.2100",
				Rate:        "18%",
				UOM:         "PCS",
				Quantity:    model.NumericFromFloat(10),
				TotalValues: model.NumericFromFloat(1180),
			},
		},
	}
}

func TestClient_PostInvoice_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"invoiceNumber": "7000887841177SI...0001",
			"dated":         "2026-08-01 10:00:00",
		})
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.URL, srv.Client())
	result, err := client.PostInvoice(context.Background(), "sb-token", Sandbox, sampleInvoice())
	require.NoError(t, err)

	assert.Equal(t, "/di_data/v1/di/postinvoicedata_sb", gotPath)
	assert.Equal(t, "Bearer sb-token", gotAuth)
	assert.Equal(t, "7000887841177SI...0001", result.InvoiceNumber)
	assert.Equal(t, "Sale Invoice", gotBody["invoiceType"])

	items, ok := gotBody["items"].([]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "0101.2100", item["hsCode"])
}

func TestClient_PostInvoice_ProductionPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]interface{}{"invoiceNumber": "N-1"})
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.URL, srv.Client())
	_, err := client.PostInvoice(context.Background(), "prod-token", Production, sampleInvoice())
	require.NoError(t, err)
	assert.Equal(t, "/di_data/v1/di/postinvoicedata", gotPath)
}

func TestClient_PostInvoice_MissingToken(t *testing.T) {
	client := NewClientWithHTTP("http://unused", http.DefaultClient)
	_, err := client.PostInvoice(context.Background(), "", Sandbox, sampleInvoice())
	assert.Error(t, err)
}

func TestClient_PostInvoice_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"validationResponse": map[string]interface{}{
				"statusCode": "01",
				"status":     "Invalid",
				"error":      "invalid HS code",
			},
		})
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.URL, srv.Client())
	_, err := client.PostInvoice(context.Background(), "sb-token", Sandbox, sampleInvoice())

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "01", subErr.StatusCode)
	assert.Equal(t, "invalid HS code", subErr.Remarks)
}

func TestClient_PostInvoice_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClientWithHTTP(srv.URL, srv.Client())
	_, err := client.PostInvoice(context.Background(), "bad-token", Sandbox, sampleInvoice())

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "401", subErr.StatusCode)
}
