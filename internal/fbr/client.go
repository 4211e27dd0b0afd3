// Package fbr is the client for the FBR digital invoicing gateway. Every
// call authenticates with the posting tenant's own bearer token.
package fbr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/digiinvoice/invoicing-backend/internal/config"
	"github.com/digiinvoice/invoicing-backend/internal/model"
)

// Environment selects the gateway variant an invoice is posted to.
type Environment string

const (
	Sandbox    Environment = "sandbox"
	Production Environment = "production"

	sandboxPath    = "/di_data/v1/di/postinvoicedata_sb"
	productionPath = "/di_data/v1/di/postinvoicedata"
)

// SubmissionError is a gateway-level rejection: the request reached FBR but
// the invoice was not accepted.
type SubmissionError struct {
	StatusCode string
	Status     string
	Remarks    string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("gateway rejected invoice: %s %s (%s)", e.StatusCode, e.Status, e.Remarks)
}

// SubmissionResult is a successful gateway acceptance.
type SubmissionResult struct {
	InvoiceNumber string `json:"invoiceNumber"`
	Dated         string `json:"dated"`
}

// itemPayload mirrors the gateway's item field names.
type itemPayload struct {
	HSCode             string        `json:"hsCode"`
	ProductDescription string        `json:"productDescription"`
	Rate               string        `json:"rate"`
	UOM                string        `json:"uoM"`
	Quantity           model.Numeric `json:"quantity"`
	TotalValues        model.Numeric `json:"totalValues"`
	ValueSalesExclST   model.Numeric `json:"valueSalesExcludingST"`
	FixedNotifiedValue model.Numeric `json:"fixedNotifiedValueOrRetailPrice"`
	SalesTaxApplicable model.Numeric `json:"salesTaxApplicable"`
	SalesTaxWithheld   model.Numeric `json:"salesTaxWithheldAtSource"`
	ExtraTax           string        `json:"extraTax"`
	FurtherTax         model.Numeric `json:"furtherTax"`
	SROScheduleNo      string        `json:"sroScheduleNo"`
	FEDPayable         model.Numeric `json:"fedPayable"`
	Discount           model.Numeric `json:"discount"`
	SaleType           string        `json:"saleType"`
	SROItemSerialNo    string        `json:"sroItemSerialNo"`
}

type invoicePayload struct {
	InvoiceType           string        `json:"invoiceType"`
	InvoiceDate           string        `json:"invoiceDate"`
	SellerNTNCNIC         string        `json:"sellerNTNCNIC"`
	SellerBusinessName    string        `json:"sellerBusinessName"`
	SellerProvince        string        `json:"sellerProvince"`
	SellerAddress         string        `json:"sellerAddress"`
	BuyerNTNCNIC          string        `json:"buyerNTNCNIC"`
	BuyerBusinessName     string        `json:"buyerBusinessName"`
	BuyerProvince         string        `json:"buyerProvince"`
	BuyerAddress          string        `json:"buyerAddress"`
	BuyerRegistrationType string        `json:"buyerRegistrationType"`
	InvoiceRefNo          string        `json:"invoiceRefNo"`
	ScenarioID            string        `json:"scenarioId"`
	Items                 []itemPayload `json:"items"`
}

type gatewayResponse struct {
	InvoiceNumber      string `json:"invoiceNumber"`
	Dated              string `json:"dated"`
	ValidationResponse struct {
		StatusCode string `json:"statusCode"`
		Status     string `json:"status"`
		Error      string `json:"error"`
	} `json:"validationResponse"`
}

// Client posts invoices to the FBR gateway.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg *config.FBRConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// NewClientWithHTTP creates a client with a caller-supplied HTTP client.
// Used by tests.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, http: httpClient}
}

// PostInvoice submits an invoice with its items to the gateway and returns
// the gateway-assigned invoice number on acceptance.
func (c *Client) PostInvoice(ctx context.Context, token string, env Environment, inv *model.Invoice) (*SubmissionResult, error) {
	if token == "" {
		return nil, fmt.Errorf("no gateway token configured for %s environment", env)
	}

	path := sandboxPath
	if env == Production {
		path = productionPath
	}

	body, err := json.Marshal(buildPayload(inv))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("invoice_number", inv.InvoiceNumber).
			Msg("Gateway returned non-2xx status")
		return nil, &SubmissionError{
			StatusCode: fmt.Sprintf("%d", resp.StatusCode),
			Status:     http.StatusText(resp.StatusCode),
			Remarks:    string(raw),
		}
	}

	var gw gatewayResponse
	if err := json.Unmarshal(raw, &gw); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if gw.ValidationResponse.Error != "" || gw.InvoiceNumber == "" {
		return nil, &SubmissionError{
			StatusCode: gw.ValidationResponse.StatusCode,
			Status:     gw.ValidationResponse.Status,
			Remarks:    gw.ValidationResponse.Error,
		}
	}

	return &SubmissionResult{InvoiceNumber: gw.InvoiceNumber, Dated: gw.Dated}, nil
}

func buildPayload(inv *model.Invoice) invoicePayload {
	p := invoicePayload{
		InvoiceType:           inv.InvoiceType,
		InvoiceDate:           inv.InvoiceDate,
		SellerNTNCNIC:         inv.SellerNTNCNIC,
		SellerBusinessName:    inv.SellerBusinessName,
		SellerProvince:        inv.SellerProvince,
		SellerAddress:         inv.SellerAddress,
		BuyerNTNCNIC:          inv.BuyerNTNCNIC,
		BuyerBusinessName:     inv.BuyerBusinessName,
		BuyerProvince:         inv.BuyerProvince,
		BuyerAddress:          inv.BuyerAddress,
		BuyerRegistrationType: inv.BuyerRegistrationType,
		InvoiceRefNo:          inv.InvoiceRefNo,
		ScenarioID:            inv.ScenarioID,
		Items:                 make([]itemPayload, 0, len(inv.Items)),
	}
	for _, it := range inv.Items {
		p.Items = append(p.Items, itemPayload{
			HSCode:             it.HSCode,
			ProductDescription: it.ProductDescription,
			Rate:               it.Rate,
			UOM:                it.UOM,
			Quantity:           it.Quantity,
			TotalValues:        it.TotalValues,
			ValueSalesExclST:   it.ValueSalesExclST,
			FixedNotifiedValue: it.FixedNotifiedValue,
			SalesTaxApplicable: it.SalesTaxApplicable,
			SalesTaxWithheld:   it.SalesTaxWithheld,
			ExtraTax:           it.ExtraTax,
			FurtherTax:         it.FurtherTax,
			SROScheduleNo:      it.SROScheduleNo,
			FEDPayable:         it.FEDPayable,
			Discount:           it.Discount,
			SaleType:           it.SaleType,
			SROItemSerialNo:    it.SROItemSerialNo,
		})
	}
	return p
}
