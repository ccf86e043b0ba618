package payables

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	settlementapp "delivery-settlement/internal/settlement/application"
	settlement "delivery-settlement/internal/settlement/domain"
)

// ErrBillNotFound is returned when the payables system has no such bill.
var ErrBillNotFound = settlement.ErrBillNotFound

// Client is a REST client for the accounts-payable service.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient constructs a payables client.
func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("payables: empty base url")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type createBillRequest struct {
	MoveType  string                `json:"move_type"`
	PartnerID int64                 `json:"partner_id"`
	Partner   string                `json:"partner_name"`
	Ref       string                `json:"ref"`
	Date      string                `json:"invoice_date"`
	Post      bool                  `json:"post"`
	Lines     []settlement.BillLine `json:"invoice_lines"`
	Origin    string                `json:"origin"`
}

type billResponse struct {
	ID           string `json:"id"`
	State        string `json:"state"`
	PaymentState string `json:"payment_state"`
}

// CreateAndPostBill creates a vendor bill and posts it.
func (c *Client) CreateAndPostBill(ctx context.Context, req settlementapp.BillRequest) (string, error) {
	if len(req.Lines) == 0 {
		return "", errors.New("payables: bill without lines")
	}
	body := createBillRequest{
		MoveType:  "in_invoice",
		PartnerID: req.PartnerID,
		Partner:   req.PartnerName,
		Ref:       req.Reference,
		Date:      req.InvoiceDate.Format("2006-01-02"),
		Post:      true,
		Lines:     req.Lines,
		Origin:    fmt.Sprintf("settlement/%d", req.SettlementID),
	}
	var resp billResponse
	headers := map[string]string{"Idempotency-Key": req.IdempotencyKey}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/bills", headers, body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errors.New("payables: empty bill id")
	}
	return resp.ID, nil
}

// BillStatus returns the posting status of a bill.
func (c *Client) BillStatus(ctx context.Context, billRef string) (settlement.BillStatus, error) {
	bill, err := c.getBill(ctx, billRef)
	if err != nil {
		return "", err
	}
	return parseBillStatus(bill.State), nil
}

// PaymentStatus returns the payment status of a bill.
func (c *Client) PaymentStatus(ctx context.Context, billRef string) (settlement.PaymentStatus, error) {
	bill, err := c.getBill(ctx, billRef)
	if err != nil {
		return "", err
	}
	return parsePaymentStatus(bill.PaymentState), nil
}

func (c *Client) getBill(ctx context.Context, billRef string) (billResponse, error) {
	if billRef == "" {
		return billResponse{}, errors.New("payables: empty bill ref")
	}
	var resp billResponse
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/bills/"+url.PathEscape(billRef), nil, nil, &resp)
	return resp, err
}

func parseBillStatus(value string) settlement.BillStatus {
	switch strings.ToLower(value) {
	case "cancel", "cancelled", "canceled":
		return settlement.BillStatusCancelled
	case "posted":
		return settlement.BillStatusPosted
	default:
		return settlement.BillStatusDraft
	}
}

func parsePaymentStatus(value string) settlement.PaymentStatus {
	switch strings.ToLower(value) {
	case "paid":
		return settlement.PaymentStatusPaid
	case "in_payment":
		return settlement.PaymentStatusInPayment
	case "partial":
		return settlement.PaymentStatusPartial
	default:
		return settlement.PaymentStatusNotPaid
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, headers map[string]string, body any, out any) error {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for key, value := range headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrBillNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("payables: http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
