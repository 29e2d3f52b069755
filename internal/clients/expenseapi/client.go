package expenseapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"vantha.app/expense-sync/internal/entity/expense"
	"vantha.app/expense-sync/internal/model/customerr"
)

const (
	expensesPath  = "expenses"
	dbNameHeader  = "X-DB-NAME"
	createdByParm = "createdBy"
)

type config interface {
	BaseURL() string
	Database() string
	Timeout() time.Duration
}

// Client talks to the remote expense store. It performs no retries itself;
// retry policy belongs to the recovery scheduler or the initiating caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	database   string
}

func New(cfg config) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    cfg.BaseURL(),
		database:   cfg.Database(),
	}
}

type expenseModel struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Category    string  `json:"category"`
	Remark      string  `json:"remark,omitempty"`
	CreatedBy   string  `json:"createdBy"`
	CreatedDate string  `json:"createdDate"`
}

func toModel(rec expense.Record) expenseModel {
	return expenseModel{
		ID:          rec.ID,
		Amount:      rec.Amount,
		Currency:    rec.Currency,
		Category:    rec.Category,
		Remark:      rec.Remark,
		CreatedBy:   rec.CreatedBy,
		CreatedDate: rec.CreatedDate,
	}
}

func toRecord(m expenseModel) expense.Record {
	return expense.Record{
		ID:          m.ID,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Category:    m.Category,
		Remark:      m.Remark,
		CreatedBy:   m.CreatedBy,
		CreatedDate: m.CreatedDate,
	}
}

// ListExpenses fetches every record owned by owner. The result carries no
// visibility guarantee for writes made moments ago.
func (c *Client) ListExpenses(ctx context.Context, owner string) ([]expense.Record, error) {
	req, err := c.newRequest(ctx, http.MethodGet, expensesPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list expenses")
	}
	q := req.URL.Query()
	q.Add(createdByParm, owner)
	req.URL.RawQuery = q.Encode()

	body, err := c.do(req)
	if err != nil {
		return nil, errors.Wrap(err, "list expenses")
	}

	var models []expenseModel
	if err = json.Unmarshal(body, &models); err != nil {
		return nil, errors.Wrap(err, "unmarshalling expenses")
	}

	recs := make([]expense.Record, 0, len(models))
	for _, m := range models {
		recs = append(recs, toRecord(m))
	}
	return recs, nil
}

// CreateExpense stores rec and returns the server's authoritative copy.
// The copy is not guaranteed to be visible to an immediate ListExpenses.
func (c *Client) CreateExpense(ctx context.Context, rec expense.Record) (expense.Record, error) {
	payload, err := json.Marshal(toModel(rec))
	if err != nil {
		return expense.Record{}, errors.Wrap(err, "marshalling expense")
	}

	req, err := c.newRequest(ctx, http.MethodPost, expensesPath, bytes.NewReader(payload))
	if err != nil {
		return expense.Record{}, errors.Wrap(err, "create expense")
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return expense.Record{}, errors.Wrap(err, "create expense")
	}

	var saved expenseModel
	if err = json.Unmarshal(body, &saved); err != nil {
		return expense.Record{}, errors.Wrap(err, "unmarshalling expense")
	}
	return toRecord(saved), nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, expensesPath+"/"+url.PathEscape(id), nil)
	if err != nil {
		return errors.Wrap(err, "delete expense")
	}

	_, err = c.do(req)
	return errors.Wrap(err, "delete expense")
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(dbNameHeader, c.database)
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, customerr.NewRemoteError(customerr.Transport, 0, err.Error())
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, customerr.NewRemoteError(customerr.Transport, 0, err.Error())
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, customerr.FromStatus(res.StatusCode, string(body))
	}
	return body, nil
}
