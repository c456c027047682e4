package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/esaputra95/webalhijrah-sub000/internal/domain"
	"github.com/esaputra95/webalhijrah-sub000/internal/metrics"
)

const (
	sandboxSnapURL    = "https://app.sandbox.midtrans.com"
	productionSnapURL = "https://app.midtrans.com"
)

// HostedTransaction is the gateway's answer to a transaction request.
type HostedTransaction struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// SnapClient creates hosted payment pages.
type SnapClient struct {
	serverKey  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSnapClient builds a client for the sandbox unless environment is
// "production". timeout bounds every request.
func NewSnapClient(serverKey, environment string, timeout time.Duration, logger *zap.Logger) *SnapClient {
	baseURL := sandboxSnapURL
	if environment == "production" {
		baseURL = productionSnapURL
	}

	return &SnapClient{
		serverKey:  serverKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithBaseURL points the client at another host. Used by tests.
func (c *SnapClient) WithBaseURL(u string) *SnapClient {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

type snapErrorResponse struct {
	ErrorMessages []string `json:"error_messages"`
}

// CreateHostedTransaction registers tx with the gateway and returns the
// payment page token and URL. It is not retried.
func (c *SnapClient) CreateHostedTransaction(ctx context.Context, tx Transaction) (*HostedTransaction, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.GatewayDuration.WithLabelValues("create_transaction", status).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("marshal transaction: %w", err)
	}

	url := c.baseURL + "/snap/v1/transactions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.serverKey+":")))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snap request: %w", err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read snap response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var errResp snapErrorResponse
		_ = json.Unmarshal(respBody, &errResp)
		c.logger.Error("snap transaction rejected",
			zap.String("order_id", tx.TransactionDetails.OrderID),
			zap.Int("http_status", resp.StatusCode),
			zap.Strings("error_messages", errResp.ErrorMessages))
		return nil, fmt.Errorf("%w: http %d: %s", domain.ErrGatewayRejected,
			resp.StatusCode, strings.Join(errResp.ErrorMessages, "; "))
	}

	var hosted HostedTransaction
	if err := json.Unmarshal(respBody, &hosted); err != nil {
		return nil, fmt.Errorf("decode snap response: %w", err)
	}
	if hosted.Token == "" || hosted.RedirectURL == "" {
		return nil, fmt.Errorf("%w: empty token or redirect_url", domain.ErrGatewayRejected)
	}

	c.logger.Info("snap transaction created",
		zap.String("order_id", tx.TransactionDetails.OrderID),
		zap.Int64("gross_amount", tx.TransactionDetails.GrossAmount))

	return &hosted, nil
}
