package walletrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"xmr-custody-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// Client speaks JSON-RPC 2.0 to a monero-wallet-rpc endpoint. It holds
// no state beyond the HTTP client and is safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient http.Client
}

func NewClient(cfg models.WalletRpcConfig) (*Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("wallet rpc address cannot be empty")
	}

	httpClient, err := createCustomHttpClient(cfg.CallTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	return &Client{
		endpoint:   fmt.Sprintf("http://%s/json_rpc", cfg.Address),
		httpClient: httpClient,
	}, nil
}

func createCustomHttpClient(callTimeout time.Duration) (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			DualStack: true,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}

	return http.Client{
		Transport: tr,
		Timeout:   callTimeout,
	}, nil
}

type rpcRequest struct {
	Jsonrpc string      `json:"jsonrpc"`
	Id      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC round trip. A response without a result
// member counts as a failure even when no error member is present; the
// wallet omits the result on methods it refused to execute.
func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	body, err := json.Marshal(rpcRequest{Jsonrpc: "2.0", Id: "0", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("unable to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("unable to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("wallet rpc %s call failed: %w", method, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			zap.L().Warn("Failed to close response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wallet rpc %s returned status %d", method, resp.StatusCode)
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("unable to decode %s response: %w", method, err)
	}

	if envelope.Error != nil {
		return fmt.Errorf("wallet rpc %s failed: %s (code %d)", method, envelope.Error.Message, envelope.Error.Code)
	}
	if envelope.Result == nil {
		return fmt.Errorf("wallet rpc %s returned no result", method)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("unable to unmarshal %s result: %w", method, err)
		}
	}

	return nil
}

type incomingTransfersParams struct {
	TransferType   string  `json:"transfer_type"`
	AccountIndex   int64   `json:"account_index"`
	SubaddrIndices []int64 `json:"subaddr_indices"`
}

// IncomingTransfers lists every spendable transfer received by account 0,
// across all subaddress indices.
func (c *Client) IncomingTransfers(ctx context.Context) ([]models.IncomingTransfer, error) {
	params := incomingTransfersParams{
		TransferType:   "available",
		AccountIndex:   0,
		SubaddrIndices: []int64{},
	}

	var result struct {
		Transfers []models.IncomingTransfer `json:"transfers"`
	}
	if err := c.call(ctx, "incoming_transfers", params, &result); err != nil {
		return nil, err
	}

	zap.L().Debug("Fetched incoming transfers", zap.Int("count", len(result.Transfers)))
	return result.Transfers, nil
}

type createAddressParams struct {
	AccountIndex int64  `json:"account_index"`
	Label        string `json:"label"`
	Count        int64  `json:"count"`
}

// CreateAddress allocates the next subaddress under account 0 and asks
// the wallet to persist its state. A failed store call is logged but not
// fatal; the wallet re-derives the same subaddress from its index.
func (c *Client) CreateAddress(ctx context.Context) (*models.SubAddress, error) {
	params := createAddressParams{AccountIndex: 0, Label: "", Count: 1}

	var result models.SubAddress
	if err := c.call(ctx, "create_address", params, &result); err != nil {
		return nil, err
	}

	if err := c.call(ctx, "store", nil, nil); err != nil {
		zap.L().Warn("Failed to store wallet state after create_address", zap.Error(err))
	}

	zap.L().Info("Created deposit subaddress", zap.Int64("address_index", result.AddressIndex))
	return &result, nil
}

type transferDestination struct {
	Amount  int64  `json:"amount"`
	Address string `json:"address"`
}

type transferParams struct {
	Destinations  []transferDestination `json:"destinations"`
	AccountIndex  int64                 `json:"account_index"`
	Priority      int64                 `json:"priority"`
	RingSize      int64                 `json:"ring_size"`
	GetTxMetadata bool                  `json:"get_tx_metadata"`
	DoNotRelay    bool                  `json:"do_not_relay"`
}

// TransferNoRelay builds and signs a transfer without broadcasting it.
// The returned metadata is handed to RelayTx once the fee is accepted.
func (c *Client) TransferNoRelay(ctx context.Context, amount int64, destination string) (*models.TransferBuild, error) {
	params := transferParams{
		Destinations:  []transferDestination{{Amount: amount, Address: destination}},
		AccountIndex:  0,
		Priority:      0,
		RingSize:      16,
		GetTxMetadata: true,
		DoNotRelay:    true,
	}

	var result models.TransferBuild
	if err := c.call(ctx, "transfer", params, &result); err != nil {
		return nil, err
	}

	zap.L().Debug("Built unrelayed transfer",
		zap.Int64("amount", amount),
		zap.Int64("fee", result.Fee),
		zap.String("tx_hash", result.TxHash))
	return &result, nil
}

type relayTxParams struct {
	Hex string `json:"hex"`
}

// RelayTx broadcasts a previously built transaction.
func (c *Client) RelayTx(ctx context.Context, txMetadata string) (*models.RelayResult, error) {
	var result models.RelayResult
	if err := c.call(ctx, "relay_tx", relayTxParams{Hex: txMetadata}, &result); err != nil {
		return nil, err
	}

	zap.L().Info("Relayed transaction", zap.String("tx_hash", result.TxHash))
	return &result, nil
}
