package walletrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"xmr-custody-go/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(models.WalletRpcConfig{
		Address:     strings.TrimPrefix(server.URL, "http://"),
		CallTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, server
}

func rpcHandler(t *testing.T, responses map[string]string, calls *[]string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
			return
		}
		if calls != nil {
			*calls = append(*calls, req.Method)
		}
		response, ok := responses[req.Method]
		if !ok {
			response = `{}`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}
}

func TestIncomingTransfers(t *testing.T) {
	responses := map[string]string{
		"incoming_transfers": `{"result":{"transfers":[
			{"amount":2500000000000,"tx_hash":"hash-a","subaddr_index":{"major":0,"minor":3},"unlocked":true,"block_height":1000},
			{"amount":800000000000,"tx_hash":"hash-b","subaddr_index":{"major":0,"minor":0},"unlocked":false,"block_height":1001}
		]}}`,
	}
	client, _ := newTestClient(t, rpcHandler(t, responses, nil))

	transfers, err := client.IncomingTransfers(context.Background())
	if err != nil {
		t.Fatalf("IncomingTransfers failed: %v", err)
	}

	if len(transfers) != 2 {
		t.Fatalf("Expected 2 transfers, got %d", len(transfers))
	}
	if transfers[0].AddressIndex() != 3 {
		t.Errorf("Expected address index 3, got %d", transfers[0].AddressIndex())
	}
	if transfers[0].Amount != 2_500_000_000_000 {
		t.Errorf("Expected amount 2500000000000, got %d", transfers[0].Amount)
	}
	if transfers[1].Unlocked {
		t.Errorf("Expected second transfer to be locked")
	}
}

func TestIncomingTransfers_EmptyResult(t *testing.T) {
	responses := map[string]string{
		"incoming_transfers": `{"result":{}}`,
	}
	client, _ := newTestClient(t, rpcHandler(t, responses, nil))

	transfers, err := client.IncomingTransfers(context.Background())
	if err != nil {
		t.Fatalf("IncomingTransfers failed: %v", err)
	}
	if len(transfers) != 0 {
		t.Errorf("Expected no transfers, got %d", len(transfers))
	}
}

func TestCall_ErrorMember(t *testing.T) {
	responses := map[string]string{
		"transfer": `{"error":{"code":-17,"message":"not enough money"}}`,
	}
	client, _ := newTestClient(t, rpcHandler(t, responses, nil))

	_, err := client.TransferNoRelay(context.Background(), 100, "5Destination")
	if err == nil {
		t.Fatalf("Expected error for error member, got nil")
	}
	if !strings.Contains(err.Error(), "not enough money") {
		t.Errorf("Expected wallet message in error, got: %v", err)
	}
}

func TestCall_MissingResult(t *testing.T) {
	// No result and no error member still counts as failure
	client, _ := newTestClient(t, rpcHandler(t, map[string]string{"relay_tx": `{}`}, nil))

	_, err := client.RelayTx(context.Background(), "metadata")
	if err == nil {
		t.Fatalf("Expected error for missing result, got nil")
	}
	if !strings.Contains(err.Error(), "no result") {
		t.Errorf("Expected missing-result error, got: %v", err)
	}
}

func TestCall_HttpStatusError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.IncomingTransfers(context.Background())
	if err == nil {
		t.Fatalf("Expected error for HTTP 500, got nil")
	}
}

func TestCall_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(`{"result":{}}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(models.WalletRpcConfig{
		Address:     strings.TrimPrefix(server.URL, "http://"),
		CallTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.IncomingTransfers(context.Background()); err == nil {
		t.Fatalf("Expected timeout error, got nil")
	}
}

func TestCreateAddress_StoresWalletState(t *testing.T) {
	var calls []string
	responses := map[string]string{
		"create_address": `{"result":{"address":"5NewSubaddress","address_index":7}}`,
		"store":          `{"result":{}}`,
	}
	client, _ := newTestClient(t, rpcHandler(t, responses, &calls))

	subAddress, err := client.CreateAddress(context.Background())
	if err != nil {
		t.Fatalf("CreateAddress failed: %v", err)
	}

	if subAddress.Address != "5NewSubaddress" || subAddress.AddressIndex != 7 {
		t.Errorf("Unexpected subaddress: %+v", subAddress)
	}
	if len(calls) != 2 || calls[0] != "create_address" || calls[1] != "store" {
		t.Errorf("Expected create_address then store, got %v", calls)
	}
}

func TestTransferNoRelay_Params(t *testing.T) {
	var captured transferParams
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if err := json.Unmarshal(req.Params, &captured); err != nil {
			t.Errorf("Failed to decode params: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":{"amount":999,"fee":1000,"tx_hash":"built","tx_metadata":"meta"}}`))
	})

	build, err := client.TransferNoRelay(context.Background(), 1_000_000_000_000, "5Destination")
	if err != nil {
		t.Fatalf("TransferNoRelay failed: %v", err)
	}

	if build.Fee != 1000 || build.TxMetadata != "meta" {
		t.Errorf("Unexpected build: %+v", build)
	}
	if !captured.DoNotRelay || !captured.GetTxMetadata {
		t.Errorf("Expected do_not_relay and get_tx_metadata, got %+v", captured)
	}
	if captured.RingSize != 16 || captured.AccountIndex != 0 {
		t.Errorf("Expected ring size 16 on account 0, got %+v", captured)
	}
	if len(captured.Destinations) != 1 || captured.Destinations[0].Amount != 1_000_000_000_000 {
		t.Errorf("Unexpected destinations: %+v", captured.Destinations)
	}
}
