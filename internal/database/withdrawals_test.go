package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateWithdrawRequest_DebitsBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 3, 1_000_000_000_000)

	request, err := service.CreateWithdrawRequest(ctx, user, 400_000_000_000)
	if err != nil {
		t.Fatalf("CreateWithdrawRequest failed: %v", err)
	}

	if request.AddressIndex != 3 {
		t.Errorf("Expected address index 3, got %d", request.AddressIndex)
	}
	if request.Amount != 400_000_000_000 {
		t.Errorf("Expected amount 400000000000, got %d", request.Amount)
	}
	if request.Resolved() {
		t.Errorf("Expected fresh request to be unresolved")
	}

	user, err = service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if user.Balance != 600_000_000_000 {
		t.Errorf("Expected balance 600000000000 after debit, got %d", user.Balance)
	}
}

func TestCreateWithdrawRequest_InsufficientBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 3, 100)

	_, err := service.CreateWithdrawRequest(ctx, user, 101)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got: %v", err)
	}

	// Nothing recorded, nothing debited
	requests, err := service.GetRecentWithdrawals(ctx, 3, 10)
	if err != nil {
		t.Fatalf("GetRecentWithdrawals failed: %v", err)
	}
	if len(requests) != 0 {
		t.Errorf("Expected no withdraw requests, got %d", len(requests))
	}

	user, err = service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if user.Balance != 100 {
		t.Errorf("Expected balance 100, got %d", user.Balance)
	}
}

func TestCreateWithdrawRequest_RequiresAddress(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 0, 0)

	_, err := service.CreateWithdrawRequest(ctx, user, 100)
	if !errors.Is(err, ErrNoReceivingAddress) {
		t.Errorf("Expected ErrNoReceivingAddress, got: %v", err)
	}
}

func TestRefundWithdrawRequest_ExactlyOnce(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 3, 1_000_000_000_000)

	request, err := service.CreateWithdrawRequest(ctx, user, 1_000_000_000_000)
	if err != nil {
		t.Fatalf("CreateWithdrawRequest failed: %v", err)
	}

	refunded, err := service.RefundWithdrawRequest(ctx, request)
	if err != nil {
		t.Fatalf("RefundWithdrawRequest failed: %v", err)
	}
	if !refunded {
		t.Fatalf("Expected first refund to apply")
	}

	// Second refund must not credit again
	refunded, err = service.RefundWithdrawRequest(ctx, request)
	if err != nil {
		t.Fatalf("Second RefundWithdrawRequest failed: %v", err)
	}
	if refunded {
		t.Errorf("Expected second refund to be a no-op")
	}

	user, err = service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if user.Balance != 1_000_000_000_000 {
		t.Errorf("Expected balance restored to 1000000000000, got %d", user.Balance)
	}
}

func TestSettleWithdrawRequest(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 3, 1_000_000_000_000)

	request, err := service.CreateWithdrawRequest(ctx, user, 500_000_000_000)
	if err != nil {
		t.Fatalf("CreateWithdrawRequest failed: %v", err)
	}

	settled, err := service.SettleWithdrawRequest(ctx, request.Id, 1000, "relayed-hash")
	if err != nil {
		t.Fatalf("SettleWithdrawRequest failed: %v", err)
	}
	if !settled {
		t.Fatalf("Expected settle to apply")
	}

	request, err = service.GetWithdrawRequest(ctx, request.Id)
	if err != nil {
		t.Fatalf("GetWithdrawRequest failed: %v", err)
	}
	if !request.Success || request.Refunded {
		t.Errorf("Expected success without refund, got success=%v refunded=%v", request.Success, request.Refunded)
	}
	if request.Fee != 1000 || request.TxHash != "relayed-hash" {
		t.Errorf("Expected fee 1000 and hash relayed-hash, got %d / %s", request.Fee, request.TxHash)
	}
}

func TestSettleBlocksRefund(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 3, 1_000_000_000_000)

	request, err := service.CreateWithdrawRequest(ctx, user, 500_000_000_000)
	if err != nil {
		t.Fatalf("CreateWithdrawRequest failed: %v", err)
	}

	if _, err := service.SettleWithdrawRequest(ctx, request.Id, 1000, "relayed-hash"); err != nil {
		t.Fatalf("SettleWithdrawRequest failed: %v", err)
	}

	refunded, err := service.RefundWithdrawRequest(ctx, request)
	if err != nil {
		t.Fatalf("RefundWithdrawRequest failed: %v", err)
	}
	if refunded {
		t.Errorf("Expected refund of settled request to be a no-op")
	}

	user, err = service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if user.Balance != 500_000_000_000 {
		t.Errorf("Expected balance to stay debited at 500000000000, got %d", user.Balance)
	}
}

func TestRefundBlocksSettle(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 3, 1_000_000_000_000)

	request, err := service.CreateWithdrawRequest(ctx, user, 500_000_000_000)
	if err != nil {
		t.Fatalf("CreateWithdrawRequest failed: %v", err)
	}

	if _, err := service.RefundWithdrawRequest(ctx, request); err != nil {
		t.Fatalf("RefundWithdrawRequest failed: %v", err)
	}

	settled, err := service.SettleWithdrawRequest(ctx, request.Id, 1000, "relayed-hash")
	if err != nil {
		t.Fatalf("SettleWithdrawRequest failed: %v", err)
	}
	if settled {
		t.Errorf("Expected settle of refunded request to be a no-op")
	}
}

func TestGetUnresolvedWithdrawRequests(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 3, 1_000_000_000_000)

	unresolved, err := service.CreateWithdrawRequest(ctx, user, 100)
	if err != nil {
		t.Fatalf("CreateWithdrawRequest failed: %v", err)
	}
	settledReq, err := service.CreateWithdrawRequest(ctx, user, 200)
	if err != nil {
		t.Fatalf("CreateWithdrawRequest failed: %v", err)
	}
	if _, err := service.SettleWithdrawRequest(ctx, settledReq.Id, 10, "hash"); err != nil {
		t.Fatalf("SettleWithdrawRequest failed: %v", err)
	}

	// Everything is younger than a cutoff in the future
	requests, err := service.GetUnresolvedWithdrawRequests(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("GetUnresolvedWithdrawRequests failed: %v", err)
	}
	if len(requests) != 1 || requests[0].Id != unresolved.Id {
		t.Fatalf("Expected only the unresolved request, got %d rows", len(requests))
	}

	// Nothing is older than a cutoff in the past
	requests, err = service.GetUnresolvedWithdrawRequests(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("GetUnresolvedWithdrawRequests failed: %v", err)
	}
	if len(requests) != 0 {
		t.Errorf("Expected no requests older than cutoff, got %d", len(requests))
	}
}
