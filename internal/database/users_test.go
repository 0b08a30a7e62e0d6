package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"xmr-custody-go/internal/models"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	service := &Service{db: db}

	// Use the actual schema initialization
	if err := service.initSchema(); err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func createTestUser(t *testing.T, service *Service, display string, addressIndex int64, balance int64) *models.User {
	t.Helper()
	ctx := context.Background()

	user, err := service.CreateUser(ctx, uuid.New().String(), display)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if addressIndex > 0 {
		address := fmt.Sprintf("5Subaddress%s%d", display, addressIndex)
		if err := service.AssignAddress(ctx, user.Id, address, addressIndex); err != nil {
			t.Fatalf("AssignAddress failed: %v", err)
		}
	}

	if balance > 0 {
		if err := service.CreditBalance(ctx, user.Id, balance); err != nil {
			t.Fatalf("CreditBalance failed: %v", err)
		}
	}

	user, err = service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	return user
}

func TestCreateUser_DuplicateDisplay(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()

	if _, err := service.CreateUser(ctx, uuid.New().String(), "alice"); err != nil {
		t.Fatalf("First CreateUser failed: %v", err)
	}

	_, err := service.CreateUser(ctx, uuid.New().String(), "alice")
	if err == nil {
		t.Fatalf("Expected error creating duplicate display, got nil")
	}
}

func TestGetUserByDisplay_NotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.GetUserByDisplay(context.Background(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestGetUserByAddressIndex(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	created := createTestUser(t, service, "alice", 3, 0)

	user, err := service.GetUserByAddressIndex(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetUserByAddressIndex failed: %v", err)
	}
	if user.Id != created.Id {
		t.Errorf("Expected user %s, got %s", created.Id, user.Id)
	}
}

func TestDebitBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 3, 1_000_000_000_000)

	if err := service.DebitBalance(ctx, user.Id, 400_000_000_000); err != nil {
		t.Fatalf("DebitBalance failed: %v", err)
	}

	user, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if user.Balance != 600_000_000_000 {
		t.Errorf("Expected balance 600000000000, got %d", user.Balance)
	}
}

func TestDebitBalance_ExactBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 3, 1_000_000_000_000)

	if err := service.DebitBalance(ctx, user.Id, 1_000_000_000_000); err != nil {
		t.Fatalf("DebitBalance of exact balance failed: %v", err)
	}

	user, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if user.Balance != 0 {
		t.Errorf("Expected balance 0, got %d", user.Balance)
	}
}

func TestDebitBalance_Insufficient(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 3, 100)

	err := service.DebitBalance(ctx, user.Id, 101)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got: %v", err)
	}

	// Balance must be untouched
	user, err = service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if user.Balance != 100 {
		t.Errorf("Expected balance 100 after failed debit, got %d", user.Balance)
	}
}

func TestCreditBalance_UnknownUser(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	err := service.CreditBalance(context.Background(), "missing-user", 100)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got: %v", err)
	}
}

func TestAssignAddress_PermanentBinding(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	user := createTestUser(t, service, "alice", 0, 0)

	if err := service.AssignAddress(ctx, user.Id, "5First", 3); err != nil {
		t.Fatalf("First AssignAddress failed: %v", err)
	}

	// Second assignment must keep the original binding
	if err := service.AssignAddress(ctx, user.Id, "5Second", 4); err != nil {
		t.Fatalf("Second AssignAddress returned error: %v", err)
	}

	user, err := service.GetUserById(ctx, user.Id)
	if err != nil {
		t.Fatalf("GetUserById failed: %v", err)
	}
	if user.Address != "5First" || user.AddressIndex != 3 {
		t.Errorf("Expected original binding 5First/3, got %s/%d", user.Address, user.AddressIndex)
	}
}
