package deposit

import (
	"context"
	"fmt"

	"xmr-custody-go/internal/database"
	"xmr-custody-go/internal/models"

	"go.uber.org/zap"
)

// EnsureAddress returns the user's deposit subaddress, allocating one
// from the wallet on first use. The allocation is lazy so the wallet's
// subaddress space only grows for users who actually deposit, and the
// binding is permanent once made.
func EnsureAddress(ctx context.Context, wallet WalletClient, dbService *database.Service, user *models.User) (*models.User, error) {
	if user.HasAddress() {
		return user, nil
	}

	subAddress, err := wallet.CreateAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to create deposit address: %w", err)
	}

	if err := dbService.AssignAddress(ctx, user.Id, subAddress.Address, subAddress.AddressIndex); err != nil {
		return nil, err
	}

	updated, err := dbService.GetUserById(ctx, user.Id)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Deposit address ready",
		zap.String("user_id", updated.Id),
		zap.Int64("address_index", updated.AddressIndex))

	return updated, nil
}
