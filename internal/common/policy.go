package common

import (
	"fmt"
	"os"
	"path/filepath"

	"xmr-custody-go/internal/models"

	"gopkg.in/yaml.v2"
)

// withdrawPolicyFile is the YAML shape of an operator-supplied policy
// override. Pointer fields distinguish "absent" from zero values; the
// minimum amount is written as a display XMR string.
type withdrawPolicyFile struct {
	EstimateLoop        *bool    `yaml:"estimate_loop"`
	EstimateRetryMax    *int     `yaml:"estimate_retry_max"`
	EstimatePercentDown *float64 `yaml:"estimate_percent_down"`
	MinAmount           string   `yaml:"min_amount"`
}

// LoadWithdrawPolicy overlays the YAML file at policyFile onto the
// environment-derived policy. Fields absent from the file keep their
// existing values.
func LoadWithdrawPolicy(policy models.WithdrawPolicy, policyFile string) (models.WithdrawPolicy, error) {
	var policyPath string
	if filepath.IsAbs(policyFile) {
		policyPath = policyFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return policy, fmt.Errorf("failed to get working directory: %w", err)
		}
		policyPath = filepath.Join(wd, policyFile)
	}

	data, err := os.ReadFile(policyPath)
	if err != nil {
		return policy, fmt.Errorf("unable to read %s: %w", policyFile, err)
	}

	var file withdrawPolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return policy, fmt.Errorf("unable to parse %s: %w", policyFile, err)
	}

	if file.EstimateLoop != nil {
		policy.EstimateLoop = *file.EstimateLoop
	}
	if file.EstimateRetryMax != nil {
		policy.EstimateRetryMax = *file.EstimateRetryMax
	}
	if file.EstimatePercentDown != nil {
		policy.EstimatePercentDown = *file.EstimatePercentDown
	}
	if file.MinAmount != "" {
		minAmount, err := ParseAmount(file.MinAmount)
		if err != nil {
			return policy, fmt.Errorf("invalid min_amount in %s: %w", policyFile, err)
		}
		policy.MinAmount = minAmount
	}

	if err := ValidateWithdrawPolicy(policy); err != nil {
		return policy, fmt.Errorf("invalid policy in %s: %w", policyFile, err)
	}

	return policy, nil
}

// ValidateWithdrawPolicy rejects policies the engine cannot execute.
func ValidateWithdrawPolicy(policy models.WithdrawPolicy) error {
	if policy.EstimateRetryMax < 0 {
		return fmt.Errorf("estimate_retry_max cannot be negative, got %d", policy.EstimateRetryMax)
	}
	if policy.EstimatePercentDown <= 0 || policy.EstimatePercentDown >= 100 {
		return fmt.Errorf("estimate_percent_down must be between 0 and 100 exclusive, got %v", policy.EstimatePercentDown)
	}
	if policy.MinAmount < 0 {
		return fmt.Errorf("min_amount cannot be negative, got %d", policy.MinAmount)
	}
	return nil
}
