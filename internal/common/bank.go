package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"bank-ledger-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

const DefaultTransactionPrefix = "CBUSA"

// DefaultBankProfile is used when no profile file is present.
func DefaultBankProfile() *models.BankProfile {
	return &models.BankProfile{
		Name:              "Bank Ledger",
		TransactionPrefix: DefaultTransactionPrefix,
		SupportEmail:      "support@example.com",
		CurrencySymbol:    "$",
	}
}

// LoadBankProfile reads the bank's branding from a YAML file. A missing file
// falls back to DefaultBankProfile; a malformed one is an error.
func LoadBankProfile(profileFile string) (*models.BankProfile, error) {
	if profileFile == "" {
		return DefaultBankProfile(), nil
	}

	profilePath := profileFile
	if !filepath.IsAbs(profileFile) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		profilePath = filepath.Join(wd, profileFile)
	}

	data, err := os.ReadFile(profilePath)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("Bank profile not found, using defaults", zap.String("file", profileFile))
		return DefaultBankProfile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", profileFile, err)
	}

	return ParseBankProfile(data)
}

func ParseBankProfile(data []byte) (*models.BankProfile, error) {
	profile := DefaultBankProfile()
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("unable to parse bank profile: %w", err)
	}

	if profile.Name == "" {
		return nil, fmt.Errorf("bank profile missing name")
	}
	if profile.TransactionPrefix == "" {
		profile.TransactionPrefix = DefaultTransactionPrefix
	}
	return profile, nil
}
