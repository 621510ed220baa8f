package erp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erp/productsync/internal/domain/integration"
	"github.com/erp/productsync/internal/infrastructure/config"
)

// BillyConfig holds configuration for the Billy's Billing API
type BillyConfig struct {
	// Provider is the registry identifier the credentials were loaded from
	Provider string
	// AccessToken is sent as X-Access-Token on every request
	AccessToken string
	// OrganizationID owns every product the adapter creates or lists
	OrganizationID string
	// AccountID is the revenue account of new products
	AccountID string
	// SalesTaxRulesetID is the VAT ruleset of new products
	SalesTaxRulesetID string
	// APIBaseURL is the base URL of the API including the version path
	APIBaseURL string
	// TimeoutSeconds bounds each HTTP request
	TimeoutSeconds int
	// RequestsPerSecond and Burst configure the outbound rate limit
	RequestsPerSecond float64
	Burst             int
	// PageSize is the page size used when listing products
	PageSize int
}

const (
	// BillyAPIURL is the production API endpoint
	BillyAPIURL = "https://api.billysbilling.com/v2"

	defaultBillyTimeoutSeconds = 30
	defaultBillyRPS            = 5
	defaultBillyBurst          = 5
	defaultBillyPageSize       = 100
	maxBillyPageSize           = 1000
)

// Errors for Billy configuration
var (
	ErrBillyConfigMissingAccessToken     = errors.New("billy: access token is required")
	ErrBillyConfigMissingOrganizationID  = errors.New("billy: organization ID is required")
	ErrBillyConfigMissingAccountID       = errors.New("billy: account ID is required")
	ErrBillyConfigMissingSalesTaxRuleset = errors.New("billy: sales tax ruleset ID is required")
)

// NewBillyConfig creates a Billy configuration with defaults
func NewBillyConfig(accessToken, organizationID, accountID, salesTaxRulesetID string) *BillyConfig {
	return &BillyConfig{
		Provider:          config.DefaultErpProvider,
		AccessToken:       accessToken,
		OrganizationID:    organizationID,
		AccountID:         accountID,
		SalesTaxRulesetID: salesTaxRulesetID,
		APIBaseURL:        BillyAPIURL,
		TimeoutSeconds:    defaultBillyTimeoutSeconds,
		RequestsPerSecond: defaultBillyRPS,
		Burst:             defaultBillyBurst,
		PageSize:          defaultBillyPageSize,
	}
}

// NewBillyConfigFromSettings builds the configuration of the active provider in the credential registry
func NewBillyConfigFromSettings(cfg config.ErpConfig) (*BillyConfig, error) {
	creds, err := cfg.ActiveCredentials()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrErpNotConfigured, err)
	}

	bc := &BillyConfig{
		Provider:          cfg.Provider,
		AccessToken:       creds.APIToken,
		OrganizationID:    creds.OrganizationID,
		AccountID:         creds.AccountID,
		SalesTaxRulesetID: creds.SalesTaxRulesetID,
		APIBaseURL:        cfg.APIBaseURL,
		TimeoutSeconds:    cfg.TimeoutSeconds,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		PageSize:          cfg.PageSize,
	}
	if err := bc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrErpNotConfigured, err)
	}
	return bc, nil
}

// Validate checks required fields and fills defaults
func (c *BillyConfig) Validate() error {
	if strings.TrimSpace(c.AccessToken) == "" {
		return ErrBillyConfigMissingAccessToken
	}
	if strings.TrimSpace(c.OrganizationID) == "" {
		return ErrBillyConfigMissingOrganizationID
	}
	if strings.TrimSpace(c.AccountID) == "" {
		return ErrBillyConfigMissingAccountID
	}
	if strings.TrimSpace(c.SalesTaxRulesetID) == "" {
		return ErrBillyConfigMissingSalesTaxRuleset
	}
	if c.Provider == "" {
		c.Provider = config.DefaultErpProvider
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = BillyAPIURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultBillyTimeoutSeconds
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaultBillyRPS
	}
	if c.Burst <= 0 {
		c.Burst = defaultBillyBurst
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultBillyPageSize
	}
	if c.PageSize > maxBillyPageSize {
		c.PageSize = maxBillyPageSize
	}
	return nil
}
