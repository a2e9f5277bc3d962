package payment

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// DefaultSchoolPayBaseURL is the production API root
const DefaultSchoolPayBaseURL = "https://schoolpay.co.ug/paymentapi"

// SchoolPayConfig configures the SchoolPay sync API client
type SchoolPayConfig struct {
	// BaseURL is the API root; endpoint paths are appended to it
	BaseURL string
	// Timeout bounds each provider call
	Timeout time.Duration
}

// Errors for configuration validation
var (
	ErrSchoolPayInvalidBaseURL = errors.New("schoolpay: base URL must be an absolute http(s) URL")
	ErrSchoolPayInvalidTimeout = errors.New("schoolpay: timeout must be positive")
)

// Validate fills defaults and checks the configuration
func (c *SchoolPayConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultSchoolPayBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrSchoolPayInvalidBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Timeout < 0 {
		return ErrSchoolPayInvalidTimeout
	}
	return nil
}
