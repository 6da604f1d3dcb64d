package clients

import (
	"fmt"
	"strings"

	"github.com/balcao-erp/balcao/internal/platform/httpx"
)

func (s *Service) validate(c Client) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("client name is required: %w", httpx.ErrValidation)
	}
	return nil
}
