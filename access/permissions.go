// Package access answers the authorization question: which companies,
// warehouses, and dashboard views the authenticated user may see. It is
// fail-closed throughout: no permissions means no views, never all views.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/secure-command-center/go-client/gateway"
)

const permissionsPath = "/access/permissions/"

// Company a user may see data for.
type Company struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Warehouse a user may see data for.
type Warehouse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Tab is a named dashboard view grant. IDName is the internal identifier
// matched against the view registry; DisplayName is what the UI shows.
type Tab struct {
	ID          int    `json:"id"`
	IDName      string `json:"id_name"`
	DisplayName string `json:"display_name"`
}

// Permissions is the full grant set for the current user.
type Permissions struct {
	AllowedCompanies  []Company   `json:"allowed_companies"`
	AllowedWarehouses []Warehouse `json:"allowed_warehouses"`
	AllowedTabs       []Tab       `json:"allowed_tabs"`
}

// Service fetches permissions through the authenticated gateway.
type Service struct {
	api    *gateway.Client
	logger zerolog.Logger
}

type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(api *gateway.Client, options ...ServiceOption) (*Service, error) {
	if api == nil {
		return nil, errors.New("[NewService] gateway client is required")
	}

	s := &Service{api: api, logger: log.Logger}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// FetchPermissions retrieves the current user's grant set. Only meaningful
// after authentication succeeded and is_app_authorized is true.
func (s *Service) FetchPermissions(ctx context.Context) (*Permissions, error) {
	var perms Permissions
	if err := s.api.GetJSON(ctx, permissionsPath, &perms); err != nil {
		s.logger.Warn().Err(err).Msg("permission fetch failed")
		return nil, fmt.Errorf("[FetchPermissions] %w", err)
	}
	return &perms, nil
}
