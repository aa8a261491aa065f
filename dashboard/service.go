// Package dashboard fetches the reporting data the authenticated views
// render: the company catalogue, fiscal periods, and per-period metrics.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/secure-command-center/go-client/gateway"
)

const (
	companiesPath     = "/companies/"
	periodsPath       = "/periods/"
	periodMetricsPath = "/metrics/period/%d/"
)

// Company is one reporting entity in the catalogue.
type Company struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Country  string `json:"country"`
}

// Period is one fiscal reporting period.
type Period struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsClosed  bool   `json:"is_closed"`
}

// Metric is one KPI value within a period.
type Metric struct {
	CompanyID int64   `json:"company_id"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
}

// Service reads reporting data through the authenticated gateway.
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

// Companies lists every company the current user may report on.
func (s *Service) Companies(ctx context.Context) ([]Company, error) {
	var companies []Company
	if err := s.api.GetJSON(ctx, companiesPath, &companies); err != nil {
		return nil, fmt.Errorf("[Companies] %w", err)
	}
	return companies, nil
}

// CompanyDetails fetches one company by id.
func (s *Service) CompanyDetails(ctx context.Context, id int64) (*Company, error) {
	var company Company
	if err := s.api.GetJSON(ctx, fmt.Sprintf("/companies/%d/", id), &company); err != nil {
		return nil, fmt.Errorf("[CompanyDetails] %w", err)
	}
	return &company, nil
}

// Periods lists the fiscal periods available for reporting.
func (s *Service) Periods(ctx context.Context) ([]Period, error) {
	var periods []Period
	if err := s.api.GetJSON(ctx, periodsPath, &periods); err != nil {
		return nil, fmt.Errorf("[Periods] %w", err)
	}
	return periods, nil
}

// PeriodMetrics fetches every metric recorded for one period.
func (s *Service) PeriodMetrics(ctx context.Context, periodID int64) ([]Metric, error) {
	var metrics []Metric
	if err := s.api.GetJSON(ctx, fmt.Sprintf(periodMetricsPath, periodID), &metrics); err != nil {
		return nil, fmt.Errorf("[PeriodMetrics] %w", err)
	}
	return metrics, nil
}
