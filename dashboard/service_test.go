package dashboard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/secure-command-center/go-client/dashboard"
	"github.com/secure-command-center/go-client/gateway"
	"github.com/secure-command-center/go-client/platform/platformfakes"
	"github.com/secure-command-center/go-client/session"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, handler http.Handler) *dashboard.Service {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := session.NewStore(platformfakes.NewFakeStorage())
	store.StoreTokens(session.TokenPair{Access: "access", Refresh: "refresh"})

	api, err := gateway.NewClient(server.URL, store, platformfakes.NewFakeNavigator("http://localhost:3000/"))
	require.NoError(t, err)

	service, err := dashboard.NewService(api)
	require.NoError(t, err)
	return service
}

func TestNewService_RequiresGateway(t *testing.T) {
	_, err := dashboard.NewService(nil)
	require.Error(t, err)
}

func TestCompanies(t *testing.T) {
	service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/companies/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"id":1,"name":"Acme Logistics","currency":"EUR","country":"ES"},
			{"id":2,"name":"Acme Retail","currency":"USD","country":"US"}]`))
	}))

	companies, err := service.Companies(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 2)
	require.Equal(t, "Acme Logistics", companies[0].Name)
}

func TestCompanyDetails(t *testing.T) {
	service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/companies/42/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":42,"name":"Acme Freight","currency":"GBP","country":"GB"}`))
	}))

	company, err := service.CompanyDetails(context.Background(), 42)
	require.NoError(t, err)
	require.EqualValues(t, 42, company.ID)
	require.Equal(t, "GBP", company.Currency)
}

func TestPeriodMetrics(t *testing.T) {
	service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/periods/":
			_, _ = w.Write([]byte(`[{"id":9,"name":"FY25 Q2","start_date":"2025-04-01","end_date":"2025-06-30","is_closed":true}]`))
		case "/metrics/period/9/":
			_, _ = w.Write([]byte(`[{"company_id":1,"name":"revenue","value":1250000.5,"unit":"EUR"}]`))
		default:
			http.NotFound(w, r)
		}
	}))

	periods, err := service.Periods(context.Background())
	require.NoError(t, err)
	require.Len(t, periods, 1)
	require.True(t, periods[0].IsClosed)

	metrics, err := service.PeriodMetrics(context.Background(), periods[0].ID)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	require.Equal(t, "revenue", metrics[0].Name)
	require.InDelta(t, 1250000.5, metrics[0].Value, 0.001)
}

func TestCompanies_SurfacesAPIError(t *testing.T) {
	service := newService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))

	_, err := service.Companies(context.Background())
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}
