// Command ccsession runs a headless session lifecycle against a Command
// Center backend: probe, token consumption, authentication check, permission
// fetch, logout. Useful for verifying a deployment without a browser.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/secure-command-center/go-client/access"
	"github.com/secure-command-center/go-client/authn"
	"github.com/secure-command-center/go-client/dashboard"
	"github.com/secure-command-center/go-client/gateway"
	"github.com/secure-command-center/go-client/internal/config"
	"github.com/secure-command-center/go-client/platform/platformfakes"
	"github.com/secure-command-center/go-client/session"
	"github.com/secure-command-center/go-client/sessionstate"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("session cycle failed")
	}
}

func run() error {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	hostname := flag.String("hostname", "localhost", "hostname used to pick the backend environment")
	callbackURL := flag.String("callback-url", "", "redirect URL carrying jwt_access/jwt_refresh to consume")
	accessToken := flag.String("access-token", os.Getenv("CC_ACCESS_TOKEN"), "seed access token")
	refreshToken := flag.String("refresh-token", os.Getenv("CC_REFRESH_TOKEN"), "seed refresh token")
	flag.Parse()

	cfg := config.New(*hostname)
	displayAppname(cfg.AppName())
	log.Info().Str("api", cfg.APIBaseURL()).Bool("production", cfg.IsProduction()).Msg("backend selected")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := probeBackend(ctx, cfg.AuthBaseURL()); err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}

	// A headless run is a single in-memory tab.
	tab := platformfakes.NewFakeOrigin().NewTab(pageURL(*callbackURL))
	store := session.NewStore(tab.Storage)
	if *accessToken != "" {
		store.StoreTokens(session.TokenPair{Access: *accessToken, Refresh: *refreshToken})
	}

	api, err := gateway.NewClient(cfg.APIBaseURL(), store, tab.Nav,
		gateway.WithProactiveRefresh(30*time.Second))
	if err != nil {
		return err
	}
	authService, err := authn.NewService(cfg, store, api, tab.Nav, tab.Storage)
	if err != nil {
		return err
	}
	accessService, err := access.NewService(api)
	if err != nil {
		return err
	}
	manager, err := sessionstate.NewManager(authService, accessService, store, tab.Nav, tab.Bus())
	if err != nil {
		return err
	}
	defer manager.Close()

	manager.CheckAuthStatus(ctx)
	state := manager.State()
	log.Info().
		Bool("authenticated", state.IsAuthenticated).
		Bool("authorized", state.IsAuthorized).
		Str("error", state.Err).
		Msg("session state resolved")

	if !state.IsAuthenticated {
		log.Info().Str("login_url", authService.LoginURL(authn.ProviderAzureAD)).
			Msg("no session, authenticate via the login URL and re-run with the redirect URL")
		return nil
	}

	log.Info().Str("username", state.User.Username).Str("email", state.User.Email).Msg("authenticated")
	for _, view := range state.AllowedViews {
		log.Info().Str("view", string(view)).Msg("view granted")
	}

	if state.IsAuthorized {
		reportData(ctx, api)
	}

	manager.Logout(ctx)
	log.Info().Msg("session ended")
	return nil
}

// probeBackend checks reachability with retries before starting the cycle.
func probeBackend(ctx context.Context, baseURL string) error {
	retryClient, err := retry.NewBackgroundClient(
		retry.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	)
	if err != nil {
		return fmt.Errorf("[probeBackend] %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, baseURL+"/auth/csrf/", nil)
	if err != nil {
		return fmt.Errorf("[probeBackend] %w", err)
	}
	resp, err := retryClient.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("[probeBackend] %w", err)
	}
	defer resp.Body.Close()
	log.Debug().Int("status", resp.StatusCode).Msg("backend probe answered")
	return nil
}

func reportData(ctx context.Context, api *gateway.Client) {
	reports, err := dashboard.NewService(api)
	if err != nil {
		log.Warn().Err(err).Msg("dashboard service unavailable")
		return
	}

	companies, err := reports.Companies(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("company catalogue fetch failed")
	} else {
		log.Info().Int("companies", len(companies)).Msg("company catalogue fetched")
	}

	periods, err := reports.Periods(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("period fetch failed")
		return
	}
	for _, period := range periods {
		metrics, err := reports.PeriodMetrics(ctx, period.ID)
		if err != nil {
			log.Warn().Err(err).Str("period", period.Name).Msg("metric fetch failed")
			continue
		}
		log.Info().Str("period", period.Name).Int("metrics", len(metrics)).Msg("period metrics fetched")
	}
}

func pageURL(callbackURL string) string {
	if callbackURL != "" {
		return callbackURL
	}
	return "http://localhost:3000/"
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
