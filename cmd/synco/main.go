package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/jrsteele09/synco-portal/auth"
	"github.com/jrsteele09/synco-portal/backend"
	"github.com/jrsteele09/synco-portal/gateway"
	"github.com/jrsteele09/synco-portal/internal/config"
	apperrors "github.com/jrsteele09/synco-portal/internal/errors"
	"github.com/jrsteele09/synco-portal/internal/metrics"
	"github.com/jrsteele09/synco-portal/messages"
	"github.com/jrsteele09/synco-portal/portal"
	"github.com/jrsteele09/synco-portal/server"
	"github.com/jrsteele09/synco-portal/sessions"
	"github.com/jrsteele09/synco-portal/share"
	"github.com/jrsteele09/synco-portal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `usage: synco [command]

commands:
  serve      restore the session and run the companion server (default)
  status     restore the session and print who is signed in
  login-url  print the interactive login URL
  token      print a valid access token, refreshing if needed
  logout     end the session and clear persisted credentials
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	command := "serve"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	if err := run(command); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("synco failed")
	}
}

// app holds the wired components
type app struct {
	config  config.Config
	store   *storage.SQLiteStore
	hub     *messages.Hub
	metrics *metrics.Metrics
	auth    *auth.Service
	portal  *portal.Client
	relay   *share.Relay
	intake  *share.Intake
}

func run(command string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(c)

	a, err := wire(c)
	if err != nil {
		return err
	}
	defer a.store.Close()

	ctx := context.Background()
	switch command {
	case "serve":
		return a.serve(ctx)
	case "status":
		return a.status(ctx)
	case "login-url":
		fmt.Println(a.auth.LoginURL(false))
		return nil
	case "token":
		return a.token(ctx)
	case "logout":
		return a.auth.Logout(ctx)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func loadConfig() (config.Config, error) {
	if path := os.Getenv(config.ConfigFileEnvVar); path != "" {
		return config.NewFromFile(path)
	}
	return config.New(), nil
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func wire(c config.Config) (*app, error) {
	store, err := storage.NewSQLiteStore(filepath.Join(c.GetDataFolder(), "synco.db"))
	if err != nil {
		return nil, err
	}

	client, err := backend.New(c.GetAPIBaseURL(),
		backend.WithTimeout(c.GetHTTPTimeout()),
		backend.WithSessionCookieNames(c.GetSessionCookieNames()...),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	a := &app{
		config:  c,
		store:   store,
		hub:     messages.NewHub(),
		metrics: metrics.New(),
	}

	a.auth, err = auth.NewService(auth.Dependencies{
		Backend: client,
		Store:   sessions.NewStore(),
		Durable: store,
	},
		auth.WithCheckCooldown(c.GetSessionCheckCooldown()),
		auth.WithTokenCooldown(c.GetTokenRefreshCooldown()),
		auth.WithPublisher(a.hub),
		auth.WithMetrics(a.metrics),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	gw, err := gateway.New(client, a.auth, gateway.WithMetrics(a.metrics))
	if err != nil {
		store.Close()
		return nil, err
	}
	a.portal = portal.New(gw)

	a.relay = share.NewRelay(store,
		share.WithNotifier(a.hub),
		share.WithPaymentRoute(c.GetSharePaymentRoute()),
		share.WithMaxUploadBytes(c.GetShareMaxUploadBytes()),
		share.WithMetrics(a.metrics),
	)
	a.intake = share.NewIntake(store, storage.NewTabStore())
	return a, nil
}

func (a *app) initialize(ctx context.Context) auth.StartupResult {
	var location *url.URL
	if public := a.config.GetPublicURL(); public != "" {
		location, _ = url.Parse(public)
	}
	result, err := a.auth.Initialize(ctx, location)
	if err != nil {
		log.Warn().Err(err).Str("stage", string(result.Stage)).Msg("session not restored")
	}
	return result
}

func (a *app) serve(ctx context.Context) error {
	displayAppname(a.config.GetAppName())

	result := a.initialize(ctx)
	log.Info().
		Bool("authenticated", result.Authenticated).
		Str("stage", string(result.Stage)).
		Msg("startup complete")

	handler, err := server.New(a.config, server.Dependencies{
		Auth:    a.auth,
		Portal:  a.portal,
		Relay:   a.relay,
		Intake:  a.intake,
		Hub:     a.hub,
		Metrics: a.metrics,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: a.config.GetPort(), Handler: handler}
	errs := make(chan error, 1)
	go func() {
		errs <- listenAndServe(srv)
	}()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func (a *app) status(ctx context.Context) error {
	result := a.initialize(ctx)
	if !result.Authenticated {
		color.Yellow("Not signed in (%s)", result.Stage)
		fmt.Println("Login:", result.LoginURL)
		return nil
	}
	user := a.auth.Store().User()
	color.Green("Signed in as %s", user.Email)
	fmt.Println("Roles:", user.Roles)
	return nil
}

func (a *app) token(ctx context.Context) error {
	a.initialize(ctx)
	tok, err := a.auth.TokenSource(ctx).Token()
	if errors.Is(err, apperrors.ErrSessionNotFound) {
		return errors.New("not signed in")
	}
	if err != nil {
		return err
	}
	fmt.Println(tok.AccessToken)
	if !tok.Expiry.IsZero() {
		color.New(color.FgHiBlack).Fprintf(os.Stderr, "expires %s\n", tok.Expiry.Local().Format(time.RFC1123))
	}
	return nil
}

func listenAndServe(srv *http.Server) error {
	log.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
