package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"telegram-phone-checker/internal/api"
	"telegram-phone-checker/internal/app"
	"telegram-phone-checker/internal/logging"
)

var (
	addr    string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run the phone checker API locally",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve every endpoint on one HTTP listener",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", ":3000", "listen address")
	serveCmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadEnvFile(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, logging.FormatText)
	if err != nil {
		return err
	}

	router := newRouter(ctx, a)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.WithField("addr", addr).Info("Dev server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Logger.Info("Shutting down dev server")
	return server.Shutdown(shutdownCtx)
}

func newRouter(ctx context.Context, a *app.App) *mux.Router {
	router := mux.NewRouter()
	methods := []string{http.MethodGet, http.MethodPost, http.MethodOptions}

	lock := build(a.Logger, "lock-system", a.LockHandler)
	routes := map[string]api.Handler{
		"/api/check-phone":   build(a.Logger, "check-phone", a.CheckPhoneHandler),
		"/api/get-status":    build(a.Logger, "get-status", a.StatusHandler),
		"/api/write-sheets":  build(a.Logger, "write-sheets", func() (api.Handler, error) { return a.SheetsHandler(ctx) }),
		"/api/lock-system":   lock,
		"/api/unlock-system": lock,
	}

	for path, handler := range routes {
		router.Handle(path, api.HTTPHandler(handler, a.Logger)).Methods(methods...)
	}
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.Logger.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Warn("No route")
		http.Error(w, "not found", http.StatusNotFound)
	})

	return router
}

// build creates a handler, falling back to a 503 stub when its backing service is not configured
func build(logger logrus.FieldLogger, name string, create func() (api.Handler, error)) api.Handler {
	handler, err := create()
	if err != nil {
		logger.WithError(err).Warnf("%s disabled", name)
		return api.UnavailableHandler(fmt.Sprintf("%s is not configured: %v", name, err))
	}
	return handler
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
