// serve.go
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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"shareform/config"
	"shareform/controllers"
	"shareform/logger"
	"shareform/services"
	"shareform/templates"
	"shareform/websocket"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay and serve the form page",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
			cfg.ApplicationURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
			cfg.WebsocketURL = fmt.Sprintf("ws://localhost:%d/ws", cfg.Port)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides PORT)")
}

// loadConfig reads the dotenv file and environment, then applies the
// persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	inherited := os.Getenv("LOG_DIR")
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if schema, _ := cmd.Flags().GetString("schema"); schema != "" {
		cfg.SchemaPath = schema
	}
	if _, err := reopenLogDir(inherited, cfg.LogDir); err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Env)
	return cfg, nil
}

// reopenLogDir points the logger at configured when it differs from the
// LOG_DIR the logger package already opened at start-up, which is the case
// when the directory came from the dotenv file.
func reopenLogDir(inherited, configured string) (bool, error) {
	if configured == "" || configured == inherited {
		return false, nil
	}
	if err := logger.InitLogger(configured); err != nil {
		return false, err
	}
	return true, nil
}

// serve runs the HTTP server and the relay hub until ctx is done.
func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	schema, err := services.LoadSchema(cfg.SchemaPath)
	if err != nil {
		return err
	}
	controllers.SetConfig(cfg.ApplicationURL, cfg.WebsocketURL, cfg.QuietPeriod)
	controllers.SetSchema(schema)
	controllers.SetSessionSecret(cfg.SessionSecret)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := websocket.NewMetrics(reg)
	if err != nil {
		return err
	}

	opts := []websocket.HubOption{
		websocket.WithEnvelopeValidation(cfg.StrictRelay),
		websocket.WithAllowedOrigins(cfg.AllowedOrigins),
		websocket.WithMetrics(metrics),
	}
	if cfg.CloudWatchEnabled {
		host, _ := os.Hostname()
		reporter, err := websocket.NewCloudWatchReporter(cfg.CloudWatchNamespace, host)
		if err != nil {
			return fmt.Errorf("cloudwatch: %w", err)
		}
		opts = append(opts, websocket.WithReporter(reporter))
		logger.Info.Printf("[serve] publishing relay connections to CloudWatch namespace %s", cfg.CloudWatchNamespace)
	}
	hub := websocket.NewHub(opts...)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	tmpl, err := templates.Parse()
	if err != nil {
		return err
	}
	var handler http.Handler = setupRouter(cfg, hub, reg, tmpl)
	if cfg.XRayEnabled {
		handler = traced(handler)
		logger.Info.Println("[serve] X-Ray tracing enabled")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info.Printf("[serve] listening on %s (relay at %s)", srv.Addr, cfg.WebsocketURL)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info.Println("[serve] shutting down")
		// the hub closes every relay connection; hijacked sockets are not
		// tracked by Shutdown
		stopHub()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn.Printf("[serve] graceful shutdown did not complete in %v: %v", shutdownTimeout, err)
			return srv.Close()
		}
		logger.Info.Println("[serve] stopped gracefully")
		return nil
	}
}
