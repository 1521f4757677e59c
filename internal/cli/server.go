package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/config"
	"quiz-sync-service/internal/polling"
	transport "quiz-sync-service/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz sync server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	st, err := openStores(ctx, cfg, reg)
	if err != nil {
		return err
	}
	defer st.Close()

	if st.remote != nil {
		// Provisioning also happens lazily; doing it here only surfaces problems early.
		if err := st.remote.EnsureSchema(ctx); err != nil {
			log.Printf("remote schema not ready, will retry on first use: %v", err)
		}
	}

	interval := config.TTLDuration(cfg.Polling.Interval, polling.DefaultInterval)
	lobby := polling.NewPoller(st.service, interval, func(s polling.Snapshot) {
		log.Printf("lobby %s: %d participant(s)", s.QuizID, len(s.Participants))
	})
	host := app.NewHostService(st.service, lobby, cfg.Server.PublicURL)
	defer host.Close()

	gin.SetMode(gin.ReleaseMode)
	handler := transport.NewHandler(st.service, host, app.NewJoinService(st.service))
	router := transport.NewRouter(handler, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting quiz sync service on :%s (remote=%v, local=%s)", finalPort, st.service.RemoteEnabled(), cfg.Local.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
