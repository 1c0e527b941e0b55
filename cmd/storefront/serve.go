package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/handlers"
	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/consul"
	"storefront/internal/orders"
	"storefront/internal/stores/kafka"
	"storefront/pkg/logkey"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the gRPC read API and the order status refresher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.StoreDriver, err)
	}
	defer store.Close()

	oc, err := orders.NewConf(orders.NewKVRepository(store), nil)
	if err != nil {
		return err
	}

	slog.Info("loading catalog", slog.Duration("Delay", cfg.CatalogLoadDelay))
	cat, err := catalog.LoadDefault(ctx, cfg.CatalogLoadDelay)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	keys, err := auth.NewKeys([]byte(cfg.JWTSecret))
	if err != nil {
		return err
	}
	users := auth.NewService(keys, cfg.TokenTTL)
	if err := seedUsers(users, cfg); err != nil {
		return err
	}

	var publisher checkout.OrderPublisher
	var events handlers.OrderEvents
	if len(cfg.KafkaBrokers) > 0 {
		k, err := kafka.NewConf(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer k.Close()
		if err := k.Ping(ctx); err != nil {
			slog.Warn("kafka not reachable yet, order events will retry", slog.String(logkey.ERROR, err.Error()))
		}
		publisher = k
		events = k
	}

	carts := cart.NewConf()
	co, err := checkout.NewConf(checkout.Deps{
		Carts:          carts,
		Orders:         oc,
		Serviceability: checkout.NewPincodeAllowList(cfg.PincodeCheckDelay),
		Payments:       newPaymentProcessor(cfg),
		Publisher:      publisher,
		PincodeTimeout: cfg.PincodeCheckTimeout,
	})
	if err != nil {
		return err
	}

	router := handlers.API(cfg.EndpointPrefix, handlers.Deps{
		Catalog:  cat,
		Carts:    carts,
		Checkout: co,
		Orders:   oc,
		Users:    users,
		Keys:     keys,

		Events:        events,
		WebhookSecret: cfg.StripeWebhookSecret,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(handlers.UnaryLogger()))
	handlers.RegisterCartItemService(grpcSrv, handlers.NewCartItemServiceHandler(carts, oc))
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.GRPCAddr, err)
	}

	if cfg.ConsulAddr != "" {
		deregister, err := registerWithConsul(cfg)
		if err != nil {
			lis.Close()
			return err
		}
		defer deregister()
	}

	refresher := orders.NewRefresher(oc, cfg.StatusRefreshInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server listening", slog.String("Addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("grpc server listening", slog.String("Addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return refresher.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newPaymentProcessor(cfg config.Config) checkout.PaymentProcessor {
	simulated := checkout.SimulatedProcessor{
		CODDelay:    cfg.PaymentDelayCOD,
		OnlineDelay: cfg.PaymentDelayOnline,
	}
	if cfg.PaymentDriver == config.PaymentStripe {
		return checkout.NewStripeProcessor(cfg.StripeKey, simulated)
	}
	return simulated
}

// seedUsers creates the configured admin and demo accounts under ids that
// survive restarts. An account without a password is skipped.
func seedUsers(users *auth.Service, cfg config.Config) error {
	seeds := []struct {
		username, password, email, role string
	}{
		{cfg.AdminUsername, cfg.AdminPassword, "admin@simpleshop.com", auth.RoleAdmin},
		{cfg.DemoUsername, cfg.DemoPassword, "demo@simpleshop.com", auth.RoleUser},
	}
	for _, s := range seeds {
		if s.password == "" {
			slog.Warn("no password configured, account not created", slog.String("Username", s.username), slog.String("Role", s.role))
			continue
		}
		if _, err := users.SeedUser(auth.NewUser{Username: s.username, Email: s.email, Password: s.password}, s.role); err != nil {
			return fmt.Errorf("seeding %s: %w", s.username, err)
		}
	}
	return nil
}

// registerWithConsul announces the HTTP and gRPC endpoints and returns a
// function that withdraws them.
func registerWithConsul(cfg config.Config) (func(), error) {
	client, err := consul.NewClient(cfg.ConsulAddr)
	if err != nil {
		return nil, err
	}
	host, _ := os.Hostname()

	httpID, err := consul.Register(client, consul.Registration{
		Name:      cfg.ServiceName,
		Addr:      cfg.HTTPAddr,
		Host:      host,
		Tags:      []string{"http"},
		HealthURL: healthURL(host, cfg.HTTPAddr),
	})
	if err != nil {
		return nil, err
	}
	grpcID, err := consul.Register(client, consul.Registration{
		Name: grpcServiceName(cfg.ServiceName),
		Addr: cfg.GRPCAddr,
		Host: host,
		Tags: []string{"grpc"},
	})
	if err != nil {
		deregisterAll(client, httpID)
		return nil, err
	}
	slog.Info("registered with consul", slog.String("HTTP", httpID), slog.String("GRPC", grpcID))
	return func() { deregisterAll(client, httpID, grpcID) }, nil
}

func deregisterAll(client *consulapi.Client, ids ...string) {
	for _, id := range ids {
		if err := consul.Deregister(client, id); err != nil {
			slog.Error("consul deregistration failed", slog.String("ServiceID", id), slog.String(logkey.ERROR, err.Error()))
		}
	}
}

func healthURL(host, addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return "http://" + net.JoinHostPort(host, port) + "/ping"
}
