// Package main runs the token operations server: a JSON HTTP API that
// creates, mints, and manages SPL tokens signed by a local keypair.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bjeschke/solanahub/internal/httpapi"
	"github.com/bjeschke/solanahub/internal/lifecycle"
	"github.com/bjeschke/solanahub/internal/observability"
	"github.com/bjeschke/solanahub/internal/pinata"
	"github.com/bjeschke/solanahub/internal/solana"
	"github.com/bjeschke/solanahub/internal/storage"
	chstore "github.com/bjeschke/solanahub/internal/storage/clickhouse"
	"github.com/bjeschke/solanahub/internal/storage/memory"
	"github.com/bjeschke/solanahub/internal/storage/migrations"
	pgstore "github.com/bjeschke/solanahub/internal/storage/postgres"
	"github.com/bjeschke/solanahub/internal/tokenops"
	"github.com/bjeschke/solanahub/internal/validate"
	"github.com/bjeschke/solanahub/internal/wallet"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", envOr("SOLANA_RPC_ENDPOINT", "https://api.devnet.solana.com"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional, enables push confirmations)")
	keypairPath := flag.String("keypair", envOr("SOLANA_KEYPAIR", "id.json"), "Path to the signing keypair file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, audit trail)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	listenAddr := flag.String("listen-addr", ":8080", "HTTP listen address")
	network := flag.String("network", envOr("SOLANA_NETWORK", "devnet"), "Cluster tag stored with token records")
	feeReceiver := flag.String("fee-receiver", os.Getenv("FEE_RECEIVER"), "Platform fee receiver address (defaults to the signing wallet)")
	feeLamports := flag.Uint64("fee-lamports", 0, "Platform fee in lamports (0 uses the default)")
	verbose := flag.Bool("verbose", false, "Verbose lifecycle logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	signer, err := wallet.FromFile(*keypairPath)
	if err != nil {
		logger.Fatalf("Failed to load keypair: %v", err)
	}
	logger.Printf("Signing as %s on %s", signer.PublicKey().ToBase58(), *network)

	receiver := signer.PublicKey()
	if *feeReceiver != "" {
		receiver, err = validate.ParseAddress(*feeReceiver)
		if err != nil {
			logger.Fatalf("Invalid fee receiver: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	chain := solana.NewHTTPClient(*rpcEndpoint)

	trackerOpts := []lifecycle.TrackerOption{}
	if *wsEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Printf("WebSocket connect failed, polling only: %v", err)
		} else {
			defer ws.Close()
			trackerOpts = append(trackerOpts, lifecycle.WithSubscriber(ws))
		}
	}

	builder := tokenops.NewBuilder(chain, tokenops.Config{
		FeeLamports: *feeLamports,
		FeeReceiver: receiver,
	})
	inspector := tokenops.NewInspector(chain, nil)

	publisher := pinata.NewClient(os.Getenv("PINATA_API_KEY"), os.Getenv("PINATA_SECRET_KEY"))

	svc := lifecycle.NewService(lifecycle.Options{
		Builder:   builder,
		Submitter: lifecycle.NewSubmitter(chain, signer, lifecycle.DefaultRetryPolicy()),
		Tracker:   lifecycle.NewTracker(chain, trackerOpts...),
		Publisher: publisher,
		Metadata:  inspector,
		Records:   stores.records,
		Lookups:   stores.lookups,
		Attempts:  stores.attempts,
		Network:   *network,
		Verbose:   *verbose,
	})

	api := httpapi.NewServer(svc, inspector, signer.PublicKey())

	httpServer := &http.Server{
		Addr:         *listenAddr,
		Handler:      api.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // operations block until finalized
	}

	// Uptime counter
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.DefaultMetrics.UptimeSeconds.Inc()
			}
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// serverStores holds the storage implementations behind the service.
type serverStores struct {
	records  storage.TokenRecordStore
	lookups  storage.MetadataLookupStore
	attempts storage.AttemptStore
}

// createStores builds the storage layer. The audit trail is optional: with
// no ClickHouse DSN the attempt store falls back to memory.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*serverStores, func(), error) {
	if useMemory {
		stores := &serverStores{
			records:  memory.NewTokenRecordStore(),
			lookups:  memory.NewMetadataLookupStore(),
			attempts: memory.NewAttemptStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	stores := &serverStores{
		records: pgstore.NewTokenRecordStore(pool),
		lookups: pgstore.NewMetadataLookupStore(pool),
	}

	var chConn *chstore.Conn
	if clickhouseDSN != "" {
		chConn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		stores.attempts = chstore.NewAttemptStore(chConn)
	} else {
		stores.attempts = memory.NewAttemptStore()
	}

	cleanup := func() {
		pool.Close()
		if chConn != nil {
			chConn.Close()
		}
	}
	return stores, cleanup, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
