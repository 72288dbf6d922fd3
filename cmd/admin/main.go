package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finsync/internal/domain/account"
	"finsync/internal/domain/openfinance"
	"finsync/internal/infrastructure/crypto"
	ofclient "finsync/internal/infrastructure/openfinance"
	"finsync/internal/infrastructure/postgres"
	"finsync/internal/shared/auth"
	"finsync/internal/shared/config"
	"finsync/internal/shared/identity"
	"finsync/internal/shared/keylock"
	"finsync/internal/shared/logger"
)

const usage = `finsync admin CLI - management commands for the finsync API

Usage:
  admin <command> [options]

Commands:
  migrate     Apply, roll back or inspect database migrations
  sync-item   Refresh accounts and sync transactions for one item
  sync-all    Sync every linked item
  token       Mint a bearer token for a user (development only)

Examples:
  admin migrate up
  admin migrate down --steps=1
  admin migrate version
  admin sync-item --item-id=Ed6bjNrDLJfGvZWwnkQlfxwoNz54B5C97ejBr
  admin sync-all --workers=8 --timeout=1h
  admin token --user-id=1 --ttl=1h
`

// errUsage signals that usage was printed for a bad invocation.
var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			logger.L.Error("command failed", slog.Any("error", err))
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errUsage
	}

	switch command := args[0]; command {
	case "migrate":
		return runMigrate(args[1:])
	case "sync-item":
		return runSyncItem(args[1:])
	case "sync-all":
		return runSyncAll(args[1:])
	case "token":
		return runToken(args[1:])
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprintf(out, "Unknown command: %s\n\n", command)
		fmt.Fprint(out, usage)
		return errUsage
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	return cfg, nil
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	steps := fs.Int("steps", 1, "Number of migrations to roll back (down only)")
	fs.Usage = func() {
		fmt.Println("Usage: admin migrate <up|down|version> [options]")
		fs.PrintDefaults()
	}

	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("missing migrate direction")
	}
	direction := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	switch direction {
	case "up":
		err = postgres.Migrate(db)
	case "down":
		err = postgres.MigrateDown(db, *steps)
	case "version":
	default:
		fs.Usage()
		return fmt.Errorf("unknown migrate direction %q", direction)
	}
	if err != nil {
		return err
	}

	version, dirty, err := postgres.MigrationVersion(db)
	if err != nil {
		return err
	}
	fmt.Printf("schema version %d (dirty=%t)\n", version, dirty)
	return nil
}

func runSyncItem(args []string) error {
	fs := flag.NewFlagSet("sync-item", flag.ExitOnError)
	itemID := fs.String("item-id", "", "Provider item ID to sync")
	timeout := fs.Duration("timeout", 10*time.Minute, "Timeout for the operation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *itemID == "" {
		fs.Usage()
		return fmt.Errorf("--item-id is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := newServices(cfg, cfg.Scheduler.WorkerCount)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	it, err := svc.items.GetByID(ctx, *itemID)
	if err != nil {
		return err
	}

	// Act as the item's owner
	result, err := svc.itemSync.SyncItem(identity.WithUserID(ctx, it.UserID), it.ID)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runSyncAll(args []string) error {
	fs := flag.NewFlagSet("sync-all", flag.ExitOnError)
	workers := fs.Int("workers", 4, "Number of items synced concurrently")
	timeout := fs.Duration("timeout", time.Hour, "Timeout for the operation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := newServices(cfg, *workers)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	results, err := svc.itemSync.SyncAllItems(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
			failed++
		}
		fmt.Printf("%-40s user=%-6d %-8s %s\n", r.ItemID, r.UserID, r.Duration.Round(time.Millisecond), status)
	}
	fmt.Printf("\n%d items, %d failed\n", len(results), failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d items failed to sync", failed, len(results))
	}
	return nil
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	userID := fs.Int64("user-id", 0, "User ID the token identifies")
	email := fs.String("email", "", "Optional email claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	token, err := auth.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer).WithTTL(*ttl).Generate(*userID, *email)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

type services struct {
	db       *postgres.DB
	items    *postgres.ItemRepository
	itemSync *openfinance.ItemSyncService
}

// newServices wires the sync stack the same way the API does. Advisory locks
// are always on so the CLI never races the API's scheduler.
func newServices(cfg *config.Config, workers int) (*services, error) {
	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	items := postgres.NewItemRepository(db, encryptor)
	accountService := account.NewService(postgres.NewAccountRepository(db), cfg.Sync.DefaultCurrency)
	locker := keylock.Chain{keylock.New(), postgres.NewAdvisoryLocker(db)}

	client := ofclient.NewClient(ofclient.Options{
		BaseURL:           cfg.Aggregator.BaseURL,
		ClientID:          cfg.Aggregator.ClientID,
		Secret:            cfg.Aggregator.Secret,
		Timeout:           cfg.Aggregator.Timeout,
		RequestsPerSecond: cfg.Aggregator.RequestsPerSecond,
		PageSize:          cfg.Aggregator.PageSize,
	})

	accountSync := openfinance.NewAccountSyncService(client, items, accountService, nil, cfg.Sync.InstitutionTTL)
	transactionSync := openfinance.NewTransactionSyncService(client, items, postgres.NewSyncStore(db), locker, nil, openfinance.TransactionSyncOptions{
		MaxPages:        cfg.Sync.MaxPages,
		DefaultCurrency: cfg.Sync.DefaultCurrency,
	})

	return &services{
		db:       db,
		items:    items,
		itemSync: openfinance.NewItemSyncService(items, accountSync, transactionSync, nil, workers),
	}, nil
}

func (s *services) Close() {
	s.db.Close()
}

func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
