package main

import (
	"finsync/internal/domain/account"
	"finsync/internal/domain/openfinance"
	"finsync/internal/infrastructure/crypto"
	ofclient "finsync/internal/infrastructure/openfinance"
	"finsync/internal/infrastructure/postgres"
	httphandlers "finsync/internal/interfaces/http"
	"finsync/internal/shared/auth"
	"finsync/internal/shared/config"
	"finsync/internal/shared/keylock"
	"finsync/internal/shared/logger"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	ItemHandler        *httphandlers.ItemHandler
	AccountHandler     *httphandlers.AccountHandler
	TransactionHandler *httphandlers.TransactionHandler
	HealthHandler      *httphandlers.HealthHandler

	// Auth
	JWT *auth.JWT

	// Sync services (for scheduler and listener)
	ItemSyncService *openfinance.ItemSyncService

	// Repositories (for scheduler job provider)
	ItemRepo *postgres.ItemRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, err
	}
	logger.L.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.DBName)

	if err := postgres.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Repositories
	itemRepo := postgres.NewItemRepository(db, encryptor)
	accountRepo := postgres.NewAccountRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	syncStore := postgres.NewSyncStore(db)

	// Per-item serialization: in-process first, then across API and admin processes.
	var locker keylock.Locker = keylock.New()
	if cfg.Sync.AdvisoryLocks {
		locker = keylock.Chain{locker, postgres.NewAdvisoryLocker(db)}
	}

	// Domain services
	accountService := account.NewService(accountRepo, cfg.Sync.DefaultCurrency)

	client := ofclient.NewClient(ofclient.Options{
		BaseURL:           cfg.Aggregator.BaseURL,
		ClientID:          cfg.Aggregator.ClientID,
		Secret:            cfg.Aggregator.Secret,
		Timeout:           cfg.Aggregator.Timeout,
		RequestsPerSecond: cfg.Aggregator.RequestsPerSecond,
		PageSize:          cfg.Aggregator.PageSize,
	})

	accountSyncService := openfinance.NewAccountSyncService(client, itemRepo, accountService, nil, cfg.Sync.InstitutionTTL)
	transactionSyncService := openfinance.NewTransactionSyncService(client, itemRepo, syncStore, locker, nil, openfinance.TransactionSyncOptions{
		MaxPages:        cfg.Sync.MaxPages,
		DefaultCurrency: cfg.Sync.DefaultCurrency,
	})
	linkService := openfinance.NewItemLinkService(client, itemRepo, accountSyncService, nil)
	itemSyncService := openfinance.NewItemSyncService(itemRepo, accountSyncService, transactionSyncService, nil, cfg.Scheduler.WorkerCount)

	return &Dependencies{
		DB:                 db,
		ItemHandler:        httphandlers.NewItemHandler(itemRepo, linkService, transactionSyncService, accountSyncService, cfg.Sync.Timeout),
		AccountHandler:     httphandlers.NewAccountHandler(accountService),
		TransactionHandler: httphandlers.NewTransactionHandler(transactionRepo, accountService),
		HealthHandler:      httphandlers.NewHealthHandler(db),
		JWT:                auth.NewJWT(cfg.JWT.Secret, cfg.JWT.Issuer),
		ItemSyncService:    itemSyncService,
		ItemRepo:           itemRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
