// Package openfinance provides domain services for syncing financial data
package openfinance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"finsync/internal/domain/account"
	"finsync/internal/domain/item"
	ofclient "finsync/internal/infrastructure/openfinance"
	"finsync/internal/shared/identity"
	"finsync/internal/shared/logger"
)

// UnknownInstitution is attached to accounts when no institution name is known.
const UnknownInstitution = "Unknown Institution"

// AccountSyncResult contains the results of an account refresh
type AccountSyncResult struct {
	ItemID        string `json:"itemId"`
	AccountsFound int    `json:"accountsFound"`
	Created       int    `json:"created"`
	Updated       int    `json:"updated"`
	Message       string `json:"message"`
}

type institutionEntry struct {
	userID int64
	name   string
}

// AccountSyncService refreshes account snapshots from the aggregator
type AccountSyncService struct {
	client         ofclient.ClientInterface
	items          item.Repository
	accountService *account.Service
	identity       identity.Resolver
	institutions   *cache.Cache
}

// NewAccountSyncService creates a new account sync service. institutionTTL bounds how long
// an item's institution name is reused between refreshes.
func NewAccountSyncService(
	client ofclient.ClientInterface,
	items item.Repository,
	accountService *account.Service,
	resolver identity.Resolver,
	institutionTTL time.Duration,
) *AccountSyncService {
	if resolver == nil {
		resolver = identity.ContextResolver{}
	}
	if institutionTTL <= 0 {
		institutionTTL = 15 * time.Minute
	}
	return &AccountSyncService{
		client:         client,
		items:          items,
		accountService: accountService,
		identity:       resolver,
		institutions:   cache.New(institutionTTL, 2*institutionTTL),
	}
}

// FetchAndStoreAccounts fetches the current account snapshot for accessToken and upserts every account.
// The first failed upsert aborts the refresh; a retry overwrites whatever was written.
func (s *AccountSyncService) FetchAndStoreAccounts(ctx context.Context, accessToken string) (*AccountSyncResult, error) {
	userID, err := s.identity.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.client.FetchAccountSnapshot(ctx, accessToken)
	if err != nil {
		return nil, &UpstreamFetchError{Stage: StageAccountSnapshot, Err: err}
	}
	if snapshot.Item.ItemID == "" {
		return nil, &UpstreamFetchError{Stage: StageAccountSnapshot, Err: errors.New("snapshot has no item_id")}
	}

	institution, err := s.institutionName(ctx, userID, snapshot)
	if err != nil {
		return nil, err
	}

	return s.storeSnapshot(ctx, userID, snapshot, institution)
}

// institutionName prefers the name stored on the item, then the snapshot's, then UnknownInstitution.
func (s *AccountSyncService) institutionName(ctx context.Context, userID int64, snapshot *ofclient.AccountSnapshot) (string, error) {
	itemID := snapshot.Item.ItemID

	entry, ok := s.lookupInstitution(ctx, itemID)
	if ok && entry.userID != userID {
		return "", &SyncError{ItemID: itemID, Err: ErrForbidden}
	}
	if ok && entry.name != "" {
		return entry.name, nil
	}

	if name := snapshot.Item.InstitutionName; name != nil && *name != "" {
		return *name, nil
	}
	return UnknownInstitution, nil
}

func (s *AccountSyncService) lookupInstitution(ctx context.Context, itemID string) (institutionEntry, bool) {
	if cached, found := s.institutions.Get(itemID); found {
		return cached.(institutionEntry), true
	}

	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if !errors.Is(err, item.ErrItemNotFound) {
			logger.FromContext(ctx).Warn("institution lookup failed", "item_id", itemID, "error", err)
		}
		return institutionEntry{}, false
	}

	entry := institutionEntry{userID: it.UserID, name: it.InstitutionName}
	s.institutions.Set(itemID, entry, cache.DefaultExpiration)
	return entry, true
}

func (s *AccountSyncService) forgetInstitution(itemID string) {
	s.institutions.Delete(itemID)
}

func (s *AccountSyncService) storeSnapshot(ctx context.Context, userID int64, snapshot *ofclient.AccountSnapshot, institution string) (*AccountSyncResult, error) {
	log := logger.FromContext(ctx).With("item_id", snapshot.Item.ItemID, "user_id", userID)

	result := &AccountSyncResult{
		ItemID:        snapshot.Item.ItemID,
		AccountsFound: len(snapshot.Accounts),
	}

	for _, apiAccount := range snapshot.Accounts {
		exists, err := s.accountService.AccountExists(ctx, apiAccount.AccountID)
		if err != nil {
			accountTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
			return nil, &StorageWriteError{Step: StepAccountUpsert, Err: fmt.Errorf("failed to check account %s: %w", apiAccount.AccountID, err)}
		}

		params := account.UpsertParams{
			ID:               apiAccount.AccountID,
			ItemID:           snapshot.Item.ItemID,
			UserID:           userID,
			Name:             apiAccount.Name,
			OfficialName:     apiAccount.OfficialName,
			Mask:             apiAccount.Mask,
			Type:             apiAccount.Type,
			Subtype:          apiAccount.Subtype,
			AvailableBalance: apiAccount.Balances.Available,
			CurrentBalance:   apiAccount.Balances.Current,
			Currency:         apiAccount.Balances.Currency(),
			InstitutionName:  institution,
		}

		if _, err := s.accountService.UpsertAccount(ctx, params); err != nil {
			accountTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "error")))
			return nil, &StorageWriteError{Step: StepAccountUpsert, Err: fmt.Errorf("account %s: %w", apiAccount.AccountID, err)}
		}

		if exists {
			result.Updated++
			accountTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "updated")))
			log.Debug("updated account", "account_id", apiAccount.AccountID)
		} else {
			result.Created++
			accountTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "created")))
			log.Debug("created account", "account_id", apiAccount.AccountID)
		}
	}

	result.Message = fmt.Sprintf("Refreshed %d accounts for %s (%d created, %d updated)",
		result.AccountsFound, institution, result.Created, result.Updated)
	log.Info("account refresh complete", "found", result.AccountsFound, "created", result.Created, "updated", result.Updated)

	return result, nil
}
