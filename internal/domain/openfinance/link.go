package openfinance

import (
	"context"
	"fmt"

	"finsync/internal/domain/item"
	ofclient "finsync/internal/infrastructure/openfinance"
	"finsync/internal/shared/identity"
	"finsync/internal/shared/logger"
)

// LinkResult is returned after a bank link completes.
type LinkResult struct {
	Item     *item.Item         `json:"item"`
	Accounts *AccountSyncResult `json:"accounts"`
	Message  string             `json:"message"`
}

// ItemLinkService turns a link-widget public token into a stored item with its accounts.
type ItemLinkService struct {
	client   ofclient.ClientInterface
	items    item.Repository
	accounts *AccountSyncService
	identity identity.Resolver
}

func NewItemLinkService(client ofclient.ClientInterface, items item.Repository, accounts *AccountSyncService, resolver identity.Resolver) *ItemLinkService {
	if resolver == nil {
		resolver = identity.ContextResolver{}
	}
	return &ItemLinkService{client: client, items: items, accounts: accounts, identity: resolver}
}

// LinkItem exchanges publicToken, stores the new item and loads its accounts.
// Transactions are left to the first sync so the cursor starts empty.
func (s *ItemLinkService) LinkItem(ctx context.Context, publicToken string) (*LinkResult, error) {
	userID, err := s.identity.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	exchange, err := s.client.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, &UpstreamFetchError{Stage: StageTokenExchange, Err: err}
	}

	snapshot, err := s.client.FetchAccountSnapshot(ctx, exchange.AccessToken)
	if err != nil {
		return nil, &UpstreamFetchError{Stage: StageAccountSnapshot, Err: err}
	}

	params := item.CreateParams{
		ID:              exchange.ItemID,
		UserID:          userID,
		AccessToken:     exchange.AccessToken,
		InstitutionName: UnknownInstitution,
	}
	if id := snapshot.Item.InstitutionID; id != nil {
		params.InstitutionID = *id
	}
	if name := snapshot.Item.InstitutionName; name != nil && *name != "" {
		params.InstitutionName = *name
	}
	if err := params.Validate(); err != nil {
		return nil, &StorageWriteError{Step: StepItemCreate, Err: err}
	}

	created, err := s.items.Create(ctx, params)
	if err != nil {
		return nil, &StorageWriteError{Step: StepItemCreate, Err: err}
	}
	s.accounts.forgetInstitution(created.ID)

	// Snapshot accounts may report the exchanged item ID only on the item block.
	snapshot.Item.ItemID = created.ID
	accounts, err := s.accounts.storeSnapshot(ctx, userID, snapshot, created.InstitutionName)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("linked item", "item_id", created.ID, "user_id", userID, "institution", created.InstitutionName)

	return &LinkResult{
		Item:     created,
		Accounts: accounts,
		Message:  fmt.Sprintf("Linked %s with %d accounts", created.InstitutionName, accounts.AccountsFound),
	}, nil
}
