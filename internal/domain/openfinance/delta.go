package openfinance

import (
	"fmt"

	"finsync/internal/domain/transaction"
	ofclient "finsync/internal/infrastructure/openfinance"
)

// deltaAccumulator folds pages of a transaction delta in fetch order.
// A later record for the same ID replaces an earlier one; removal wins over any upsert.
type deltaAccumulator struct {
	userID          int64
	defaultCurrency string

	upserts      map[string]transaction.UpsertParams
	order        []string
	removed      map[string]struct{}
	removedOrder []string

	added    int
	modified int
}

func newDeltaAccumulator(userID int64, defaultCurrency string) *deltaAccumulator {
	return &deltaAccumulator{
		userID:          userID,
		defaultCurrency: defaultCurrency,
		upserts:         make(map[string]transaction.UpsertParams),
		removed:         make(map[string]struct{}),
	}
}

func (a *deltaAccumulator) addPage(page *ofclient.TransactionDelta) error {
	for i := range page.Added {
		if err := a.put(&page.Added[i]); err != nil {
			return err
		}
	}
	a.added += len(page.Added)

	for i := range page.Modified {
		if err := a.put(&page.Modified[i]); err != nil {
			return err
		}
	}
	a.modified += len(page.Modified)

	for _, r := range page.Removed {
		if r.TransactionID == "" {
			continue
		}
		if _, seen := a.removed[r.TransactionID]; seen {
			continue
		}
		a.removed[r.TransactionID] = struct{}{}
		a.removedOrder = append(a.removedOrder, r.TransactionID)
	}
	return nil
}

func (a *deltaAccumulator) put(tx *ofclient.Transaction) error {
	params, err := a.toUpsertParams(tx)
	if err != nil {
		return err
	}
	if _, seen := a.upserts[params.ID]; !seen {
		a.order = append(a.order, params.ID)
	}
	a.upserts[params.ID] = params
	return nil
}

// Upserts returns the merged upsert set in first-seen order, minus anything removed.
func (a *deltaAccumulator) Upserts() []transaction.UpsertParams {
	out := make([]transaction.UpsertParams, 0, len(a.order))
	for _, id := range a.order {
		if _, gone := a.removed[id]; gone {
			continue
		}
		out = append(out, a.upserts[id])
	}
	return out
}

// RemovedIDs returns the de-duplicated removed set in first-seen order.
func (a *deltaAccumulator) RemovedIDs() []string {
	return a.removedOrder
}

func (a *deltaAccumulator) toUpsertParams(tx *ofclient.Transaction) (transaction.UpsertParams, error) {
	if tx.TransactionID == "" {
		return transaction.UpsertParams{}, fmt.Errorf("transaction without transaction_id")
	}

	postedAt, err := tx.GetPostedAt()
	if err != nil {
		return transaction.UpsertParams{}, fmt.Errorf("transaction %s: %w", tx.TransactionID, err)
	}
	authorizedAt, err := tx.GetAuthorizedAt()
	if err != nil {
		return transaction.UpsertParams{}, fmt.Errorf("transaction %s: %w", tx.TransactionID, err)
	}

	currency := tx.Currency()
	if currency == "" {
		currency = a.defaultCurrency
	}

	params := transaction.UpsertParams{
		ID:             tx.TransactionID,
		AccountID:      tx.AccountID,
		UserID:         a.userID,
		Amount:         tx.Amount,
		AuthorizedAt:   authorizedAt,
		PostedAt:       postedAt,
		Name:           tx.Name,
		MerchantName:   tx.MerchantName,
		PaymentChannel: tx.PaymentChannel,
		Currency:       currency,
		Pending:        tx.Pending,
	}
	if pfc := tx.PersonalFinanceCategory; pfc != nil {
		if pfc.Primary != "" {
			params.CategoryPrimary = &pfc.Primary
		}
		if pfc.Detailed != "" {
			params.CategoryDetailed = &pfc.Detailed
		}
	}
	return params, nil
}
