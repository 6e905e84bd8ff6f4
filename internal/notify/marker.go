package notify

import (
	"context"
	"strconv"

	"github.com/parisxmas/OxiDB/OxiPortal/internal/store"
)

// Columns set on a submission row once its notification is delivered.
const (
	ColumnNotified = "notification_email_sent"
	ColumnSentAt   = "email_sent_at"
)

// StoreMarker flags rows through the table store.
type StoreMarker struct {
	Store *store.Store
}

func (m StoreMarker) MarkNotified(ctx context.Context, table string, id int64) error {
	sc, err := m.Store.Registry().Get(table)
	if err != nil {
		return err
	}
	values := map[string]any{}
	if sc.Has(ColumnNotified) {
		values[ColumnNotified] = int64(1)
	}
	if sc.Has(ColumnSentAt) {
		values[ColumnSentAt] = m.Store.Now()
	}
	if len(values) == 0 {
		return nil
	}
	_, err = m.Store.Update(ctx, table, strconv.FormatInt(id, 10), values)
	return err
}
