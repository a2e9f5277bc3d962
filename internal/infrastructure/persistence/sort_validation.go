package persistence

import (
	"strings"

	"gorm.io/gorm/clause"
)

const defaultLedgerSortColumn = "created_at"

// ledgerSortColumns are the order_by values the ledger listing accepts.
// Anything else is never interpolated into SQL.
var ledgerSortColumns = map[string]bool{
	"created_at":              true,
	"payment_timestamp":       true,
	"amount":                  true,
	"external_receipt_number": true,
	"reconciliation_status":   true,
}

// LedgerOrder builds the ORDER BY for a ledger page. Unknown columns fall
// back to created_at and any direction other than asc sorts descending.
// id follows in the same direction so equal keys page deterministically.
func LedgerOrder(orderBy, orderDir string) clause.OrderBy {
	column := strings.TrimSpace(orderBy)
	if !ledgerSortColumns[column] {
		column = defaultLedgerSortColumn
	}
	desc := !strings.EqualFold(strings.TrimSpace(orderDir), "asc")

	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: column}, Desc: desc},
		{Column: clause.Column{Name: "id"}, Desc: desc},
	}}
}
