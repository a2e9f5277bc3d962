package payment

import "encoding/json"

const (
	schoolPaySyncPath  = "/AndroidRS/SyncSchoolTransactions"
	schoolPayRangePath = "/AndroidRS/SchoolRangeTransactions"
)

// schoolPaySyncResponse is the body of both sync endpoints. Records are kept
// raw so the verbatim JSON can be stored alongside the decoded fields.
type schoolPaySyncResponse struct {
	ReturnCode               int               `json:"returnCode"`
	ReturnMessage            string            `json:"returnMessage"`
	Transactions             []json.RawMessage `json:"transactions"`
	SupplementaryFeePayments []json.RawMessage `json:"supplementaryFeePayments"`
}
