// backend-go/internal/domain/models.go
package domain

import "time"

// TransactionType identifies how a stock transaction moves quantity.
type TransactionType string

const (
	TransactionIn       TransactionType = "IN"
	TransactionOut      TransactionType = "OUT"
	TransactionAdjust   TransactionType = "ADJUST"
	TransactionDisposal TransactionType = "DISPOSAL"
	TransactionReturn   TransactionType = "RETURN"
)

// CheckpointType identifies how a stock checkpoint was created.
type CheckpointType string

const (
	CheckpointAdjust     CheckpointType = "ADJUST"
	CheckpointDailyClose CheckpointType = "DAILY_CLOSE"
)

// Product represents a sellable item tracked by the stock ledger.
type Product struct {
	ID               int64     `json:"id" db:"id"`
	Code             string    `json:"code" db:"code"`
	Name             string    `json:"name" db:"name"`
	Category         string    `json:"category" db:"category"`
	Unit             string    `json:"unit" db:"unit"`
	CurrentStock     int       `json:"current_stock" db:"current_stock"`
	SafetyStock      int       `json:"safety_stock" db:"safety_stock"`
	LeadTimeDays     int       `json:"lead_time_days" db:"lead_time_days"`
	MOQ              int       `json:"moq" db:"moq"`
	PurchasePrice    float64   `json:"purchase_price" db:"purchase_price"`
	SalePrice        float64   `json:"sale_price" db:"sale_price"`
	Currency         string    `json:"currency" db:"currency"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	IsAutoCalculated bool      `json:"is_auto_calculated" db:"is_auto_calculated"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// StockState is the two-state machine a transaction lives in: either it still
// counts toward the product's on-hand stock, or it has been superseded by a
// checkpoint and is purely historical.
type StockState struct {
	AffectsCurrentStock bool   `json:"affects_current_stock" db:"affects_current_stock"`
	CheckpointID        *int64 `json:"checkpoint_id" db:"checkpoint_id"`
}

// CurrentState returns the state for a transaction that contributes to
// on-hand stock.
func CurrentState() StockState {
	return StockState{AffectsCurrentStock: true}
}

// HistoricalState returns the state for a transaction retired by checkpointID.
func HistoricalState(checkpointID int64) StockState {
	id := checkpointID
	return StockState{AffectsCurrentStock: false, CheckpointID: &id}
}

// IsCurrent reports whether the transaction still counts toward on-hand stock.
func (s StockState) IsCurrent() bool {
	return s.AffectsCurrentStock
}

// Transaction is an immutable-once-settled stock movement record.
// TransactionDate is business time (may be backdated) and is always UTC.
type Transaction struct {
	ID              int64           `json:"id" db:"id"`
	ProductCode     string          `json:"product_code" db:"product_code"`
	Type            TransactionType `json:"transaction_type" db:"transaction_type"`
	Quantity        int             `json:"quantity" db:"quantity"`
	PreviousStock   int             `json:"previous_stock" db:"previous_stock"`
	NewStock        int             `json:"new_stock" db:"new_stock"`
	TransactionDate time.Time       `json:"transaction_date" db:"transaction_date"`
	Memo            string          `json:"memo" db:"memo"`
	CreatedBy       string          `json:"created_by" db:"created_by"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	State           StockState      `json:"state"`
}

// Delta returns the signed contribution of this transaction to on-hand stock.
// ADJUST rows carry their delta as the difference of the snapshots because the
// recorded quantity is the user-entered signed correction.
func (t Transaction) Delta() int {
	switch t.Type {
	case TransactionIn, TransactionReturn:
		return t.Quantity
	case TransactionOut:
		return -t.Quantity
	case TransactionAdjust:
		return t.NewStock - t.PreviousStock
	default:
		return 0
	}
}

// StockCheckpoint asserts that a product's confirmed stock was exactly
// ConfirmedStock as of CheckpointDate. The most recent active checkpoint is
// the sole anchor for resolving current stock.
type StockCheckpoint struct {
	ID             int64          `json:"id" db:"id"`
	ProductCode    string         `json:"product_code" db:"product_code"`
	CheckpointDate time.Time      `json:"checkpoint_date" db:"checkpoint_date"`
	Type           CheckpointType `json:"checkpoint_type" db:"checkpoint_type"`
	ConfirmedStock int            `json:"confirmed_stock" db:"confirmed_stock"`
	Reason         string         `json:"reason" db:"reason"`
	CreatedBy      string         `json:"created_by" db:"created_by"`
	IsActive       bool           `json:"is_active" db:"is_active"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// DailyLedger is the per-product, per-day summary row written by the nightly
// close. Rows are regenerated wholesale, never patched.
type DailyLedger struct {
	ID             int64     `json:"id" db:"id"`
	ProductCode    string    `json:"product_code" db:"product_code"`
	LedgerDate     time.Time `json:"ledger_date" db:"ledger_date"`
	BeginningStock int       `json:"beginning_stock" db:"beginning_stock"`
	TotalInbound   int       `json:"total_inbound" db:"total_inbound"`
	TotalOutbound  int       `json:"total_outbound" db:"total_outbound"`
	Adjustments    int       `json:"adjustments" db:"adjustments"`
	EndingStock    int       `json:"ending_stock" db:"ending_stock"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ShipmentRecord is one historical outbound row from the shipment data source.
// The forecasting pipeline trains on these; the ledger never writes them.
type ShipmentRecord struct {
	ID          int64     `json:"id" db:"id"`
	ProductCode string    `json:"product_code" db:"product_code"`
	Quantity    int       `json:"quantity" db:"quantity"`
	ShippedAt   time.Time `json:"shipped_at" db:"shipped_at"`
	Source      string    `json:"source" db:"source"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ForecastResult is a persisted per-SKU forecast: the remainder-adjusted
// current month plus three forward months.
type ForecastResult struct {
	ID          int64     `json:"id" db:"id"`
	ProductCode string    `json:"product_code" db:"product_code"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
	Method      string    `json:"method" db:"method"`
	Confidence  string    `json:"confidence" db:"confidence"`
	MonthP0     float64   `json:"month_p0" db:"month_p0"`
	MonthP1     float64   `json:"month_p1" db:"month_p1"`
	MonthP2     float64   `json:"month_p2" db:"month_p2"`
	MonthP3     float64   `json:"month_p3" db:"month_p3"`
	FutureTrend string    `json:"future_trend" db:"future_trend"`
	RMSE        float64   `json:"rmse" db:"rmse"`
	MAE         float64   `json:"mae" db:"mae"`
	DataPoints  int       `json:"data_points" db:"data_points"`
}

// Predictions returns the four predicted months, current month first.
func (f ForecastResult) Predictions() [4]float64 {
	return [4]float64{f.MonthP0, f.MonthP1, f.MonthP2, f.MonthP3}
}

// ForwardMonths returns the three fully-forward months consumed by the
// reorder-point calculator.
func (f ForecastResult) ForwardMonths() [3]float64 {
	return [3]float64{f.MonthP1, f.MonthP2, f.MonthP3}
}

// ReorderSignal is the actionable output of the reorder-point calculator.
// DaysUntilSafetyStock is nil when the forecast expects no consumption.
type ReorderSignal struct {
	ProductCode          string      `json:"product_code"`
	AvgDailyConsumption  float64     `json:"avg_daily_consumption"`
	ReorderPoint         int         `json:"reorder_point"`
	DaysUntilSafetyStock *float64    `json:"days_until_safety_stock"`
	Urgency              Urgency     `json:"urgency"`
	RecommendedQty       int         `json:"recommended_qty"`
	DemandTrend          DemandTrend `json:"demand_trend"`
}

// DateValidation is the write-path preview: whether a transaction dated at a
// given time would still affect current stock.
type DateValidation struct {
	IsValid             bool   `json:"is_valid"`
	AffectsCurrentStock bool   `json:"affects_current_stock"`
	CheckpointID        *int64 `json:"checkpoint_id"`
}
