package domain

import "time"

// Stream names
const (
	StreamDrillDownEvents = "stream:drilldown:events"
	StreamLeafSelected    = "stream:drilldown:leaf"
	StreamLeafReport      = "stream:drilldown:leaf:report"
)

// StreamMessage is a raw stream entry; Data holds the JSON payload.
type StreamMessage struct {
	ID   string
	Data string
}

type EventType string

const (
	EventLevelChanged EventType = "level_changed"
	EventLeafSelected EventType = "leaf_selected"
	EventLoadFailed   EventType = "load_failed"
)

// DrillDownEvent is emitted by a controller after a state change.
type DrillDownEvent struct {
	Type       EventType     `json:"type"`
	SessionID  string        `json:"session_id"`
	Level      AdminLevel    `json:"level"`
	Path       SelectionPath `json:"path"`
	Code       string        `json:"code,omitempty"`
	Feature    *GeoFeature   `json:"feature,omitempty"`
	Parent     *GeoFeature   `json:"parent,omitempty"`
	Error      string        `json:"error,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// LeafReport summarises a selected municipality against its province.
type LeafReport struct {
	SessionID          string    `json:"session_id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	ParentCode         string    `json:"parent_code"`
	Sales              float64   `json:"sales"`
	Stores             float64   `json:"stores"`
	Transactions       float64   `json:"transactions"`
	Growth             float64   `json:"growth"`
	ParentSalesShare   float64   `json:"parent_sales_share"`
	SalesPerStore      float64   `json:"sales_per_store"`
	AvgTransactionSize float64   `json:"avg_transaction_size"`
	GeneratedAt        time.Time `json:"generated_at"`
}
