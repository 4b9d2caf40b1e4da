package dto

// CreateSessionRequest opens a drill-down session.
type CreateSessionRequest struct {
	Metric string `json:"metric" validate:"omitempty,metric"`
}

// SelectRequest drills into code at the current level.
type SelectRequest struct {
	Code string `json:"code" validate:"required,max=64"`
	Wait bool   `json:"wait"`
}

// NavigateRequest moves to a coarser (or the current) level.
type NavigateRequest struct {
	Level string `json:"level" validate:"required,admin_level"`
	Wait  bool   `json:"wait"`
}

// WaitRequest is the body for operations whose only option is waiting.
type WaitRequest struct {
	Wait bool `json:"wait"`
}

type MetricRequest struct {
	Metric string `json:"metric" validate:"required,metric"`
}

// HoverRequest sets the hovered feature; an empty code clears it.
type HoverRequest struct {
	Code string `json:"code" validate:"max=64"`
}

// JumpRequest selects a resident feature at any level, e.g. a search hit.
type JumpRequest struct {
	Level string `json:"level" validate:"required,admin_level"`
	Code  string `json:"code" validate:"required,max=64"`
	Wait  bool   `json:"wait"`
}

type SearchRequest struct {
	Query string `query:"q" validate:"max=100"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

type LegendRequest struct {
	Steps int `query:"steps" validate:"omitempty,min=2,max=12"`
}

// GeoDataRequest addresses one scope of the configured geodata source.
type GeoDataRequest struct {
	Level  string `params:"level" validate:"required,admin_level"`
	Parent string `query:"parent" validate:"max=64"`
}
