package models

// Requests for portfolio HTTP endpoints. Defined in domain for consistency and reuse.

type PortfolioRequest struct {
	Query    string  `query:"q" json:"q"`
	MinScore float64 `query:"min_score" json:"min_score" default:"0" validate:"gte=0,lte=100"`
	Limit    int     `query:"limit" json:"limit" default:"0" validate:"gte=0,lte=500"`
}

type AssetRequest struct {
	Symbol string `param:"symbol" json:"symbol" validate:"required,max=32"`
}

type ExportRequest struct {
	Format string `query:"format" json:"format" default:"json" validate:"oneof=json csv"`
}
