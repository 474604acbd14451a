package entity

// PriceAnalysis — вердикт анализатора цены.
type PriceAnalysis struct {
	ListingID    int64
	CurrentPrice float64

	// Сравнение с рынком
	MarketAverage    *float64
	Percentile20     *float64
	DeviationPercent *float64

	// Вердикт
	IsGoodDeal    bool
	IsBelowMarket bool
	Confidence    float64 // 0..1, зависит от размера выборки

	Reason string
}

// UrgencyAnalysis — вердикт детектора срочности.
type UrgencyAnalysis struct {
	ListingID int64
	IsUrgent  bool

	// Источники сигнала
	HasUrgentKeywords bool
	HasPriceDrop      bool
	PriceDropPercent  *float64

	DetectedKeywords []string
	Score            float64 // 0..1
	Reason           string
}
