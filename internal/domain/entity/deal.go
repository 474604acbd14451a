package entity

// Deal — объявление, прошедшее гейты оркестратора и ожидающее отправки.
type Deal struct {
	// Основная информация о лоте
	Listing *Listing

	// Вердикты анализаторов (почему мы решили уведомить)
	Price   PriceAnalysis
	Urgency UrgencyAnalysis

	// Контекст апсерта
	IsNew         bool
	PreviousPrice *float64

	Reason NotifyReason
}

// PriceDelta возвращает изменение цены против предыдущей, если она известна.
func (d *Deal) PriceDelta() (float64, bool) {
	if d.PreviousPrice == nil || *d.PreviousPrice == d.Listing.PriceUSD {
		return 0, false
	}
	return d.Listing.PriceUSD - *d.PreviousPrice, true
}
