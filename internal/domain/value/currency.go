package value

// Currency — валюта исходной цены объявления.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyAMD Currency = "AMD"
	CurrencyGEL Currency = "GEL"
)

// rateToUSD — приблизительные курсы, достаточные для ранжирования цен.
var rateToUSD = map[Currency]float64{
	CurrencyUSD: 1.0,
	CurrencyAMD: 0.0025,
	CurrencyGEL: 0.37,
}

func (c Currency) String() string {
	return string(c)
}

// ToUSD переводит сумму из валюты c в доллары.
// Неизвестная валюта трактуется как доллары.
func (c Currency) ToUSD(amount float64) float64 {
	rate, ok := rateToUSD[c]
	if !ok {
		rate = 1.0
	}
	return amount * rate
}
