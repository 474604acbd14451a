package config

import "time"

// Scraping — расписание обхода площадок и фильтры поиска.
type Scraping struct {
	IntervalMinutes int `env:"SCRAPE_INTERVAL_MINUTES" envDefault:"25" validate:"gt=0"`
	RequestDelayMin int `env:"REQUEST_DELAY_MIN" envDefault:"5" validate:"gte=0"`
	RequestDelayMax int `env:"REQUEST_DELAY_MAX" envDefault:"15" validate:"gtefield=RequestDelayMin"`
	MaxPages        int `env:"SCRAPE_MAX_PAGES" envDefault:"3" validate:"gt=0"`

	MinYear     int `env:"MIN_YEAR" envDefault:"2020" validate:"gt=1900"`
	MaxPriceUSD int `env:"MAX_PRICE_USD" envDefault:"20000" validate:"gt=0"`
}

func (s Scraping) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// DelayMin и DelayMax задают границы случайной паузы между запросами.
func (s Scraping) DelayMin() time.Duration {
	return time.Duration(s.RequestDelayMin) * time.Second
}

func (s Scraping) DelayMax() time.Duration {
	return time.Duration(s.RequestDelayMax) * time.Second
}
