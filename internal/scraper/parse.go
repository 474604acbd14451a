package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/bidzhoyandavid/auto-bot/internal/domain/value"
)

// Число обязано начинаться с цифры, иначе первым совпадением может
// оказаться пробельный разрыв между словами. Неразрывный пробел включён
// явно: площадки используют его как разделитель тысяч, а \s в Go его
// не покрывает.
var (
	numberRe = regexp.MustCompile(`\d[\d,.\s\x{00A0}]*`)
	yearRe   = regexp.MustCompile(`(19|20)\d{2}`)
)

// makeAliases приводит разные написания марки к каноническому виду.
var makeAliases = map[string]string{ //nolint:gochecknoglobals
	"mercedes-benz": "Mercedes",
	"mercedes benz": "Mercedes",
	"mercedes":      "Mercedes",
	"bmw":           "BMW",
	"audi":          "Audi",
	"lexus":         "Lexus",
}

// NormalizeMake возвращает каноническое написание марки.
// Неизвестные марки приводятся к Title Case.
func NormalizeMake(make string) string {
	key := strings.ToLower(strings.TrimSpace(make))
	if canonical, ok := makeAliases[key]; ok {
		return canonical
	}
	return titleWords(key)
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// ParsePrice разбирает строку цены в (сумма, валюта).
// Возвращает (0, USD), если сумму извлечь не удалось.
func ParsePrice(raw string) (float64, value.Currency) {
	raw = strings.TrimSpace(raw)
	upper := strings.ToUpper(raw)

	currency := value.CurrencyUSD
	switch {
	case strings.Contains(raw, "֏") || strings.Contains(upper, "AMD"):
		currency = value.CurrencyAMD
	case strings.Contains(raw, "₾") || strings.Contains(upper, "GEL"):
		currency = value.CurrencyGEL
	}

	num, ok := firstNumber(raw)
	if !ok {
		return 0, value.CurrencyUSD
	}

	return num, currency
}

// ParseMileage разбирает пробег и возвращает его в километрах.
// Мили пересчитываются (×1.60934).
func ParseMileage(raw string) *int {
	raw = strings.ToLower(strings.TrimSpace(raw))

	num, ok := firstNumber(raw)
	if !ok {
		return nil
	}

	km := int(num)
	if strings.Contains(raw, "mi") && !strings.Contains(raw, "km") {
		km = int(num * 1.60934)
	}

	return &km
}

// ParseYear ищет в строке четырёхзначный год (19xx/20xx).
func ParseYear(raw string) *int {
	match := yearRe.FindString(raw)
	if match == "" {
		return nil
	}

	year, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}

	return &year
}

// firstNumber извлекает первое число из строки, терпя разделители
// тысяч (запятые и пробелы).
func firstNumber(raw string) (float64, bool) {
	match := numberRe.FindString(raw)
	if match == "" {
		return 0, false
	}

	cleaned := strings.NewReplacer(",", "", " ", "", " ", "").Replace(match)
	cleaned = strings.TrimSpace(cleaned)

	num, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}

	return num, true
}
