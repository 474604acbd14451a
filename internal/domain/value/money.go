package value

import "strconv"

// FormatUSD форматирует сумму с разделителями тысяч без знака валюты:
// 12500.4 → "12,500". Используется в текстах вердиктов и уведомлений.
func FormatUSD(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatFloat(amount, 'f', 0, 64)

	n := len(digits)
	if n <= 3 {
		return sign + digits
	}

	grouped := make([]byte, 0, n+(n-1)/3)
	for i, d := range []byte(digits) {
		if i > 0 && (n-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, d)
	}

	return sign + string(grouped)
}
