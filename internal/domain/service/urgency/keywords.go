package urgency

import "strings"

// defaultKeywords — словари маркеров срочности по языкам площадок.
// Порядок локалей и слов фиксирован: от него зависит порядок
// ключевых слов в Reason.
var defaultKeywords = map[string][]string{ //nolint:gochecknoglobals
	"ru": {
		"срочно", "срочная продажа", "торг", "торг уместен",
		"нужны деньги", "переезд", "в связи с отъездом",
		"быстрая продажа", "сегодня", "завтра",
	},
	"en": {
		"urgent", "urgently", "quick sale", "must sell",
		"negotiable", "moving", "relocating", "asap",
	},
	"am": {"շտապ", "անհապաղ"},
	"ge": {"სასწრაფოდ"},
}

var localeOrder = []string{"ru", "en", "am", "ge"} //nolint:gochecknoglobals

// ContainsKeyword — быстрая проверка текста на маркеры срочности без
// компиляции паттернов. Скрейперы размечают ей карточки ещё до анализа.
func ContainsKeyword(text string) bool {
	lower := strings.ToLower(text)

	for _, locale := range localeOrder {
		for _, kw := range defaultKeywords[locale] {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}

	return strings.Contains(text, "!!!") || strings.Count(text, "!") > 2
}
