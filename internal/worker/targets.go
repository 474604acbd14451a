package worker

import "github.com/bidzhoyandavid/auto-bot/internal/scraper"

// AddTarget добавляет пару марка+модель в цели обхода (если её ещё нет)
func (h *DealHunter) AddTarget(target scraper.TargetCar) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, existing := range h.criteria.Targets {
		if existing == target {
			return
		}
	}

	h.criteria.Targets = append(h.criteria.Targets, target)
}

// RemoveTarget удаляет пару из целей обхода
func (h *DealHunter) RemoveTarget(target scraper.TargetCar) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, existing := range h.criteria.Targets {
		if existing == target {
			// Удаляем элемент, сохраняя порядок
			h.criteria.Targets = append(h.criteria.Targets[:i], h.criteria.Targets[i+1:]...)
			return
		}
	}
}

// Targets возвращает копию текущего списка целей
func (h *DealHunter) Targets() []scraper.TargetCar {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.criteria.Targets) == 0 {
		return nil
	}

	result := make([]scraper.TargetCar, len(h.criteria.Targets))
	copy(result, h.criteria.Targets)
	return result
}

// SetTargets заменяет весь список целей
func (h *DealHunter) SetTargets(targets []scraper.TargetCar) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(targets) == 0 {
		h.criteria.Targets = nil
		return
	}

	h.criteria.Targets = make([]scraper.TargetCar, len(targets))
	copy(h.criteria.Targets, targets)
}

// HasTarget проверяет, есть ли пара в списке целей
func (h *DealHunter) HasTarget(target scraper.TargetCar) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, existing := range h.criteria.Targets {
		if existing == target {
			return true
		}
	}
	return false
}
