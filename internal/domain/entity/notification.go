package entity

import "time"

// NotifyReason — причина отправки уведомления.
type NotifyReason string

const (
	ReasonNewListing NotifyReason = "new_listing"
	ReasonGoodPrice  NotifyReason = "good_price"
	ReasonUrgent     NotifyReason = "urgent"
	ReasonPriceDrop  NotifyReason = "price_drop"
)

func (r NotifyReason) Valid() bool {
	switch r {
	case ReasonNewListing, ReasonGoodPrice, ReasonUrgent, ReasonPriceDrop:
		return true
	}
	return false
}

// SentNotification — запись журнала отправленных уведомлений.
// Журнал только пополняется, записи не обновляются.
type SentNotification struct {
	ID        int64        `json:"id" db:"id"`
	ListingID int64        `json:"listing_id" db:"listing_id"`
	Reason    NotifyReason `json:"reason" db:"reason"`
	MessageID *int         `json:"message_id,omitempty" db:"message_id"`
	SentAt    time.Time    `json:"sent_at" db:"sent_at"`
}
