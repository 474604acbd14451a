package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"
	Forbidden           failure.ErrorCode = "Forbidden"

	// Листинги и история цен
	ListingNotFound   failure.ErrorCode = "ListingNotFound"
	InvalidListingID  failure.ErrorCode = "InvalidListingID"
	InvalidPrice      failure.ErrorCode = "InvalidPrice"
	DuplicateListing  failure.ErrorCode = "DuplicateListing"
	HistoryNotFound   failure.ErrorCode = "HistoryNotFound"
	InvalidSource     failure.ErrorCode = "InvalidSource"
	InvalidReason     failure.ErrorCode = "InvalidReason"
	InvalidSearchSpec failure.ErrorCode = "InvalidSearchSpec"

	// Прокси и сеть
	ProxyPoolEmpty     failure.ErrorCode = "ProxyPoolEmpty"
	ProxySourceFailure failure.ErrorCode = "ProxySourceFailure"
	FetchFailed        failure.ErrorCode = "FetchFailed"
	ParseFailed        failure.ErrorCode = "ParseFailed"

	// Уведомления
	NotificationFailed failure.ErrorCode = "NotificationFailed"
)
