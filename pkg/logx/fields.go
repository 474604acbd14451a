package logx

const (
	FieldAppName         = "app-name"
	FieldAppVersion      = "app-version"
	FieldAttempt         = "attempt"
	FieldCycleID         = "cycle-id"
	FieldDurationMs      = "duration-ms"
	FieldError           = "error"
	FieldExternalID      = "external-id"
	FieldHTTPMethod      = "http-method"
	FieldHTTPRequest     = "http-request"
	FieldHTTPResponse    = "http-response"
	FieldIP              = "ip"
	FieldListingID       = "listing-id"
	FieldMake            = "make"
	FieldMessageID       = "message-id"
	FieldModel           = "model"
	FieldPage            = "page"
	FieldPoolSize        = "pool-size"
	FieldPriceUSD        = "price-usd"
	FieldProxy           = "proxy"
	FieldReason          = "reason"
	FieldRequestBody     = "request-body"
	FieldRequestID       = "request-id"
	FieldResponseBody    = "response-body"
	FieldResponseHeaders = "response-headers"
	FieldResponseStatus  = "response-status"
	FieldSource          = "source"
	FieldStack           = "stack"
	FieldTraceID         = "trace-id"
	FieldURL             = "url"
	FieldUserID          = "user-id"
)
