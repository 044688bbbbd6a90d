package response

const (
	CodeOK               = 0
	CodeRedirectRequired = 303
	CodeBadRequest       = 400
	CodeUnauthorized     = 401
	CodePaymentFailed    = 402
	CodeForbidden        = 403
	CodeNotFound         = 404
	CodeConflict         = 409
	CodeTooManyRequests  = 429
	CodeInternal         = 500
	CodeBadGateway       = 502
	CodeGatewayTimeout   = 504
)
