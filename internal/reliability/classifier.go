package reliability

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
//
// The relay never retries on its own; the classification is carried on
// provider errors so clients and metrics can tell transient failures apart
// from permanent ones.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
