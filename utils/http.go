package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared client for outbound service calls
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
