package main

import (
	"net/http"
	"time"

	"github.com/wiresprite/wiresprite/internal/connectutil"
)

// adminClient returns an HTTP client configured for h2c, matching the
// admin server's listener (see bot.AdminServer.Run), with a bounded
// timeout suitable for one-shot CLI requests.
func adminClient() *http.Client {
	return &http.Client{
		Transport: connectutil.H2CClient.Transport,
		Timeout:   5 * time.Second,
	}
}
