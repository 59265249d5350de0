package gateway

import (
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/homevolt/homevolt/pkg/common"
)

// Configured sets up a gateway client from flags.
func Configured() *Client {
	addr := lflag.RequiredString("gateway-addr", "Host (and optional port) of the Homevolt unit")
	https := lflag.Bool("gateway-https", true, "Use HTTPS when talking to the unit")
	username := lflag.String("gateway-username", "", "Basic auth username for the unit")
	password := lflag.String("gateway-password", "", "Basic auth password for the unit")
	insecure := lflag.Bool("gateway-insecure", true, "Skip TLS certificate verification (units serve self-signed certificates)")

	c := &Client{}

	lflag.Do(func() {
		scheme := "http"
		if *https {
			scheme = "https"
		}
		c.baseURL = fmt.Sprintf("%s://%s", scheme, *addr)
		c.username = *username
		c.password = *password
		if *https && *insecure {
			c.client = common.InsecureHTTPClient(requestTimeout)
		} else {
			c.client = common.HTTPClient(requestTimeout)
		}
	})

	return c
}
