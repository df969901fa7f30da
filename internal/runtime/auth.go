// internal/runtime/auth.go
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gomodule/oauth1/oauth"

	"github.com/afv22/instapaper/internal/config"
	"github.com/afv22/instapaper/internal/instapaper"
)

// APIBase is the root of the Instapaper Full API.
const APIBase = "https://www.instapaper.com/api/1"

const httpTimeout = 30 * time.Second

// NewClient performs the xAuth token exchange and returns an authenticated
// API client. Instapaper only supports the xAuth variant of OAuth 1.0a, so
// there is no browser authorization step; a bad username or password fails
// here rather than on the first API call.
func NewClient(ctx context.Context, creds config.Credentials) (instapaper.Client, error) {
	oc := &oauth.Client{
		Credentials: oauth.Credentials{
			Token:  creds.ConsumerKey,
			Secret: creds.ConsumerSecret,
		},
		TokenRequestURI: APIBase + "/oauth/access_token",
		SignatureMethod: oauth.HMACSHA1,
	}
	httpClient := &http.Client{Timeout: httpTimeout}
	token, _, err := oc.RequestTokenXAuthContext(context.WithValue(ctx, oauth.HTTPClient, httpClient), nil, creds.Username, creds.Password)
	if err != nil {
		return nil, fmt.Errorf("xauth token exchange: %w", err)
	}
	return NewAPIClient(oc, token, httpClient), nil
}

func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
