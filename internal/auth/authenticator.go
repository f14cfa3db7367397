package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/flushfinder/flushfinder/internal/instrumentation"
	"github.com/flushfinder/flushfinder/internal/logging"
)

// Credentials identify this service to the token endpoint.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Authenticator obtains bearer tokens for the facilities API.
type Authenticator struct {
	conf       *clientcredentials.Config
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     logging.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithHTTPClient sets the client used for the token request.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) { a.httpClient = c }
}

// WithMetrics records token requests on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Authenticator) { a.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// NewAuthenticator creates an Authenticator for the given token endpoint.
func NewAuthenticator(creds Credentials, tokenURL, scope string, opts ...Option) *Authenticator {
	a := &Authenticator{
		conf: &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     tokenURL,
			Scopes:       []string{scope},
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Token performs one client-credentials exchange. It never retries and never
// returns a cached token. Failures are reported as *Error.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	ctx, span := instrumentation.StartClientSpan(ctx, "oauth.token",
		attribute.String("oauth.token_url", a.conf.TokenURL),
	)
	defer span.End()

	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}

	start := time.Now()
	// clientcredentials.Config.Token fetches a new token on every call;
	// only its TokenSource caches.
	tok, err := a.conf.Token(ctx)
	if err != nil {
		authErr := &Error{Err: err}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			authErr.Status = retrieveErr.Response.StatusCode
		}

		a.metrics.RecordTokenRequest(ctx, instrumentation.StatusError)
		instrumentation.SetSpanError(span, authErr)
		a.logger.Error("token request failed",
			logging.Operation("oauth.token"),
			logging.Status(logging.StatusError),
			logging.Err(authErr))
		return nil, authErr
	}

	a.metrics.RecordTokenRequest(ctx, instrumentation.StatusSuccess)
	instrumentation.SetSpanSuccess(span)
	a.logger.Info("obtained access token",
		logging.Operation("oauth.token"),
		logging.Status(logging.StatusSuccess),
		"token", logging.SanitizeToken(tok.AccessToken),
		logging.KeyDuration, time.Since(start))
	return tok, nil
}
