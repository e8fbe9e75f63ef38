package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goevery/rendezvous/internal/auth"
	"github.com/goevery/rendezvous/internal/ierr"
)

// authenticateRequest reads the access token from the Authorization header or,
// for browsers opening a websocket, from the access_token query parameter.
func authenticateRequest(authenticator *auth.Authenticator, r *http.Request) (*auth.Authentication, error) {
	token := r.URL.Query().Get("access_token")

	if header := r.Header.Get("Authorization"); header != "" {
		scheme, credentials, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unsupported authorization scheme"))
		}

		token = strings.TrimSpace(credentials)
	}

	if token == "" {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("access token is required"))
	}

	return authenticator.AuthenticateJWT(token)
}
