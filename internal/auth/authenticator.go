package auth

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/rendezvous/internal/chat"
	"github.com/goevery/rendezvous/internal/ierr"
	"github.com/golang-jwt/jwt/v5"
)

const audience = "rendezvous"

type Claims struct {
	jwt.RegisteredClaims
	DisplayName string `json:"displayName,omitempty"`
}

type Authentication struct {
	Subject     string
	DisplayName string
}

type contextKey string

const authenticationKey contextKey = "authentication"

func WithAuthentication(ctx context.Context, auth *Authentication) context.Context {
	return context.WithValue(ctx, authenticationKey, auth)
}

func AuthenticationFromContext(ctx context.Context) (*Authentication, bool) {
	auth, ok := ctx.Value(authenticationKey).(*Authentication)
	return auth, ok
}

type Authenticator struct {
	secret    []byte
	tokenTTL  time.Duration
	jwtParser *jwt.Parser
}

func NewAuthenticator(secret string, tokenTTL time.Duration) *Authenticator {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience(audience),
	)

	return &Authenticator{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		jwtParser: jwtParser,
	}
}

func (a *Authenticator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}
	return a.secret, nil
}

func (a *Authenticator) AuthenticateJWT(tokenString string) (*Authentication, error) {
	claims := Claims{}

	_, err := a.jwtParser.ParseWithClaims(tokenString, &claims, a.keyFunc)
	if err != nil {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	subject, err := claims.GetSubject()
	subject = chat.NormalizeUsername(subject)
	if err != nil || subject == "" {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid subject claim"))
	}

	displayName := claims.DisplayName
	if displayName == "" {
		displayName = subject
	}

	return &Authentication{
		Subject:     subject,
		DisplayName: displayName,
	}, nil
}

// IssueToken signs an access token for user, valid for the configured TTL.
func (a *Authenticator) IssueToken(user chat.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(a.tokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		DisplayName: user.DisplayName,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}
