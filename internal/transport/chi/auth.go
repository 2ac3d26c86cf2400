package chi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

const bearerScheme = "bearer"

// Health checks and scrapes stay reachable without an API key.
var publicPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

var (
	errNoAuthorization = errors.New("missing authorization header")
	errNotBearer       = errors.New("authorization header must use Bearer scheme")
	errUnknownKey      = errors.New("invalid api key")
)

// keyring holds the accepted API keys.
type keyring [][]byte

func newKeyring(keys []string) keyring {
	var kr keyring
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			kr = append(kr, []byte(k))
		}
	}
	return kr
}

// accepts compares token against every key so the check takes the same
// time whichever key matches.
func (kr keyring) accepts(token string) bool {
	match := 0
	for _, k := range kr {
		match |= subtle.ConstantTimeCompare(k, []byte(token))
	}
	return match == 1
}

// bearerToken extracts the credential from an Authorization header. The
// scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errNoAuthorization
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", errNotBearer
	}
	return strings.TrimSpace(token), nil
}

// BearerAuthMiddleware rejects requests whose bearer token is not one of
// apiKeys. With no keys configured the API is open.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	kr := newKeyring(apiKeys)

	return func(next http.Handler) http.Handler {
		if len(kr) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			token, err := bearerToken(r)
			if err == nil && !kr.accepts(token) {
				err = errUnknownKey
			}
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="shopsearch"`)
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, err.Error())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
