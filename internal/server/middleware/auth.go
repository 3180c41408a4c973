package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/crypto"
)

// Request headers carrying the caller's identity proof.
const (
	HeaderAddress   = "X-Easybet-Address"
	HeaderTimestamp = "X-Easybet-Timestamp"
	HeaderSignature = "X-Easybet-Signature"
)

// maxSignedBody bounds how much request body the middleware will buffer for
// digest verification.
const maxSignedBody = 1 << 20

type callerKey struct{}

// CallerFrom returns the authenticated caller address stored by Auth.
func CallerFrom(ctx context.Context) (common.Address, bool) {
	addr, ok := ctx.Value(callerKey{}).(common.Address)
	return addr, ok
}

// WithCaller returns a context carrying the caller address. Exposed for
// handler tests.
func WithCaller(ctx context.Context, addr common.Address) context.Context {
	return context.WithValue(ctx, callerKey{}, addr)
}

// Auth returns middleware that identifies the caller of mutating requests by
// secp256k1 signature recovery over (timestamp, method, path, body hash).
// The recovered address is stored in the request context.
//
// When require is false the signature becomes optional: an unsigned request
// may identify itself with the bare address header. That mode exists for
// local development only.
func Auth(verifier *crypto.Verifier, require bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Reads carry no caller identity; only mutations are signed.
			if r.Method == http.MethodGet || r.Method == http.MethodOptions || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			sigHex := strings.TrimSpace(r.Header.Get(HeaderSignature))
			if sigHex == "" {
				if require {
					writeUnauthorized(w, "missing request signature")
					return
				}
				// Dev mode: trust the bare address header.
				addrHex := strings.TrimSpace(r.Header.Get(HeaderAddress))
				if !common.IsHexAddress(addrHex) {
					writeUnauthorized(w, "missing caller address")
					return
				}
				r = r.WithContext(WithCaller(r.Context(), common.HexToAddress(addrHex)))
				next.ServeHTTP(w, r)
				return
			}

			ts, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderTimestamp)), 10, 64)
			if err != nil {
				writeUnauthorized(w, "missing or invalid request timestamp")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBody))
			if err != nil {
				writeUnauthorized(w, "unreadable request body")
				return
			}
			// The handler still needs the body.
			r.Body = io.NopCloser(bytes.NewReader(body))

			addr, err := verifier.RecoverAddress(ts, r.Method, r.URL.Path, body, sigHex, time.Now())
			if err != nil {
				writeUnauthorized(w, "invalid request signature")
				return
			}

			// If the caller also claimed an address, it must match the
			// signature.
			if claimed := strings.TrimSpace(r.Header.Get(HeaderAddress)); claimed != "" {
				if !common.IsHexAddress(claimed) || common.HexToAddress(claimed) != addr {
					writeUnauthorized(w, "address does not match signature")
					return
				}
			}

			r = r.WithContext(WithCaller(r.Context(), addr))
			next.ServeHTTP(w, r)
		})
	}
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
