package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easybetio/easybet/internal/crypto"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe512961708279f2e3e8a5d4b8e3e3e8"

// captureHandler records the caller identity and the body seen downstream.
type captureHandler struct {
	called bool
	caller common.Address
	hasID  bool
	body   string
}

func (h *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.called = true
	h.caller, h.hasID = CallerFrom(r.Context())
	data, _ := io.ReadAll(r.Body)
	h.body = string(data)
	w.WriteHeader(http.StatusOK)
}

func signedRequest(t *testing.T, signer *crypto.Signer, method, path, body string) *http.Request {
	t.Helper()
	ts := time.Now().Unix()
	sig, err := signer.SignRequest(ts, method, path, []byte(body))
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, sig)
	return req
}

func TestAuthRecoversSigner(t *testing.T) {
	signer, err := crypto.NewSigner(testKeyHex)
	require.NoError(t, err)
	next := &captureHandler{}
	h := Auth(crypto.NewVerifier(5*time.Minute), true)(next)

	body := `{"choice_index":1,"amount":"500"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, signer, http.MethodPost, "/api/activities/3/tickets", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, next.hasID)
	assert.Equal(t, signer.Address(), next.caller)

	// The body was re-buffered for the handler.
	assert.Equal(t, body, next.body)
}

func TestAuthRejectsUnsignedMutation(t *testing.T) {
	next := &captureHandler{}
	h := Auth(crypto.NewVerifier(5*time.Minute), true)(next)

	req := httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, next.called)
}

func TestAuthSkipsReads(t *testing.T) {
	next := &captureHandler{}
	h := Auth(crypto.NewVerifier(5*time.Minute), true)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/activities", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, next.called)
	assert.False(t, next.hasID)
}

func TestAuthRejectsTamperedBody(t *testing.T) {
	signer, err := crypto.NewSigner(testKeyHex)
	require.NoError(t, err)
	next := &captureHandler{}
	h := Auth(crypto.NewVerifier(5*time.Minute), true)(next)

	req := signedRequest(t, signer, http.MethodPost, "/api/tickets/1/transfer", `{"to":"0xaa"}`)
	req.Body = io.NopCloser(strings.NewReader(`{"to":"0xbb"}`))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// Either the signature fails to verify or it recovers some other
	// address; the signer's identity must never be attached.
	if rec.Code == http.StatusOK {
		assert.NotEqual(t, signer.Address(), next.caller)
	} else {
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestAuthRejectsMismatchedClaimedAddress(t *testing.T) {
	signer, err := crypto.NewSigner(testKeyHex)
	require.NoError(t, err)
	next := &captureHandler{}
	h := Auth(crypto.NewVerifier(5*time.Minute), true)(next)

	req := signedRequest(t, signer, http.MethodPost, "/api/activities", `{}`)
	req.Header.Set(HeaderAddress, "0x00000000000000000000000000000000000000ff")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, next.called)
}

func TestAuthRejectsStaleTimestamp(t *testing.T) {
	signer, err := crypto.NewSigner(testKeyHex)
	require.NoError(t, err)
	next := &captureHandler{}
	h := Auth(crypto.NewVerifier(time.Minute), true)(next)

	ts := time.Now().Add(-10 * time.Minute).Unix()
	sig, err := signer.SignRequest(ts, http.MethodPost, "/api/activities", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/activities", nil)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, sig)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthDevModeTrustsAddressHeader(t *testing.T) {
	next := &captureHandler{}
	h := Auth(crypto.NewVerifier(5*time.Minute), false)(next)

	addr := "0x00000000000000000000000000000000000000a1"
	req := httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(`{}`))
	req.Header.Set(HeaderAddress, addr)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, common.HexToAddress(addr), next.caller)

	// Even in dev mode, an anonymous mutation is rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/activities", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
