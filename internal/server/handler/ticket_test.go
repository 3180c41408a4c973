package handler

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easybetio/easybet/internal/domain"
)

var testBuyer = common.HexToAddress("0x00000000000000000000000000000000000000a1")

// stubWagerService returns canned responses and records the last call.
type stubWagerService struct {
	ticket  domain.Ticket
	info    domain.TokenInfo
	payout  *big.Int
	claimed []domain.Ticket
	funds   *big.Int
	count   uint64
	err     error

	gotCaller common.Address
	gotAmount *big.Int
	gotChoice int
	gotToken  domain.TokenID
	gotTo     common.Address
}

func (s *stubWagerService) PlaceBet(ctx context.Context, caller common.Address, activityID uint64, choiceIndex int, value *big.Int) (domain.Ticket, error) {
	s.gotCaller, s.gotChoice, s.gotAmount = caller, choiceIndex, value
	return s.ticket, s.err
}

func (s *stubWagerService) Claim(ctx context.Context, caller common.Address, activityID uint64) (*big.Int, []domain.Ticket, error) {
	s.gotCaller = caller
	return s.payout, s.claimed, s.err
}

func (s *stubWagerService) Approve(ctx context.Context, caller common.Address, tokenID domain.TokenID, delegate common.Address) (domain.Ticket, error) {
	s.gotCaller, s.gotToken, s.gotTo = caller, tokenID, delegate
	return s.ticket, s.err
}

func (s *stubWagerService) Transfer(ctx context.Context, caller common.Address, tokenID domain.TokenID, to common.Address) (domain.Ticket, error) {
	s.gotCaller, s.gotToken, s.gotTo = caller, tokenID, to
	return s.ticket, s.err
}

func (s *stubWagerService) GetTicket(ctx context.Context, tokenID domain.TokenID) (domain.Ticket, error) {
	s.gotToken = tokenID
	return s.ticket, s.err
}

func (s *stubWagerService) GetTokenInfo(ctx context.Context, tokenID domain.TokenID) (domain.TokenInfo, error) {
	return s.info, s.err
}

func (s *stubWagerService) TicketsOfOwner(ctx context.Context, owner common.Address) []domain.Ticket {
	return s.claimed
}

func (s *stubWagerService) Deposit(ctx context.Context, account common.Address, amount *big.Int) error {
	s.gotCaller, s.gotAmount = account, amount
	return s.err
}

func (s *stubWagerService) Balance(ctx context.Context, account common.Address) (*big.Int, uint64, error) {
	return s.funds, s.count, s.err
}

func ticketMux(h *TicketHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/activities/{id}/tickets", h.BuyTicket)
	mux.HandleFunc("POST /api/activities/{id}/claim", h.ClaimPrize)
	mux.HandleFunc("GET /api/tickets/{id}", h.GetTicket)
	mux.HandleFunc("POST /api/tickets/{id}/transfer", h.TransferTicket)
	mux.HandleFunc("POST /api/tickets/{id}/approve", h.ApproveTicket)
	return mux
}

func sampleTicket() domain.Ticket {
	return domain.Ticket{
		ID:          domain.NewTokenID(2, 0),
		ActivityID:  2,
		ChoiceIndex: 1,
		Amount:      big.NewInt(500),
		Owner:       testBuyer,
	}
}

func TestBuyTicketEndpoint(t *testing.T) {
	stub := &stubWagerService{ticket: sampleTicket()}
	srv := ticketMux(NewTicketHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/api/activities/2/tickets", strings.NewReader(`{"choice_index":1,"amount":"500"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, asCaller(req, testBuyer))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, testBuyer, stub.gotCaller)
	assert.Equal(t, 1, stub.gotChoice)
	assert.Equal(t, "500", stub.gotAmount.String())

	// Token id survives the JSON round trip as a decimal string.
	var got domain.Ticket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.NewTokenID(2, 0), got.ID)
}

func TestBuyTicketRejectsBadAmount(t *testing.T) {
	srv := ticketMux(NewTicketHandler(&stubWagerService{}, testLogger()))

	for _, body := range []string{
		`{"choice_index":0,"amount":"-5"}`,
		`{"choice_index":0,"amount":"abc"}`,
		`{"choice_index":0}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/activities/2/tickets", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, asCaller(req, testBuyer))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestBuyTicketMapsConflicts(t *testing.T) {
	stub := &stubWagerService{err: domain.ErrActivityEnded}
	srv := ticketMux(NewTicketHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/api/activities/2/tickets", strings.NewReader(`{"choice_index":0,"amount":"1"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, asCaller(req, testBuyer))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestClaimPrizeEndpoint(t *testing.T) {
	claimed := sampleTicket()
	claimed.Claimed = true
	stub := &stubWagerService{payout: big.NewInt(1500), claimed: []domain.Ticket{claimed}}
	srv := ticketMux(NewTicketHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/api/activities/2/claim", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, asCaller(req, testBuyer))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ActivityID uint64          `json:"activity_id"`
		Payout     string          `json:"payout"`
		Tickets    []domain.Ticket `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(2), resp.ActivityID)
	assert.Equal(t, "1500", resp.Payout)
	assert.Len(t, resp.Tickets, 1)
}

func TestClaimPrizeNoClaimable(t *testing.T) {
	stub := &stubWagerService{err: domain.ErrNoClaimable}
	srv := ticketMux(NewTicketHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodPost, "/api/activities/2/claim", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, asCaller(req, testBuyer))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetTicketEndpoint(t *testing.T) {
	stub := &stubWagerService{
		ticket: sampleTicket(),
		info: domain.TokenInfo{
			TokenID:             domain.NewTokenID(2, 0),
			ActivityID:          2,
			ChoiceIndex:         1,
			ActivityDescription: "who wins",
			ChoiceName:          "blue",
		},
	}
	srv := ticketMux(NewTicketHandler(stub, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/api/tickets/"+domain.NewTokenID(2, 0).String(), nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.NewTokenID(2, 0), stub.gotToken)
	assert.Contains(t, rec.Body.String(), "blue")

	req = httptest.NewRequest(http.MethodGet, "/api/tickets/not-a-token", nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransferTicketEndpoint(t *testing.T) {
	stub := &stubWagerService{ticket: sampleTicket()}
	srv := ticketMux(NewTicketHandler(stub, testLogger()))

	to := "0x00000000000000000000000000000000000000b0"
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/"+domain.NewTokenID(2, 0).String()+"/transfer", strings.NewReader(`{"to":"`+to+`"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, asCaller(req, testBuyer))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, common.HexToAddress(to), stub.gotTo)

	// Malformed recipient never reaches the service.
	req = httptest.NewRequest(http.MethodPost, "/api/tickets/0/transfer", strings.NewReader(`{"to":"bogus"}`))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, asCaller(req, testBuyer))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveTicketEndpoint(t *testing.T) {
	stub := &stubWagerService{ticket: sampleTicket()}
	srv := ticketMux(NewTicketHandler(stub, testLogger()))

	delegate := "0x00000000000000000000000000000000000000c0"
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/"+domain.NewTokenID(2, 0).String()+"/approve", strings.NewReader(`{"delegate":"`+delegate+`"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, asCaller(req, testBuyer))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, common.HexToAddress(delegate), stub.gotTo)
}
