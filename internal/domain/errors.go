package domain

import "errors"

// Sentinel errors carry the stable reason strings that API collaborators
// translate for users. Handlers map them onto HTTP status codes with
// errors.Is, so wrap rather than replace them.
var (
	// Input validation.
	ErrInvalidChoiceCount = errors.New("at least two choices required")
	ErrEmptyDescription   = errors.New("description must not be empty")
	ErrActivityNotFound   = errors.New("activity does not exist")
	ErrTicketNotFound     = errors.New("ticket does not exist")
	ErrInvalidChoice      = errors.New("invalid choice index")
	ErrZeroAmount         = errors.New("bet amount must be greater than zero")
	ErrZeroPrice          = errors.New("price must be greater than zero")

	// Authorization.
	ErrNotAuthorized = errors.New("caller is not the ledger owner")
	ErrNotOwner      = errors.New("not owner")
	ErrNotSeller     = errors.New("not seller")

	// State conflicts.
	ErrActivityEnded       = errors.New("activity has ended")
	ErrActivityNotEnded    = errors.New("activity has not ended")
	ErrAlreadyResolved     = errors.New("activity already resolved")
	ErrNotResolved         = errors.New("activity not resolved")
	ErrNoClaimable         = errors.New("no winning tickets or already claimed")
	ErrNotListedOrInactive = errors.New("not listed or inactive")
	ErrIncorrectPrice      = errors.New("incorrect price")

	// Payment.
	ErrTransferFailed    = errors.New("transfer failed")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Infrastructure.
	ErrNotFound = errors.New("not found")
	ErrLockHeld = errors.New("lock already held")
)
