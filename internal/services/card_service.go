package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"bankledger/internal/apperrors"
	"bankledger/internal/db"
	"bankledger/internal/dupguard"
	"bankledger/internal/idgen"
	"bankledger/internal/ledger"
	"bankledger/internal/lifecycle"
	"bankledger/internal/models"
	"bankledger/internal/money"
	"bankledger/internal/store"
	"bankledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const maxCardsPerOwner = 10

type CardStore interface {
	Create(ctx context.Context, tx store.Execer, card models.Card) error
	GetByID(ctx context.Context, cardID string) (models.Card, error)
	GetByNumber(ctx context.Context, number string) (models.Card, error)
	GetForUpdate(ctx context.Context, tx store.Getter, cardID string) (models.Card, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Card, error)
	CountByOwner(ctx context.Context, tx store.Getter, ownerID string) (int, error)
	ListCreatedSince(ctx context.Context, tx store.Selecter, ownerID string, since time.Time) ([]models.Card, error)
	NumberExists(ctx context.Context, tx store.Getter, number string) (bool, error)
	UpdateBalances(ctx context.Context, tx store.Execer, cardID string, current, available decimal.Decimal) error
	UpdateLimit(ctx context.Context, tx store.Execer, cardID string, limit, available decimal.Decimal) error
	UpdateStatus(ctx context.Context, tx store.Execer, cardID string, status lifecycle.CardStatus) error
	UpdateDetails(ctx context.Context, tx store.Execer, cardID, holderName string, expiryMonth, expiryYear int) error
	Delete(ctx context.Context, tx store.Execer, cardID string) error
}

type CardTransactionStore interface {
	Create(ctx context.Context, tx store.Execer, t models.CardTransaction) error
	ListByCard(ctx context.Context, cardID string, page store.Page) ([]models.CardTransaction, error)
}

type CardService struct {
	txRunner     db.TxRunner
	cards        CardStore
	transactions CardTransactionStore
	audit        AuditStore
	hub          BalanceHub
	validator    TokenValidator
	ids          *idgen.Generator
	guard        dupguard.Guard
	opts         Options
	logger       *slog.Logger
}

func NewCardService(txRunner db.TxRunner, cards CardStore, transactions CardTransactionStore, audit AuditStore, hub BalanceHub, validator TokenValidator, ids *idgen.Generator, guard dupguard.Guard, opts Options) *CardService {
	opts = opts.withDefaults()
	return &CardService{
		txRunner:     txRunner,
		cards:        cards,
		transactions: transactions,
		audit:        audit,
		hub:          hub,
		validator:    validator,
		ids:          ids,
		guard:        guard.WithClock(opts.Now),
		opts:         opts,
		logger:       opts.Logger.With("service", "cards"),
	}
}

type CreateCardRequest struct {
	OwnerID     string
	Token       string
	HolderName  string
	ExpiryMonth int
	ExpiryYear  int
	Type        models.CardType
	CreditLimit decimal.Decimal
}

func (r CreateCardRequest) validate() error {
	if strings.TrimSpace(r.HolderName) == "" {
		return apperrors.Wrap(apperrors.ErrInvalidArgument, "holder name is required")
	}
	if _, ok := models.ParseCardType(string(r.Type)); !ok {
		return apperrors.Wrap(apperrors.ErrInvalidArgument, "unknown card type %q", r.Type)
	}
	if err := validateExpiry(r.ExpiryMonth, r.ExpiryYear); err != nil {
		return err
	}
	return ledger.CheckAmount(r.CreditLimit)
}

// CreateCard issues a card after the user service confirms the token. A card
// created by the same owner inside the duplicate window is returned instead
// of a new one; created reports which happened.
func (s *CardService) CreateCard(ctx context.Context, req CreateCardRequest) (card models.Card, created bool, err error) {
	if err := req.validate(); err != nil {
		return models.Card{}, false, err
	}
	if err := validateOwner(ctx, s.validator, s.opts, req.Token, req.OwnerID); err != nil {
		return models.Card{}, false, err
	}
	now := s.opts.now()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		created = false
		existing, found, err := dupguard.Suppress(ctx, s.guard, req.OwnerID,
			func(ctx context.Context, ownerID string, since time.Time) ([]models.Card, error) {
				return s.cards.ListCreatedSince(ctx, tx, ownerID, since)
			},
			func(c models.Card) time.Time { return c.CreatedAt },
		)
		if err != nil {
			return err
		}
		if found {
			card = existing
			return nil
		}
		count, err := s.cards.CountByOwner(ctx, tx, req.OwnerID)
		if err != nil {
			return err
		}
		if count >= maxCardsPerOwner {
			return apperrors.Wrap(apperrors.ErrQuotaExceeded, "owner already has %d cards", count)
		}
		number, err := s.ids.Generate(ctx, idgen.CardNumberLength, func(ctx context.Context, candidate string) (bool, error) {
			return s.cards.NumberExists(ctx, tx, candidate)
		})
		if err != nil {
			return err
		}
		card = models.Card{
			ID:               uuid.NewString(),
			OwnerID:          req.OwnerID,
			Number:           number,
			HolderName:       strings.TrimSpace(req.HolderName),
			ExpiryMonth:      req.ExpiryMonth,
			ExpiryYear:       req.ExpiryYear,
			Type:             req.Type,
			Status:           lifecycle.CardActive,
			CreditLimit:      req.CreditLimit,
			CurrentBalance:   decimal.Zero,
			AvailableBalance: req.CreditLimit,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.cards.Create(ctx, tx, card); err != nil {
			return err
		}
		created = true
		return s.audit.Log(ctx, tx, req.OwnerID, "card.issue", "card", card.ID, map[string]string{
			"type":         string(card.Type),
			"credit_limit": money.Format(card.CreditLimit),
		})
	})
	if err != nil {
		logRejection(s.logger, "card creation rejected", err, "owner_id", req.OwnerID)
		return models.Card{}, false, err
	}
	if created {
		s.logger.Info("card issued", "owner_id", req.OwnerID, "card_id", card.ID, "type", card.Type)
	} else {
		s.logger.Info("duplicate card request suppressed", "owner_id", req.OwnerID, "card_id", card.ID)
	}
	return s.withEffectiveStatus(card), created, nil
}

type CardOperation struct {
	CardID      string
	OwnerID     string
	Kind        models.TransactionKind
	Amount      decimal.Decimal
	Merchant    string
	Description string
}

// UpdateBalance applies a purchase (DEBIT) or repayment (CREDIT) to an ACTIVE,
// unexpired card and records it.
func (s *CardService) UpdateBalance(ctx context.Context, op CardOperation) (models.Card, models.CardTransaction, error) {
	if err := ledger.CheckAmount(op.Amount); err != nil {
		return models.Card{}, models.CardTransaction{}, err
	}
	now := s.opts.now()
	record := models.CardTransaction{
		ID:          uuid.NewString(),
		CardID:      op.CardID,
		Kind:        op.Kind,
		Amount:      op.Amount,
		Merchant:    op.Merchant,
		Description: op.Description,
		CreatedAt:   now,
	}
	var card models.Card
	var overLimit bool
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		card, err = s.lockOwned(ctx, tx, op.CardID, op.OwnerID)
		if err != nil {
			return err
		}
		if status := lifecycle.EffectiveCardStatus(card.Status, now, card.ExpiryMonth, card.ExpiryYear); status != lifecycle.CardActive {
			return apperrors.Wrap(apperrors.ErrInvalidState, "card %s is %s", card.ID, status)
		}
		next, err := ledger.ApplyCard(ledger.CardBalancesOf(card), op.Kind, op.Amount)
		if err != nil {
			return err
		}
		if err := s.cards.UpdateBalances(ctx, tx, card.ID, next.Current, next.Available); err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, tx, record); err != nil {
			return err
		}
		card.CurrentBalance, card.AvailableBalance, card.UpdatedAt = next.Current, next.Available, now
		overLimit = next.OverLimit()
		return s.audit.Log(ctx, tx, op.OwnerID, "card."+strings.ToLower(string(op.Kind)), "card", card.ID, map[string]string{
			"transaction_id":    record.ID,
			"amount":            money.Format(op.Amount),
			"current_balance":   money.Format(next.Current),
			"available_balance": money.Format(next.Available),
		})
	})
	if err != nil {
		logRejection(s.logger, "card operation rejected", err, "owner_id", op.OwnerID, "card_id", op.CardID, "kind", op.Kind)
		return models.Card{}, models.CardTransaction{}, err
	}
	if overLimit {
		s.logger.Warn("card available balance exceeds credit limit", "card_id", card.ID,
			"available", money.Format(card.AvailableBalance), "credit_limit", money.Format(card.CreditLimit))
	}
	s.logger.Info("card balance updated", "owner_id", op.OwnerID, "card_id", card.ID, "kind", op.Kind,
		"amount", money.Format(op.Amount), "current", money.Format(card.CurrentBalance))
	s.broadcast(card)
	return s.withEffectiveStatus(card), record, nil
}

func (s *CardService) IncreaseLimit(ctx context.Context, cardID, ownerID string, amount decimal.Decimal) (models.Card, error) {
	return s.changeLimit(ctx, cardID, ownerID, amount, "card.limit_increase", ledger.IncreaseLimit)
}

// DecreaseLimit refuses to take the limit below the current balance.
func (s *CardService) DecreaseLimit(ctx context.Context, cardID, ownerID string, amount decimal.Decimal) (models.Card, error) {
	return s.changeLimit(ctx, cardID, ownerID, amount, "card.limit_decrease", ledger.DecreaseLimit)
}

func (s *CardService) changeLimit(ctx context.Context, cardID, ownerID string, amount decimal.Decimal, action string, apply func(ledger.CardBalances, decimal.Decimal) (ledger.CardBalances, error)) (models.Card, error) {
	var card models.Card
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		card, err = s.lockOwned(ctx, tx, cardID, ownerID)
		if err != nil {
			return err
		}
		next, err := apply(ledger.CardBalancesOf(card), amount)
		if err != nil {
			return err
		}
		if err := s.cards.UpdateLimit(ctx, tx, card.ID, next.CreditLimit, next.Available); err != nil {
			return err
		}
		card.CreditLimit, card.AvailableBalance = next.CreditLimit, next.Available
		return s.audit.Log(ctx, tx, ownerID, action, "card", card.ID, map[string]string{
			"amount":       money.Format(amount),
			"credit_limit": money.Format(next.CreditLimit),
		})
	})
	if err != nil {
		logRejection(s.logger, "card limit change rejected", err, "owner_id", ownerID, "card_id", cardID, "action", action)
		return models.Card{}, err
	}
	s.logger.Info("card limit changed", "owner_id", ownerID, "card_id", card.ID, "credit_limit", money.Format(card.CreditLimit))
	s.broadcast(card)
	return s.withEffectiveStatus(card), nil
}

func (s *CardService) Block(ctx context.Context, cardID, ownerID string) (models.Card, error) {
	return s.setStatus(ctx, cardID, ownerID, lifecycle.CardBlocked)
}

func (s *CardService) Unblock(ctx context.Context, cardID, ownerID string) (models.Card, error) {
	return s.setStatus(ctx, cardID, ownerID, lifecycle.CardActive)
}

// UpdateStatus parses raw as a card status. EXPIRED is never accepted.
func (s *CardService) UpdateStatus(ctx context.Context, cardID, ownerID, raw string) (models.Card, error) {
	status, err := lifecycle.ParseCardStatus(raw)
	if err != nil {
		return models.Card{}, err
	}
	return s.setStatus(ctx, cardID, ownerID, status)
}

func (s *CardService) setStatus(ctx context.Context, cardID, ownerID string, target lifecycle.CardStatus) (models.Card, error) {
	var card models.Card
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		card, err = s.lockOwned(ctx, tx, cardID, ownerID)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckCard(card.Status, target); err != nil {
			return err
		}
		if target == lifecycle.CardActive && lifecycle.Expired(s.opts.now(), card.ExpiryMonth, card.ExpiryYear) {
			return apperrors.Wrap(apperrors.ErrInvalidState, "card %s has expired", card.ID)
		}
		if err := s.cards.UpdateStatus(ctx, tx, card.ID, target); err != nil {
			return err
		}
		from := card.Status
		card.Status = target
		return s.audit.Log(ctx, tx, ownerID, "card.status", "card", card.ID, map[string]string{
			"from": string(from),
			"to":   string(target),
		})
	})
	if err != nil {
		logRejection(s.logger, "card status change rejected", err, "owner_id", ownerID, "card_id", cardID, "status", target)
		return models.Card{}, err
	}
	s.logger.Info("card status changed", "owner_id", ownerID, "card_id", card.ID, "status", target)
	return s.withEffectiveStatus(card), nil
}

// IsExpired reports whether the current month is strictly past the card's
// expiry month.
func (s *CardService) IsExpired(ctx context.Context, cardID, ownerID string) (bool, error) {
	card, err := s.getOwned(ctx, cardID, ownerID)
	if err != nil {
		return false, err
	}
	return lifecycle.Expired(s.opts.now(), card.ExpiryMonth, card.ExpiryYear), nil
}

func (s *CardService) UpdateDetails(ctx context.Context, cardID, ownerID, holderName string, expiryMonth, expiryYear int) (models.Card, error) {
	holderName = strings.TrimSpace(holderName)
	if holderName == "" {
		return models.Card{}, apperrors.Wrap(apperrors.ErrInvalidArgument, "holder name is required")
	}
	if err := validateExpiry(expiryMonth, expiryYear); err != nil {
		return models.Card{}, err
	}
	var card models.Card
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		card, err = s.lockOwned(ctx, tx, cardID, ownerID)
		if err != nil {
			return err
		}
		if err := s.cards.UpdateDetails(ctx, tx, card.ID, holderName, expiryMonth, expiryYear); err != nil {
			return err
		}
		card.HolderName, card.ExpiryMonth, card.ExpiryYear = holderName, expiryMonth, expiryYear
		return s.audit.Log(ctx, tx, ownerID, "card.details", "card", card.ID, map[string]any{
			"holder_name":  holderName,
			"expiry_month": expiryMonth,
			"expiry_year":  expiryYear,
		})
	})
	if err != nil {
		logRejection(s.logger, "card details update rejected", err, "owner_id", ownerID, "card_id", cardID)
		return models.Card{}, err
	}
	return s.withEffectiveStatus(card), nil
}

// Delete removes a card that owes nothing.
func (s *CardService) Delete(ctx context.Context, cardID, ownerID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		card, err := s.lockOwned(ctx, tx, cardID, ownerID)
		if err != nil {
			return err
		}
		if !card.CurrentBalance.IsZero() {
			return apperrors.Wrap(apperrors.ErrInsufficientBalance, "card balance is %s, must be zero to delete", money.Format(card.CurrentBalance))
		}
		if err := s.cards.Delete(ctx, tx, card.ID); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, ownerID, "card.delete", "card", card.ID, map[string]string{"number": card.Number})
	})
	if err != nil {
		logRejection(s.logger, "card deletion rejected", err, "owner_id", ownerID, "card_id", cardID)
		return err
	}
	s.logger.Info("card deleted", "owner_id", ownerID, "card_id", cardID)
	return nil
}

func (s *CardService) Get(ctx context.Context, cardID, ownerID string) (models.Card, error) {
	card, err := s.getOwned(ctx, cardID, ownerID)
	if err != nil {
		return models.Card{}, err
	}
	return s.withEffectiveStatus(card), nil
}

func (s *CardService) GetByNumber(ctx context.Context, number, ownerID string) (models.Card, error) {
	card, err := s.cards.GetByNumber(ctx, number)
	if err != nil {
		return models.Card{}, notFound(err, "card", number)
	}
	if err := owned(card.OwnerID, ownerID, "card", number); err != nil {
		return models.Card{}, err
	}
	return s.withEffectiveStatus(card), nil
}

func (s *CardService) List(ctx context.Context, ownerID string) ([]models.Card, error) {
	cards, err := s.cards.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i] = s.withEffectiveStatus(cards[i])
	}
	return cards, nil
}

func (s *CardService) ListTransactions(ctx context.Context, cardID, ownerID string, page store.Page) ([]models.CardTransaction, error) {
	if _, err := s.getOwned(ctx, cardID, ownerID); err != nil {
		return nil, err
	}
	return s.transactions.ListByCard(ctx, cardID, page)
}

func (s *CardService) getOwned(ctx context.Context, cardID, ownerID string) (models.Card, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return models.Card{}, notFound(err, "card", cardID)
	}
	if err := owned(card.OwnerID, ownerID, "card", cardID); err != nil {
		return models.Card{}, err
	}
	return card, nil
}

func (s *CardService) lockOwned(ctx context.Context, tx store.Getter, cardID, ownerID string) (models.Card, error) {
	card, err := s.cards.GetForUpdate(ctx, tx, cardID)
	if err != nil {
		return models.Card{}, notFound(err, "card", cardID)
	}
	if err := owned(card.OwnerID, ownerID, "card", cardID); err != nil {
		return models.Card{}, err
	}
	return card, nil
}

// withEffectiveStatus reports EXPIRED for cards past their expiry month. The
// stored status is left untouched.
func (s *CardService) withEffectiveStatus(card models.Card) models.Card {
	card.Status = lifecycle.EffectiveCardStatus(card.Status, s.opts.now(), card.ExpiryMonth, card.ExpiryYear)
	return card
}

func (s *CardService) broadcast(card models.Card) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastBalance(card.OwnerID, websocket.BalanceUpdate{
		Entity:    websocket.EntityCard,
		ID:        card.ID,
		Balance:   money.Format(card.CurrentBalance),
		Available: money.Format(card.AvailableBalance),
	})
}

func validateExpiry(month, year int) error {
	if month < 1 || month > 12 {
		return apperrors.Wrap(apperrors.ErrInvalidArgument, "expiry month must be between 1 and 12")
	}
	if year < 2000 || year > 9999 {
		return apperrors.Wrap(apperrors.ErrInvalidArgument, "expiry year %d is out of range", year)
	}
	return nil
}
