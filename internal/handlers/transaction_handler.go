package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dundie/backend/internal/models"
	"github.com/dundie/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TransactionPoster interface {
	PostTransaction(ctx context.Context, recipientUsername string, sender models.Account, value int64) (*models.Transaction, error)
}

type TransactionLister interface {
	ListTransactions(ctx context.Context, caller models.Account, filter services.TransactionFilter, orderBy string, page services.PageRequest) (*models.Page[models.TransactionView], error)
}

type TransactionHandler struct {
	ledger    TransactionPoster
	query     TransactionLister
	validator *services.ValidationHelper
	logger    *zap.Logger
}

func NewTransactionHandler(ledger TransactionPoster, query TransactionLister, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		ledger:    ledger,
		query:     query,
		validator: services.NewValidationHelper(),
		logger:    logger.Named("transactions"),
	}
}

// CreateTransactionRequest represents the body of a post
type CreateTransactionRequest struct {
	Value *int64 `json:"value" validate:"required" example:"10"`
}

// CreateTransactionResponse is returned when a post is committed
type CreateTransactionResponse struct {
	Message     string                 `json:"message" example:"Transaction added"`
	Transaction models.TransactionView `json:"transaction"`
}

// CreateTransaction sends dundies from the caller to {username}
// @Summary Send dundies
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param username path string true "Recipient username"
// @Param request body CreateTransactionRequest true "Amount to send"
// @Success 201 {object} CreateTransactionResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /transactions/{username} [post]
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	sender, ok := caller(w, r)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		if isFieldTypeError(err, "value") {
			services.SendServiceError(w, services.ErrInvalidValue)
			return
		}
		sendBadRequest(w, "Invalid request body")
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		// value is the only field, so a failed check means it was missing or null
		services.SendServiceError(w, services.ErrInvalidValue)
		return
	}

	recipient := chi.URLParam(r, "username")
	txn, err := h.ledger.PostTransaction(r.Context(), recipient, sender, *req.Value)
	if err != nil {
		h.logger.Info("transaction rejected",
			zap.Int64("sender_id", sender.ID),
			zap.String("recipient", recipient),
			zap.Int64("value", *req.Value),
			zap.String("code", services.ErrorCode(err)),
		)
		services.SendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateTransactionResponse{
		Message: "Transaction added",
		Transaction: models.TransactionView{
			ID:          txn.ID,
			Value:       txn.Value,
			CreatedAt:   txn.CreatedAt,
			RecipientID: txn.RecipientID,
			SenderID:    txn.SenderID,
			Recipient:   recipient,
			Sender:      sender.Username,
		},
	})
}

// ListTransactions returns a page of transactions visible to the caller
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param user query string false "Recipient username"
// @Param from_user query string false "Sender username"
// @Param order_by query string false "id, date, value; prefix with - for descending"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(50)
// @Success 200 {object} models.Page[models.TransactionView]
// @Failure 400 {object} services.ErrorResponse
// @Router /transactions [get]
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		sendBadRequest(w, "page must be an integer")
		return
	}
	size, err := intParam(q.Get("size"), services.DefaultPageSize)
	if err != nil {
		sendBadRequest(w, "size must be an integer")
		return
	}

	result, err := h.query.ListTransactions(r.Context(), acct,
		services.TransactionFilter{Recipient: q.Get("user"), Sender: q.Get("from_user")},
		q.Get("order_by"),
		services.PageRequest{Page: page, Size: size},
	)
	if err != nil {
		services.SendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
