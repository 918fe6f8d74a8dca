package server

import (
	"net/http"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// Users
// =============================================================================

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.ledger.CreateUser(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "User created", user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id != userID(r) {
		writeError(w, r, store.ErrForbidden)
		return
	}
	user, err := h.ledger.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User retrieved", user)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.GetBalance(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Balance retrieved", balance)
}

// =============================================================================
// Transactions
// =============================================================================

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.ledger.CreateTransaction(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Transaction created", result)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txType, err := typeFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.ledger.ListUserTransactions(r.Context(), userID(r), txType, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Transactions retrieved", list)
}

func (h *Handler) RecentTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.LastTransactions(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Recent transactions retrieved", list)
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.ledger.GetTransaction(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Transaction retrieved", t)
}

func (h *Handler) EditTransactionLevel(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionLevelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.ledger.EditTransactionLevel(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Transaction updated", t)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.ledger.GetAccount(r.Context(), userID(r), chi.URLParam(r, "accountNumber"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Account details retrieved", a)
}

// =============================================================================
// Savings
// =============================================================================

func (h *Handler) CreateSavings(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSavingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sv, err := h.ledger.CreateSavings(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Savings created", sv)
}

func (h *Handler) ListSavings(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.ListUserSavings(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Savings retrieved", list)
}

func (h *Handler) TopUpSavings(w http.ResponseWriter, r *http.Request) {
	var req models.SavingsMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sv, err := h.ledger.TopUpSavings(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Savings topped up", sv)
}

func (h *Handler) WithdrawSavings(w http.ResponseWriter, r *http.Request) {
	var req models.SavingsMovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sv, err := h.ledger.WithdrawSavings(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Savings withdrawn", sv)
}

// =============================================================================
// Deposit requests
// =============================================================================

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req models.DepositRequestInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.ledger.CreateDepositRequest(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Deposit request created", d)
}

func (h *Handler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.ListUserDepositRequests(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Deposit requests retrieved", list)
}

func (h *Handler) EditDeposit(w http.ResponseWriter, r *http.Request) {
	var req models.EditDepositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.ledger.EditDepositRequest(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Deposit request updated", d)
}

// =============================================================================
// Beneficiaries
// =============================================================================

func (h *Handler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.ListBeneficiaries(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Beneficiaries retrieved", list)
}

func (h *Handler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	var req models.BeneficiaryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.ledger.CreateBeneficiary(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Beneficiary added", b)
}

func (h *Handler) DeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteBeneficiary(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Notifications
// =============================================================================

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.ledger.ListNotifications(r.Context(), userID(r), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Notifications retrieved", list)
}

func (h *Handler) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	// An empty body marks everything read.
	var req models.MarkReadRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	n, err := h.ledger.MarkNotificationsRead(r.Context(), userID(r), req.Ids)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Notifications marked as read", map[string]int64{"updated": n})
}
