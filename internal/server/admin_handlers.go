package server

import (
	"errors"
	"net/http"

	"bank-ledger-go/internal/models"
	"bank-ledger-go/internal/store"

	"github.com/go-chi/chi/v5"
)

// Admin handlers pass the X-Admin-ID header straight to the ledger, which
// resolves the role and answers 401 or 403.

func (h *Handler) AdminCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.ledger.CreateUserTransaction(r.Context(), adminID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Transaction created", result)
}

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	h.adminListTransactions(w, r, r.URL.Query().Get("user"))
}

func (h *Handler) AdminListUserTransactions(w http.ResponseWriter, r *http.Request) {
	h.adminListTransactions(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) adminListTransactions(w http.ResponseWriter, r *http.Request, userId string) {
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
	filter := store.TransactionFilter{UserId: userId, TransactionType: txType}
	list, err := h.ledger.ListTransactions(r.Context(), adminID(r), filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Transactions retrieved", list)
}

func (h *Handler) AdminUpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.ledger.UpdateTransactionStatus(r.Context(), adminID(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Transaction status updated", t)
}

func (h *Handler) AdminPurgeTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.PurgeTransaction(r.Context(), adminID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminSetSuspension(w http.ResponseWriter, r *http.Request) {
	var req models.SuspensionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.ledger.SetUserSuspended(r.Context(), adminID(r), chi.URLParam(r, "id"), req.Suspended)
	if err != nil {
		writeError(w, r, err)
		return
	}
	message := "User reactivated"
	if user.Suspended {
		message = "User suspended"
	}
	writeData(w, http.StatusOK, message, user)
}

func (h *Handler) AdminReconcileBalance(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledger.ReconcileBalance(r.Context(), adminID(r), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrBalanceMismatch) && result != nil {
		writeJSON(w, http.StatusConflict, models.Response{Success: false, Message: err.Error(), Data: result})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Balance reconciled", result)
}

func (h *Handler) AdminListSavings(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.ledger.ListSavings(r.Context(), adminID(r), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Savings retrieved", list)
}

func (h *Handler) AdminDeleteSavings(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteSavings(r.Context(), adminID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminListDeposits(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.ledger.ListDepositRequests(r.Context(), adminID(r), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Deposit requests retrieved", list)
}

func (h *Handler) AdminApproveDeposit(w http.ResponseWriter, r *http.Request) {
	var req models.DepositUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.ledger.ApproveDepositRequest(r.Context(), adminID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Deposit request updated", d)
}

func (h *Handler) AdminDeleteDeposit(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteDepositRequest(r.Context(), adminID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req models.AccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.ledger.CreateAccount(r.Context(), adminID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Account created", a)
}

func (h *Handler) AdminEditAccount(w http.ResponseWriter, r *http.Request) {
	var req models.AccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.ledger.EditAccount(r.Context(), adminID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Account updated", a)
}

func (h *Handler) AdminDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteAccount(r.Context(), adminID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminListActivities(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.ledger.ListActivities(r.Context(), adminID(r), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Activities retrieved", list)
}
