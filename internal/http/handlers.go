package http

import (
	"bytes"
	"net/http"

	"cashbook/internal/cashbook"
	"cashbook/internal/core"
	"cashbook/internal/log"
	"cashbook/internal/report"
)

type accountsResponse struct {
	Accounts         []core.Account `json:"accounts"`
	CurrentAccountID string         `json:"currentAccountId"`
}

type transactionsResponse struct {
	AccountID    string             `json:"accountId"`
	Transactions []core.Transaction `json:"transactions"`
	Count        int                `json:"count"`
}

type summaryResponse struct {
	AccountID string           `json:"accountId"`
	Totals    cashbook.Summary `json:"totals"`
	// Display holds the totals rounded to two decimals.
	Display map[string]string `json:"display"`
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	var resp accountsResponse
	s.withBook(func(b *cashbook.Book) {
		resp = accountsResponse{Accounts: b.Accounts(), CurrentAccountID: b.CurrentAccount()}
	})
	if resp.Accounts == nil {
		resp.Accounts = []core.Account{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		acc core.Account
		ok  bool
		err error
	)
	s.withBook(func(b *cashbook.Book) {
		acc, ok = b.CreateAccount(r.Context(), p.Get("name"), core.AccountType(p.Get("type")))
		err = b.LastError()
	})
	if !ok {
		writeBlocked(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

func (s *Server) handleSelectAccount(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.withBook(func(b *cashbook.Book) {
		b.SelectAccount(r.Context(), id)
	})
	writeJSON(w, http.StatusOK, map[string]string{"currentAccountId": id})
}

// viewParams reads the q and type query parameters shared by the list and
// the export.
func viewParams(r *http.Request) (string, cashbook.TypeFilter, error) {
	q := r.URL.Query()
	filter, err := cashbook.ParseTypeFilter(q.Get("type"))
	return q.Get("q"), filter, err
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	search, filter, err := viewParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var resp transactionsResponse
	s.withBook(func(b *cashbook.Book) {
		resp.AccountID = b.CurrentAccount()
		resp.Transactions = b.View(search, filter)
	})
	resp.Count = len(resp.Transactions)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := core.TransactionInput{
		Type:   core.TransactionType(p.Get("type")),
		Amount: p.Get("amount"),
		Note:   p.Get("note"),
		Date:   p.Get("date"),
	}

	var (
		tx  core.Transaction
		ok  bool
		err error
	)
	s.withBook(func(b *cashbook.Book) {
		tx, ok = b.CreateTransaction(r.Context(), in)
		err = b.LastError()
	})
	if !ok {
		writeBlocked(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// handleUpdateTransaction applies only the fields present in the body.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := core.TransactionPatch{
		Amount: p.Optional("amount"),
		Note:   p.Optional("note"),
		Date:   p.Optional("date"),
	}
	if v, ok := p.Lookup("type"); ok {
		t := core.TransactionType(v)
		patch.Type = &t
	}

	var (
		tx  core.Transaction
		ok  bool
		err error
	)
	s.withBook(func(b *cashbook.Book) {
		tx, ok = b.UpdateTransaction(r.Context(), r.PathValue("id"), patch)
		err = b.LastError()
	})
	if !ok {
		writeBlocked(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// handleDeleteTransaction is idempotent: unknown ids also get 204.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var removed bool
	s.withBook(func(b *cashbook.Book) {
		removed = b.DeleteTransaction(r.Context(), id)
	})
	if !removed {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Delete of unknown transaction", log.FieldTransactionID, id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var resp summaryResponse
	s.withBook(func(b *cashbook.Book) {
		resp.AccountID = b.CurrentAccount()
		resp.Totals = b.Summary()
	})
	resp.Display = map[string]string{
		"totalIncome":  core.FormatAmount(resp.Totals.TotalIncome),
		"totalExpense": core.FormatAmount(resp.Totals.TotalExpense),
		"balance":      core.FormatAmount(resp.Totals.Balance),
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReport exports the list exactly as GET /transactions shows it.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	search, filter, err := viewParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var txs []core.Transaction
	s.withBook(func(b *cashbook.Book) {
		txs = b.View(search, filter)
	})

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, txs, s.labels); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to render report",
			log.NewFields().WithOperation(log.OpExport).WithError(err, log.ErrorTypeInternal).ToSlice()...)
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	filename := report.Filename(s.now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())

	log.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		log.FieldOperation, log.OpExport, log.FieldCount, len(txs), "filename", filename)
}
