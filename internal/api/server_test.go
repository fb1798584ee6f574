package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yazan176yazan-ctrl/referral-ledger/internal/accounts"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/ledger"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/locks"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/models"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/profit"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/referral"
	"github.com/yazan176yazan-ctrl/referral-ledger/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewMemoryAccountStore()
	runs := memory.NewMemoryRunStore()
	l := ledger.NewLedger(memory.NewMemoryLedgerStore())
	graph := referral.NewGraph(store)
	locker := locks.NewLocal()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := accounts.NewService(store, l, runs, graph, locker)
	engine := profit.NewEngine(store, l, runs, graph, locker)

	s := NewServer(svc, engine, profit.DefaultConfig(), logger)
	s.EnableMetrics()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func signup(t *testing.T, ts *httptest.Server, code string) models.Account {
	t.Helper()
	var a models.Account
	if status := do(t, ts, http.MethodPost, "/accounts", fmt.Sprintf(`{"inviter_code":%q}`, code), &a); status != http.StatusCreated {
		t.Fatalf("signup status = %d", status)
	}
	return a
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]string
	if status := do(t, ts, http.MethodGet, "/health", "", &body); status != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", status, body)
	}
}

func TestCascadeOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	a := signup(t, ts, "")
	b := signup(t, ts, a.ReferralCode)
	c := signup(t, ts, b.ReferralCode)
	d := signup(t, ts, c.ReferralCode)

	var run models.ProfitRun
	status := do(t, ts, http.MethodPost, "/accounts/"+d.ID+"/profit-runs", `{"min_profit":"100","max_profit":"100"}`, &run)
	if status != http.StatusCreated {
		t.Fatalf("profit run status = %d", status)
	}

	want := map[string]string{d.ID: "100", c.ID: "20", b.ID: "5", a.ID: "2"}
	for id, balance := range want {
		var got models.Account
		do(t, ts, http.MethodGet, "/accounts/"+id, "", &got)
		if !got.Balance.Equal(decimal.RequireFromString(balance)) {
			t.Errorf("account %s balance = %s, want %s", id, got.Balance, balance)
		}
		var rec reconcileResponse
		if status := do(t, ts, http.MethodGet, "/accounts/"+id+"/reconcile", "", &rec); status != http.StatusOK || !rec.Reconciled {
			t.Errorf("reconcile %s = %d %+v", id, status, rec)
		}
	}

	var team models.Team
	do(t, ts, http.MethodGet, "/accounts/"+a.ID+"/team", "", &team)
	if len(team.Gen1) != 1 || len(team.Gen2) != 1 || len(team.Gen3) != 1 {
		t.Errorf("team = %+v", team)
	}

	var txs []models.Transaction
	do(t, ts, http.MethodGet, "/accounts/"+c.ID+"/transactions", "", &txs)
	if len(txs) != 2 || txs[0].Kind != models.KindReferralCommission {
		t.Errorf("transactions = %+v", txs)
	}

	var runs []models.ProfitRun
	do(t, ts, http.MethodGet, "/accounts/"+d.ID+"/profit-runs", "", &runs)
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Errorf("runs = %+v", runs)
	}
}

func TestDepositWithdrawStatuses(t *testing.T) {
	ts := newTestServer(t)
	a := signup(t, ts, "")
	base := "/accounts/" + a.ID

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"deposit", base + "/deposit", `{"amount":"50.50"}`, http.StatusOK},
		{"zero deposit", base + "/deposit", `{"amount":"0"}`, http.StatusBadRequest},
		{"malformed body", base + "/deposit", `{"amount":`, http.StatusBadRequest},
		{"overdraw", base + "/withdraw", `{"amount":"60"}`, http.StatusUnprocessableEntity},
		{"withdraw", base + "/withdraw", `{"amount":"0.50"}`, http.StatusOK},
		{"unknown account", "/accounts/ghost/deposit", `{"amount":"1"}`, http.StatusNotFound},
		{"inverted profit range", base + "/profit-runs", `{"min_profit":"5","max_profit":"1"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]any
			if status := do(t, ts, http.MethodPost, tt.path, tt.body, &body); status != tt.status {
				t.Errorf("status = %d, want %d (%v)", status, tt.status, body)
			}
		})
	}

	var got models.Account
	do(t, ts, http.MethodGet, base, "", &got)
	if !got.Balance.Equal(decimal.RequireFromString("50")) {
		t.Errorf("balance = %s, want 50.00", got.Balance)
	}
}

func TestProfitRunWithoutBody(t *testing.T) {
	ts := newTestServer(t)
	a := signup(t, ts, "")

	var run models.ProfitRun
	if status := do(t, ts, http.MethodPost, "/accounts/"+a.ID+"/profit-runs", "", &run); status != http.StatusCreated {
		t.Fatalf("status = %d", status)
	}
	if run.ProfitAmount.LessThan(profit.DefaultMinProfit) || run.ProfitAmount.GreaterThan(profit.DefaultMaxProfit) {
		t.Errorf("profit %s outside the default range", run.ProfitAmount)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", models.ErrDuplicateKey), http.StatusConflict},
		{models.ErrReferralCycle, http.StatusConflict},
		{models.ErrReconciliation, http.StatusConflict},
		{models.ErrInvalidAmount, http.StatusBadRequest},
		{models.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	s := &Server{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	s.writeError(rec, req, errors.New("password=hunter2"))
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "hunter2") {
		t.Errorf("response = %d %s", rec.Code, rec.Body.String())
	}
}
