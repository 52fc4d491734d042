package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grapeiq/internal/config"
	"grapeiq/pkg/grapeiq"
)

func testModel(t *testing.T) model {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("password") != "uva" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
	})
	mux.HandleFunc("GET /api/forecast/results/{tenant}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"sku":"A","date":"2024-06-01","predicted_qty":1},
			{"sku":"B","date":"2024-06-02","predicted_qty":2}
		]`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Default()
	cfg.API.BaseURL = srv.URL + "/api"
	cfg.Dashboard.ExportDir = t.TempDir()
	client := grapeiq.NewClient(cfg.API.BaseURL, grapeiq.WithTenant(cfg.API.TenantID), grapeiq.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := newModel(ctx, cancel, cfg, client, logger)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(model)
}

func typeText(m model, s string) (model, tea.Cmd) {
	var cmd tea.Cmd
	for _, r := range s {
		var next tea.Model
		next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(model)
	}
	return m, cmd
}

func press(m model, k tea.KeyType) (model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(model), cmd
}

func login(t *testing.T, m model, user, pass string) model {
	t.Helper()
	m, _ = typeText(m, user)
	m, _ = press(m, tea.KeyEnter)
	m, _ = typeText(m, pass)
	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	require.True(t, m.loggingIn)

	next, _ := m.Update(cmd())
	return next.(model)
}

func TestLoginFailureShowsGenericMessage(t *testing.T) {
	m := login(t, testModel(t), "bodega", "wrong")
	assert.Equal(t, screenLogin, m.screen)
	assert.Equal(t, invalidCredentials, m.loginErr)
	assert.Contains(t, m.View(), invalidCredentials)
}

func TestLoginLoadsDashboard(t *testing.T) {
	m := login(t, testModel(t), "bodega", "uva")
	require.Equal(t, screenDashboard, m.screen)
	assert.Empty(t, m.pass.Value())

	cmd := m.loadCmd()
	next, _ := m.Update(cmd())
	m = next.(model)

	require.NotNil(t, m.snap)
	assert.Equal(t, 2, m.result.Points)
	assert.Zero(t, m.snap.TotalSales)
	assert.Equal(t, 3, m.board.Live())
	view := m.viewport.View()
	assert.Contains(t, view, "0.00 €")
	assert.Contains(t, view, "Ventas por SKU")
}

func TestFilterDebounce(t *testing.T) {
	m := login(t, testModel(t), "bodega", "uva")
	next, _ := m.Update(m.loadCmd()())
	m = next.(model)

	m, _ = typeText(m, "/")
	require.Equal(t, promptFilter, m.prompt)

	m, _ = typeText(m, "A")
	staleSeq := m.filterSeq
	m, _ = typeText(m, "B")

	// A tick scheduled before the last keystroke is ignored.
	next, _ = m.Update(filterTickMsg{seq: staleSeq})
	m = next.(model)
	assert.Empty(t, m.result.Filter)

	next, _ = m.Update(filterTickMsg{seq: m.filterSeq})
	m = next.(model)
	assert.Equal(t, "AB", m.result.Filter)
	assert.Empty(t, m.result.Chart.Series)

	// Enter applies immediately and closes the prompt.
	m, _ = press(m, tea.KeyBackspace)
	m, _ = press(m, tea.KeyEnter)
	assert.Equal(t, promptNone, m.prompt)
	assert.Equal(t, "A", m.result.Filter)
	require.Len(t, m.result.Chart.Series, 1)
}

func TestFilterEscCancelsPendingTick(t *testing.T) {
	m := login(t, testModel(t), "bodega", "uva")
	next, _ := m.Update(m.loadCmd()())
	m = next.(model)

	m, _ = typeText(m, "/")
	m, _ = typeText(m, "A")
	pending := m.filterSeq
	m, _ = press(m, tea.KeyEsc)
	assert.Equal(t, promptNone, m.prompt)

	next, _ = m.Update(filterTickMsg{seq: pending})
	m = next.(model)
	assert.Empty(t, m.result.Filter)
	assert.Len(t, m.result.Chart.Series, 2)
}

func TestFilterEscRestoresPreviousFilter(t *testing.T) {
	m := login(t, testModel(t), "bodega", "uva")
	next, _ := m.Update(m.loadCmd()())
	m = next.(model)

	m, _ = typeText(m, "/")
	m, _ = typeText(m, "A")
	next, _ = m.Update(filterTickMsg{seq: m.filterSeq})
	m = next.(model)
	require.Equal(t, "A", m.result.Filter)

	m, _ = press(m, tea.KeyEsc)
	assert.Empty(t, m.result.Filter)
	assert.Len(t, m.result.Chart.Series, 2)
}

func TestUploadPromptRequiresPath(t *testing.T) {
	m := login(t, testModel(t), "bodega", "uva")
	next, _ := m.Update(m.loadCmd()())
	m = next.(model)

	m, _ = typeText(m, "u")
	require.Equal(t, promptUpload, m.prompt)

	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.True(t, m.failed)
	assert.True(t, strings.Contains(m.status, "Selecciona un archivo"))
}

func TestQuitCancelsContext(t *testing.T) {
	m := login(t, testModel(t), "bodega", "uva")
	m, cmd := typeText(m, "q")
	require.NotNil(t, cmd)
	assert.Error(t, m.ctx.Err())
}

func TestPadOrTrunc(t *testing.T) {
	assert.Equal(t, "ab   ", padOrTrunc("ab", 5))
	assert.Equal(t, "abc", padOrTrunc("abcdef", 3))
	assert.Equal(t, "€€", padOrTrunc("€€€", 2))
}
