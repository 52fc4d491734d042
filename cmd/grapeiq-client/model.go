package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grapeiq/internal/config"
	"grapeiq/internal/dashboard"
	"grapeiq/internal/forecast"
	"grapeiq/internal/render"
	"grapeiq/internal/session"
	"grapeiq/pkg/grapeiq"
)

// Styles.
var (
	brandStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5F5DC")).Background(lipgloss.Color("#640E1B"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	staleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	loginBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#A52A2A")).
			Padding(1, 3)
)

const invalidCredentials = "Credenciales incorrectas."

type screen int

const (
	screenLogin screen = iota
	screenDashboard
)

type prompt int

const (
	promptNone prompt = iota
	promptFilter
	promptUpload
)

// Messages.
type loginMsg struct {
	sess *session.Session
	err  error
}

type loadedMsg struct {
	snap     *dashboard.Snapshot
	forecast forecast.Result
	err      error
}

type forecastMsg struct {
	res forecast.Result
	err error
}

type uploadMsg struct {
	path string
	res  forecast.Result
	err  error
}

type exportMsg struct {
	paths []string
	err   error
}

// filterTickMsg fires after the debounce delay; it is applied only if no
// keystroke arrived since it was scheduled.
type filterTickMsg struct{ seq int }

// Model.
type model struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	client *grapeiq.Client
	logger *slog.Logger

	screen screen

	// Login.
	user      textinput.Model
	pass      textinput.Model
	loginErr  string
	loggingIn bool

	// Dashboard.
	sess      *session.Session
	flow      *forecast.Workflow
	snap      *dashboard.Snapshot
	result    forecast.Result
	board     *render.Board
	sales     *render.ListView
	products  *render.ListView
	inventory *render.ListView

	prompt    prompt
	input     textinput.Model
	filterSeq int
	// prevFilter is the filter active when the filter prompt opened.
	prevFilter string

	spinner spinner.Model
	busy    string
	status  string
	failed  bool

	viewport      viewport.Model
	ready         bool
	width, height int
}

func newModel(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, client *grapeiq.Client, logger *slog.Logger) model {
	user := textinput.New()
	user.Placeholder = "usuario"
	user.Prompt = "Usuario:     "
	user.CharLimit = 64
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "contraseña"
	pass.Prompt = "Contraseña:  "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.CharLimit = 128

	input := textinput.New()
	input.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		client:    client,
		logger:    logger,
		user:      user,
		pass:      pass,
		input:     input,
		spinner:   sp,
		board:     render.NewBoard(render.TermFactory{}),
		sales:     render.NewListView("Ventas"),
		products:  render.NewListView("Productos"),
		inventory: render.NewListView("Inventario"),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func (m model) loginCmd() tea.Cmd {
	ctx, client := m.ctx, m.client
	user, pass := strings.TrimSpace(m.user.Value()), m.pass.Value()
	return func() tea.Msg {
		sess, err := client.Login(ctx, user, pass)
		return loginMsg{sess: sess, err: err}
	}
}

func (m model) loadCmd() tea.Cmd {
	ctx, client, sess, flow := m.ctx, m.client, m.sess, m.flow
	parallel := m.cfg.Dashboard.MaxParallel
	return func() tea.Msg {
		snap, err := dashboard.Load(ctx, client, sess, parallel)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{snap: snap, forecast: flow.Load(ctx)}
	}
}

func (m model) forecastCmd() tea.Cmd {
	ctx, flow := m.ctx, m.flow
	return func() tea.Msg {
		res, err := flow.Run(ctx)
		return forecastMsg{res: res, err: err}
	}
}

func (m model) uploadCmd(path string) tea.Cmd {
	ctx, flow := m.ctx, m.flow
	return func() tea.Msg {
		res, err := flow.Upload(ctx, path)
		return uploadMsg{path: path, res: res, err: err}
	}
}

func (m model) exportCmd() tea.Cmd {
	board, dir := m.board, m.cfg.Dashboard.ExportDir
	return func() tea.Msg {
		paths, err := board.Export(dir)
		return exportMsg{paths: paths, err: err}
	}
}

func (m model) filterTick() tea.Cmd {
	seq := m.filterSeq
	return tea.Tick(m.cfg.Forecast.FilterDebounce, func(time.Time) tea.Msg {
		return filterTickMsg{seq: seq}
	})
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		vpHeight := max(m.height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.redraw()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m.updateLogin(msg)
		}
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateDashboard(msg)

	case loginMsg:
		m.loggingIn = false
		if msg.err != nil {
			m.logger.Warn("login failed", "error", msg.err)
			m.loginErr = invalidCredentials
			return m, nil
		}
		m.logger.Info("login ok", "subject", msg.sess.Subject())
		m.sess = msg.sess
		m.flow = forecast.New(m.client, m.sess, forecast.Options{
			InitialDelay: m.cfg.Forecast.InitialDelay,
			PollInterval: m.cfg.Forecast.PollInterval,
			PollTimeout:  m.cfg.Forecast.PollTimeout,
			SettlePolls:  m.cfg.Forecast.SettlePolls,
		}, m.logger)
		m.screen = screenDashboard
		m.pass.SetValue("")
		m.busy = "Cargando datos"
		return m, m.loadCmd()

	case loadedMsg:
		m.busy = ""
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("carga cancelada: %v", msg.err), true)
			return m, nil
		}
		m.snap = msg.snap
		m.result = msg.forecast
		m.setStatus("Datos actualizados "+msg.snap.LoadedAt.Format("15:04:05"), false)
		m.redraw()
		return m, nil

	case forecastMsg:
		m.busy = ""
		if msg.err != nil {
			m.logger.Error("forecast run failed", "error", msg.err)
			m.setStatus("No se pudo iniciar la predicción", true)
			return m, nil
		}
		m.result = msg.res
		if msg.res.Stale {
			m.setStatus("La predicción aún no ha terminado; mostrando los últimos resultados", true)
		} else {
			m.setStatus(fmt.Sprintf("Predicción lista: %d puntos", msg.res.Points), false)
		}
		m.redraw()
		return m, nil

	case uploadMsg:
		m.busy = ""
		m.result = msg.res
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Error al subir %s: %v", msg.path, msg.err), true)
		} else {
			m.setStatus("Archivo subido, predicciones actualizadas", false)
		}
		m.redraw()
		return m, nil

	case exportMsg:
		if msg.err != nil {
			m.logger.Error("export failed", "error", msg.err)
			m.setStatus(fmt.Sprintf("Error al exportar: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("%d gráficos exportados a %s", len(msg.paths), m.cfg.Dashboard.ExportDir), false)
		}
		return m, nil

	case filterTickMsg:
		if msg.seq != m.filterSeq || m.flow == nil {
			return m, nil
		}
		m.result = m.flow.Filter(m.input.Value())
		m.redraw()
		return m, nil
	}

	var cmd tea.Cmd
	if m.ready && m.screen == screenDashboard {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.cancel()
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		if m.user.Focused() {
			m.user.Blur()
			return m, m.pass.Focus()
		}
		m.pass.Blur()
		return m, m.user.Focus()
	case "enter":
		if m.user.Focused() {
			m.user.Blur()
			return m, m.pass.Focus()
		}
		if m.loggingIn {
			return m, nil
		}
		m.loggingIn = true
		m.loginErr = ""
		return m, m.loginCmd()
	}

	var cmd tea.Cmd
	if m.user.Focused() {
		m.user, cmd = m.user.Update(msg)
	} else {
		m.pass, cmd = m.pass.Update(msg)
	}
	return m, cmd
}

func (m model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.cancel()
		return m, tea.Quit
	case "f":
		if m.busy != "" {
			return m, nil
		}
		m.busy = "Ejecutando predicción"
		m.setStatus("Job de pronóstico iniciado. Los resultados aparecerán en breve.", false)
		return m, m.forecastCmd()
	case "r":
		if m.busy != "" {
			return m, nil
		}
		m.busy = "Cargando datos"
		return m, m.loadCmd()
	case "e":
		return m, m.exportCmd()
	case "/":
		m.prompt = promptFilter
		m.input.Prompt = "SKU: "
		m.input.Placeholder = "todos"
		m.prevFilter = m.result.Filter
		m.input.SetValue(m.result.Filter)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "u":
		if m.busy != "" {
			return m, nil
		}
		m.prompt = promptUpload
		m.input.Prompt = "Archivo (.csv/.xlsx/.xls): "
		m.input.Placeholder = ""
		m.input.SetValue("")
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.prompt == promptFilter {
			// Invalidate the pending debounce tick and undo any filter it
			// already applied.
			m.filterSeq++
			if m.result.Filter != m.prevFilter {
				m.result = m.flow.Filter(m.prevFilter)
				m.redraw()
			}
		}
		m.prompt = promptNone
		m.input.Blur()
		return m, nil
	case "enter":
		p := m.prompt
		m.prompt = promptNone
		m.input.Blur()
		value := strings.TrimSpace(m.input.Value())
		switch p {
		case promptFilter:
			m.filterSeq++
			m.result = m.flow.Filter(value)
			m.redraw()
			return m, nil
		case promptUpload:
			if value == "" {
				m.setStatus("Selecciona un archivo (.csv/.xlsx/.xls)", true)
				return m, nil
			}
			m.busy = "Subiendo " + value
			return m, m.uploadCmd(value)
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.prompt == promptFilter && m.input.Value() != before {
		m.filterSeq++
		return m, tea.Batch(cmd, m.filterTick())
	}
	return m, cmd
}

func (m *model) setStatus(s string, failed bool) {
	m.status, m.failed = s, failed
}

// redraw rebuilds the charts and lists and refreshes the viewport.
func (m *model) redraw() {
	if !m.ready || m.screen != screenDashboard {
		return
	}
	full := max(m.width-2, 40)
	half := full
	sideBySide := m.width >= 120
	if sideBySide {
		half = full/2 - 1
	}

	f := m.result.Chart
	specs := map[string]render.Spec{
		render.MountForecast:       withSize(render.ForecastSpec(f), full, 12),
		render.MountSalesBySKU:     withSize(render.SalesBySKUSpec(dashboard.Series{}), half, 0),
		render.MountSalesByChannel: withSize(render.ChannelSpec(dashboard.Series{}), half, 0),
	}
	if m.snap != nil {
		specs[render.MountSalesBySKU] = withSize(render.SalesBySKUSpec(m.snap.SKUSeries()), half, 0)
		specs[render.MountSalesByChannel] = withSize(render.ChannelSpec(m.snap.ChannelSeries()), half, 0)
		m.sales.Replace(render.SalesItems(m.snap.Sales))
		m.products.Replace(render.ProductItems(m.snap.Products))
		m.inventory.Replace(render.InventoryItems(m.snap.Inventory))
	}
	for _, mount := range render.Mounts {
		if _, err := m.board.Show(mount, specs[mount]); err != nil {
			m.logger.Error("drawing chart", "mount", mount, "error", err)
		}
	}

	m.viewport.SetContent(m.renderContent(sideBySide))
}

func withSize(s render.Spec, w, h int) render.Spec {
	s.Width, s.Height = w, h
	return s
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

func (m model) View() string {
	if !m.ready {
		return "Cargando..."
	}
	if m.screen == screenLogin {
		return m.loginView()
	}

	header := fmt.Sprintf(" GrapeIQ  %s ", m.client.Tenant(m.sess))
	if sub := m.sess.Subject(); sub != "" {
		header += fmt.Sprintf("   %s ", sub)
	}
	if m.snap != nil {
		header += fmt.Sprintf("   %s ", m.snap.LoadedAt.Format("15:04:05"))
	}
	headerBar := brandStyle.Render(padOrTrunc(header, m.width))

	var footer string
	switch {
	case m.prompt != promptNone:
		footer = m.input.View()
	case m.busy != "":
		footer = " " + m.spinner.View() + " " + m.busy + "..."
	case m.status != "":
		if m.failed {
			footer = " " + errorStyle.Render(m.status)
		} else {
			footer = " " + okStyle.Render(m.status)
		}
	default:
		footer = footerStyle.Render(padOrTrunc(
			fmt.Sprintf(" q salir  f predecir  / filtrar SKU  u subir dataset  e exportar  r recargar  %.0f%% ",
				m.viewport.ScrollPercent()*100),
			m.width))
	}

	return headerBar + "\n" + m.viewport.View() + "\n" + footer
}

func (m model) loginView() string {
	var b strings.Builder
	b.WriteString(brandStyle.Render(" GrapeIQ ") + "\n\n")
	b.WriteString(m.user.View() + "\n")
	b.WriteString(m.pass.View() + "\n\n")
	switch {
	case m.loggingIn:
		b.WriteString(m.spinner.View() + " Iniciando sesión...")
	case m.loginErr != "":
		b.WriteString(errorStyle.Render(m.loginErr))
	default:
		b.WriteString(dimStyle.Render("enter confirmar  tab cambiar campo  esc salir"))
	}
	box := loginBoxStyle.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m model) renderContent(sideBySide bool) string {
	var b strings.Builder
	b.WriteString(render.RenderKPIs(render.SnapshotKPIs(m.snap)))
	b.WriteString("\n\n")

	b.WriteString(m.board.View(render.MountForecast))
	b.WriteString(m.forecastStatus())
	b.WriteString("\n")

	sku := m.board.View(render.MountSalesBySKU)
	channel := m.board.View(render.MountSalesByChannel)
	if sideBySide {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, sku, "  ", channel))
	} else {
		b.WriteString(sku + "\n" + channel)
	}
	b.WriteString("\n")

	b.WriteString(m.sales.View(0, 0) + "\n")
	b.WriteString(m.products.View(0, 0) + "\n")
	b.WriteString(m.inventory.View(0, 0))
	return b.String()
}

func (m model) forecastStatus() string {
	r := m.result
	parts := []string{fmt.Sprintf("%s puntos", dashboard.FormatInt(int64(r.Points)))}
	if r.Filter != "" {
		parts = append(parts, "SKU "+r.Filter)
	}
	parts = append(parts, r.State.String())
	line := "  " + dimStyle.Render(strings.Join(parts, " · "))
	if r.Stale {
		line += "  " + staleStyle.Render("desactualizado")
	}
	return line + "\n"
}

func padOrTrunc(s string, width int) string {
	n := lipgloss.Width(s)
	if n >= width {
		r := []rune(s)
		if len(r) > width {
			return string(r[:max(width, 0)])
		}
		return s
	}
	return s + strings.Repeat(" ", width-n)
}
