package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/joho/godotenv"

	"grapeiq/internal/config"
	"grapeiq/internal/dashboard"
	"grapeiq/internal/forecast"
	"grapeiq/internal/render"
	"grapeiq/internal/session"
	"grapeiq/internal/util"
	"grapeiq/pkg/grapeiq"
)

const version = "0.1.0"

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C08081")).Padding(0, 1)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: grapeiq-cli <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  version              Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "  kpis                 Show sales and inventory totals\n")
	fmt.Fprintf(os.Stderr, "  sales                List sales records\n")
	fmt.Fprintf(os.Stderr, "  products             List products\n")
	fmt.Fprintf(os.Stderr, "  inventory            List inventory records\n")
	fmt.Fprintf(os.Stderr, "  forecast [-sku S] [-run]\n")
	fmt.Fprintf(os.Stderr, "                       Show forecast results, optionally running a new job\n")
	fmt.Fprintf(os.Stderr, "  upload <file>        Upload a sales dataset (.csv/.xlsx/.xls)\n")
	fmt.Fprintf(os.Stderr, "  export <dir>         Write the dashboard charts as PNG files\n")
	fmt.Fprintf(os.Stderr, "\nCommon options: -config FILE -user NAME -password PASS\n")
	fmt.Fprintf(os.Stderr, "Credentials default to GRAPEIQ_USERNAME / GRAPEIQ_PASSWORD.\n")
	fmt.Fprintf(os.Stderr, "Backends that still gate /forecast on a shared secret need FORECAST_SECRET\n")
	fmt.Fprintf(os.Stderr, "(or forecast.secret in the config); without it forecast results come back empty.\n\n")
}

// app is the state shared by every command after login.
type app struct {
	cfg    *config.Config
	client *grapeiq.Client
	sess   *session.Session
	log    *slog.Logger
}

func (a *app) workflow() *forecast.Workflow {
	return forecast.New(a.client, a.sess, forecast.Options{
		InitialDelay: a.cfg.Forecast.InitialDelay,
		PollInterval: a.cfg.Forecast.PollInterval,
		PollTimeout:  a.cfg.Forecast.PollTimeout,
		SettlePolls:  a.cfg.Forecast.SettlePolls,
	}, a.log)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		if errors.Is(err, errUsage) {
			usage()
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

func run(cmd string, args []string) error {
	switch cmd {
	case "version":
		fmt.Printf("grapeiq-cli %s\n", version)
		return nil
	case "help", "-h", "--help":
		usage()
		return nil
	}

	runCmd, ok := commands[cmd]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	// .env is optional.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	user := fs.String("user", os.Getenv("GRAPEIQ_USERNAME"), "username")
	password := fs.String("password", os.Getenv("GRAPEIQ_PASSWORD"), "password")
	sku := fs.String("sku", "", "forecast: only show this SKU")
	runJob := fs.Bool("run", false, "forecast: trigger a new job and wait for it")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	util.SetDefault(logger)

	client := grapeiq.NewClient(cfg.API.BaseURL,
		grapeiq.WithTenant(cfg.API.TenantID),
		grapeiq.WithForecastSecret(cfg.Forecast.Secret),
		grapeiq.WithTimeout(cfg.API.Timeout),
		grapeiq.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		grapeiq.WithLogger(logger),
	)
	sess, err := client.Login(ctx, *user, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	a := &app{cfg: cfg, client: client, sess: sess, log: logger}
	opts := cmdOptions{args: fs.Args(), sku: *sku, run: *runJob}
	if err := runCmd(ctx, a, opts); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

type cmdOptions struct {
	args []string
	sku  string
	run  bool
}

var commands = map[string]func(context.Context, *app, cmdOptions) error{
	"kpis":      cmdKPIs,
	"sales":     cmdSales,
	"products":  cmdProducts,
	"inventory": cmdInventory,
	"forecast":  cmdForecast,
	"upload":    cmdUpload,
	"export":    cmdExport,
}

func printTable(title string, headers []string, rows [][]string) {
	fmt.Println(headerStyle.Render(title))
	if len(rows) == 0 {
		fmt.Println("  " + render.NoData)
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#640E1B"))).
		Headers(headers...).
		Rows(rows...)
	fmt.Println(t.Render())
}

func fieldRows(items [][]render.Field) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := make([]string, 0, len(item))
		for _, f := range item {
			row = append(row, f.Value)
		}
		rows = append(rows, row)
	}
	return rows
}

func cmdKPIs(ctx context.Context, a *app, _ cmdOptions) error {
	snap, err := dashboard.Load(ctx, a.client, a.sess, a.cfg.Dashboard.MaxParallel)
	if err != nil {
		return err
	}
	fmt.Println(render.RenderKPIs(render.SnapshotKPIs(snap)))

	ch := snap.ChannelSeries()
	rows := make([][]string, 0, ch.Len())
	for i, label := range ch.Labels {
		rows = append(rows, []string{label, dashboard.FormatCompact(ch.Values[i]), dashboard.FormatShare(ch.Values[i], ch.Total())})
	}
	printTable("Ventas por canal", []string{"Canal", "Valor", "%"}, rows)
	return nil
}

func cmdSales(ctx context.Context, a *app, _ cmdOptions) error {
	printTable("Ventas", []string{"SKU", "Cantidad", "Precio"}, fieldRows(render.SalesItems(a.client.Sales(ctx, a.sess))))
	return nil
}

func cmdProducts(ctx context.Context, a *app, _ cmdOptions) error {
	printTable("Productos", []string{"SKU", "Nombre", "Categoría"}, fieldRows(render.ProductItems(a.client.Products(ctx, a.sess))))
	return nil
}

func cmdInventory(ctx context.Context, a *app, _ cmdOptions) error {
	printTable("Inventario", []string{"SKU", "Cantidad", "Ubicación"}, fieldRows(render.InventoryItems(a.client.Inventory(ctx, a.sess))))
	return nil
}

func cmdForecast(ctx context.Context, a *app, o cmdOptions) error {
	flow := a.workflow()

	if o.run {
		fmt.Fprintln(os.Stderr, "running forecast job...")
		if _, err := flow.Run(ctx); err != nil {
			return err
		}
	} else {
		flow.Load(ctx)
	}
	res := flow.Filter(o.sku)

	c, err := render.TermFactory{}.Create(render.ForecastSpec(res.Chart))
	if err != nil {
		return err
	}
	fmt.Print(c.(render.Viewer).View())
	if res.Stale {
		fmt.Fprintln(os.Stderr, "results were not refreshed before the timeout; showing the latest ones")
	}

	headers := append([]string{"Fecha"}, skuNames(res.Chart)...)
	rows := make([][]string, 0, len(res.Chart.Dates))
	for i, d := range res.Chart.Dates {
		row := []string{d}
		for _, s := range res.Chart.Series {
			if smp := s.Samples[i]; smp.Present {
				row = append(row, dashboard.FormatCompact(smp.Qty))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}
	printTable("Unidades previstas", headers, rows)
	return nil
}

func skuNames(c dashboard.ForecastChart) []string {
	out := make([]string, len(c.Series))
	for i, s := range c.Series {
		out[i] = s.SKU
	}
	return out
}

func cmdUpload(ctx context.Context, a *app, o cmdOptions) error {
	if len(o.args) != 1 {
		return fmt.Errorf("%w: grapeiq-cli upload <file>", errUsage)
	}
	res, err := a.workflow().Upload(ctx, o.args[0])
	fmt.Printf("forecast points after reload: %s\n", dashboard.FormatInt(int64(res.Points)))
	return err
}

func cmdExport(ctx context.Context, a *app, o cmdOptions) error {
	dir := a.cfg.Dashboard.ExportDir
	if len(o.args) > 0 {
		dir = o.args[0]
	}

	snap, err := dashboard.Load(ctx, a.client, a.sess, a.cfg.Dashboard.MaxParallel)
	if err != nil {
		return err
	}
	res := a.workflow().Load(ctx)

	board := render.NewBoard(render.PNGFactory{})
	specs := map[string]render.Spec{
		render.MountForecast:       render.ForecastSpec(res.Chart),
		render.MountSalesBySKU:     render.SalesBySKUSpec(snap.SKUSeries()),
		render.MountSalesByChannel: render.ChannelSpec(snap.ChannelSeries()),
	}
	for _, m := range render.Mounts {
		if _, err := board.Show(m, specs[m]); err != nil {
			return err
		}
	}
	paths, err := board.Export(dir)
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(paths, "\n"))
	return nil
}
