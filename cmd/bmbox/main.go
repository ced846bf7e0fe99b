package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmbox/internal/dom"
	"github.com/nikbrunner/bmbox/internal/exporter"
	"github.com/nikbrunner/bmbox/internal/panel"
	"github.com/nikbrunner/bmbox/internal/provider"
	"github.com/nikbrunner/bmbox/internal/server"
	"github.com/nikbrunner/bmbox/internal/tui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fail(err)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "bmbox",
		Short:         "Bookmark box for the new tab page",
		Long:          "Renders browser bookmarks as collapsible folder sections with cached favicons.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/bmbox/config.json)")

	cmd.AddCommand(newTUICmd(&configPath))
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newRenderCmd(&configPath))
	cmd.AddCommand(newToggleCmd(&configPath))
	cmd.AddCommand(newRefreshCmd(&configPath))
	cmd.AddCommand(newWarmCmd(&configPath))
	cmd.AddCommand(newBarCmd(&configPath))
	cmd.AddCommand(newExportCmd(&configPath))

	return cmd
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newTUICmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse the bookmark box in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), *configPath)
		},
	}
}

func runTUI(parent context.Context, configPath string) error {
	a, err := setup(setupOptions{configPath: configPath, logToFile: true})
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(contextOrBackground(parent))
	defer cancel()

	notifier := tui.NewNotifier()
	defer notifier.Close()

	engine, err := a.newEngine(ctx, notifier, nil)
	if err != nil {
		return err
	}

	model := tui.NewApp(tui.AppParams{Context: ctx, Engine: engine})
	p := tea.NewProgram(model, tea.WithAltScreen())
	notifier.Attach(p)

	a.watch(ctx, func() { engine.LoadAndRender(ctx) })

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the new tab page over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(setupOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			page := dom.DefaultPage()
			box, err := dom.NewBox(page)
			if err != nil {
				return err
			}
			engine, err := a.newEngine(ctx, box, page.WhenPresent(dom.BoxID))
			if err != nil {
				return err
			}
			box.Bind(engine)

			srv := server.New(server.Params{Context: ctx, Page: page, Box: box, Engine: engine})

			reload := func() {
				engine.LoadAndRender(ctx)
				if _, err := engine.LoadBar(ctx); err != nil {
					a.logger.WithError(err).Debug("Bookmark bar not loaded")
				}
			}
			reload()
			a.watch(ctx, reload)

			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe(addr) }()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving bookmark box on http://%s\n", addr)

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("Received stop signal")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func newRenderCmd(configPath *string) *cobra.Command {
	var out string
	var wait bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the new tab page to a file or stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(setupOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()
			ctx := contextOrBackground(cmd.Context())

			page := dom.DefaultPage()
			box, err := dom.NewBox(page)
			if err != nil {
				return err
			}
			engine, err := a.newEngine(ctx, box, page.WhenPresent(dom.BoxID))
			if err != nil {
				return err
			}
			box.Bind(engine)

			if wait {
				// A second pass picks up the icons fetched by the first
				engine.LoadAndRender(ctx)
				engine.Wait()
			}
			engine.LoadAndRender(ctx)
			if _, err := engine.LoadBar(ctx); err != nil {
				a.logger.WithError(err).Debug("Bookmark bar not loaded")
			}

			return writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				return page.Render(w)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&wait, "wait", false, "fetch missing favicons before rendering")
	return cmd
}

func newToggleCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Flip the persisted collapse state of the box",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(setupOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()

			engine, err := a.newEngine(contextOrBackground(cmd.Context()), nil, nil)
			if err != nil {
				return err
			}
			state := "expanded"
			if engine.TogglePanel() {
				state = "collapsed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bookmark box %s\n", state)
			return nil
		},
	}
}

func newRefreshCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-favicons",
		Short: "Clear the favicon cache and fetch every icon again",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(setupOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()
			ctx := contextOrBackground(cmd.Context())

			engine, err := a.newEngine(ctx, nil, nil)
			if err != nil {
				return err
			}
			engine.RefreshAll(ctx)
			engine.Wait()

			view := engine.View()
			if view.Status != panel.StatusReady {
				fmt.Fprintln(cmd.OutOrStdout(), view.Message)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cached %d favicons\n", engine.Icons().Cache().Len())
			return nil
		},
	}
}

func newWarmCmd(configPath *string) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Fetch favicons for every bookmark not yet cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(setupOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			engine, err := a.newEngine(ctx, nil, nil)
			if err != nil {
				return err
			}
			domains, err := engine.Domains(ctx)
			if err != nil {
				return fmt.Errorf("listing bookmarks: %w", err)
			}

			if concurrency <= 0 {
				concurrency = a.cfg.WarmConcurrency
			}
			w := cmd.ErrOrStderr()
			res := engine.Icons().Warm(ctx, domains, concurrency, func(done, total int) {
				fmt.Fprintf(w, "\rWarming favicons %d/%d", done, total)
			})
			fmt.Fprintln(w)
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d, failed %d, already cached %d, canceled %d\n",
				res.Fetched, res.Failed, res.Skipped, res.Canceled)
			return nil
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "parallel fetches (default from config)")
	return cmd
}

func newBarCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bar",
		Short: "List the bookmark bar",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(setupOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()
			ctx := contextOrBackground(cmd.Context())

			engine, err := a.newEngine(ctx, nil, nil)
			if err != nil {
				return err
			}
			links, err := engine.LoadBar(ctx)
			if errors.Is(err, provider.ErrUnavailable) {
				fmt.Fprintln(cmd.OutOrStdout(), panel.MsgUnavailable)
				return nil
			}
			if err != nil {
				return err
			}
			for _, l := range links {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", l.Title, l.URL)
			}
			return nil
		},
	}
}

func newExportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export bookmarks as Netscape bookmark HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(setupOptions{configPath: *configPath})
			if err != nil {
				return err
			}
			defer a.close()

			root, err := a.provider.GetTree(contextOrBackground(cmd.Context()))
			if err != nil {
				return fmt.Errorf("loading bookmarks: %w", err)
			}

			var out string
			if len(args) > 0 {
				out = args[0]
			} else {
				out, err = exporter.DefaultExportPath()
				if err != nil {
					return err
				}
			}

			html := exporter.ExportHTML(root, time.Now())
			if err := writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				_, err := io.WriteString(w, html)
				return err
			}); err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bookmarks to %s\n", len(root.Leaves()), out)
			}
			return nil
		},
	}
}

// writeOutput writes to stdout for "-" and to the named file otherwise.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "-" || path == "" {
		return write(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
