// peer.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"shareform/formsync"
	"shareform/logger"
	"shareform/models"
	"shareform/protocol"
	"shareform/services"
	"shareform/websocket"
)

const (
	joinTimeout   = 10 * time.Second
	settleTimeout = 5 * time.Second
)

var peerCmd = &cobra.Command{
	Use:   "peer",
	Short: "Join a form from the terminal",
	Long: `peer joins a shared form. Each stdin line of the form vm.prop=value is a
local edit; every update received from other peers is printed as vm.prop=value.
If the relay cannot be reached the peer keeps running with local-only edits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := peerOptions{
			appURL:     cfg.ApplicationURL,
			wsURL:      cfg.WebsocketURL,
			schemaPath: cfg.SchemaPath,
			quiet:      cfg.QuietPeriod,
		}
		if cmd.Flags().Changed("app") {
			opts.appURL, _ = cmd.Flags().GetString("app")
		}
		if cmd.Flags().Changed("url") {
			opts.wsURL, _ = cmd.Flags().GetString("url")
		}
		if cmd.Flags().Changed("quiet") {
			opts.quiet, _ = cmd.Flags().GetDuration("quiet")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runPeer(ctx, opts, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(peerCmd)
	peerCmd.Flags().String("app", "http://localhost:8080", "form page URL, used for the session and schema (overrides APPLICATION_URL)")
	peerCmd.Flags().String("url", "ws://localhost:8080/ws", "relay WebSocket URL (overrides WEBSOCKET_URL)")
	peerCmd.Flags().Duration("quiet", formsync.DefaultQuietPeriod, "debounce quiet period (overrides QUIET_PERIOD_MS)")
}

type peerOptions struct {
	appURL     string
	wsURL      string
	schemaPath string
	quiet      time.Duration
	httpClient *http.Client
}

// runPeer runs one terminal peer until in is exhausted or ctx is done.
func runPeer(ctx context.Context, opts peerOptions, in io.Reader, out io.Writer) error {
	joinCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	header, remote, joinErr := services.JoinForm(joinCtx, opts.httpClient, opts.appURL)
	cancel()
	if joinErr != nil {
		logger.Warn.Printf("[peer] could not join %s: %v", opts.appURL, joinErr)
	}

	schema, err := peerSchema(opts.schemaPath, remote)
	if err != nil {
		return err
	}

	updates := make(chan string, 64)
	client := websocket.NewClient(websocket.WithHeader(header))
	session := formsync.NewSession(client, services.SchemaFields(schema),
		formsync.WithSessionQuietPeriod(opts.quiet),
		formsync.WithRemoteUpdate(func(vm string) {
			// runs on the session loop; printing reads values back through it
			select {
			case updates <- vm:
			default:
				logger.Warn.Printf("[peer] update queue full; not printing %s", vm)
			}
		}))

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for vm := range updates {
			printViewModel(out, session, schema, vm)
		}
	}()

	if joinErr == nil {
		dialCtx, cancel := context.WithTimeout(ctx, joinTimeout)
		if err := client.Connect(dialCtx, opts.wsURL); err != nil {
			logger.Warn.Printf("[peer] %v; edits stay local", err)
		}
		cancel()
	}

	readEdits(ctx, in, session, out)

	waitSettled(session, schema, settleTimeout)
	err = session.Close()
	close(updates)
	<-printed
	return err
}

// peerSchema prefers a local schema file, then the relay's schema, then the
// default.
func peerSchema(path string, remote *models.FormSchema) (*models.FormSchema, error) {
	if path != "" || remote == nil {
		return services.LoadSchema(path)
	}
	return remote, nil
}

// readEdits applies every stdin line as a local edit until EOF or ctx is
// done.
func readEdits(ctx context.Context, in io.Reader, s *formsync.Session, out io.Writer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := applyEdit(s, line); err != nil {
				fmt.Fprintf(out, "! %v\n", err)
			}
		}
	}
}

// applyEdit parses "vm.prop=value" and writes the value with the property's
// kind.
func applyEdit(s *formsync.Session, line string) error {
	vm, prop, text, err := parseEdit(line)
	if err != nil {
		return err
	}
	kind, err := s.Kind(vm, prop)
	if err != nil {
		return err
	}
	v, err := protocol.ParseValue(kind, text)
	if err != nil {
		return err
	}
	return s.Edit(vm, prop, v)
}

func parseEdit(line string) (vm, prop, text string, err error) {
	key, text, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", "", fmt.Errorf("expected vm.prop=value, got %q", line)
	}
	vm, prop, ok = strings.Cut(strings.TrimSpace(key), ".")
	if !ok || vm == "" || prop == "" {
		return "", "", "", fmt.Errorf("expected vm.prop=value, got %q", line)
	}
	return vm, prop, text, nil
}

func printViewModel(out io.Writer, s *formsync.Session, schema *models.FormSchema, vm string) {
	for _, m := range schema.ViewModels {
		if m.Name != vm {
			continue
		}
		for _, p := range m.Properties {
			v, err := s.Value(vm, p.Name)
			if err != nil {
				continue
			}
			fmt.Fprintf(out, "%s.%s=%s\n", vm, p.Name, v)
		}
	}
}

// waitSettled gives pending debounced edits the chance to go out before the
// session closes.
func waitSettled(s *formsync.Session, schema *models.FormSchema, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		pending := false
		err := s.Do(func(r *formsync.Registry) {
			for _, f := range services.SchemaFields(schema) {
				if d, ok := r.Debounced(f.ViewModel, f.Property); ok && d.Pending() {
					pending = true
					return
				}
			}
		})
		if errors.Is(err, formsync.ErrSessionClosed) || !pending {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	logger.Warn.Println("[peer] gave up waiting for pending edits")
}
