package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/weaverun/weaverun/internal/config"
	"github.com/weaverun/weaverun/internal/logstore"
	"github.com/weaverun/weaverun/internal/metrics"
	"github.com/weaverun/weaverun/internal/proxy"
	"github.com/weaverun/weaverun/internal/sink"
)

const (
	portRangeStart = 7777
	portRangeTries = 100
	readyTimeout   = 10 * time.Second
	drainTimeout   = 5 * time.Second
)

var proxyAll bool

var runCmd = &cobra.Command{
	Use:   "run -- <command> [args...]",
	Short: "Run a command with its LLM API calls logged and dashboarded",
	Long: `Starts the proxy on a free local port, points the child command's
OPENAI_BASE_URL at it, and runs the command. Anything after -- is passed
through untouched.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVarP(&proxyAll, "proxy-all", "p", false,
		"route all HTTP/HTTPS traffic through the proxy, not just OPENAI_BASE_URL")
}

func runRun(cmd *cobra.Command, args []string) error {
	childArgs := args
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		childArgs = args[dash:]
	}
	if len(childArgs) == 0 {
		return errors.New("no command provided (usage: weaverun run [--proxy-all] -- <command> [args...])")
	}

	port, err := findFreePort(portRangeStart, portRangeTries)
	if err != nil {
		return err
	}

	statusf("Starting proxy on port %d...", port)
	srv, httpServer, err := startProxy(port)
	if err != nil {
		statusf("Error: %v", err)
		os.Exit(1)
	}

	if !waitForPort(port, readyTimeout) {
		statusf("Error: proxy failed to start")
		os.Exit(1)
	}
	statusf("Proxy ready")
	statusf("Dashboard: http://127.0.0.1:%d/__weaverun__", port)

	exitCode := runChild(port, childArgs)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	_ = httpServer.Close()

	statusf("Done (exit code: %d)", exitCode)
	os.Exit(exitCode)
	return nil
}

// startProxy wires every injected dependency the proxy needs and starts
// listening in the background. The sink worker is always built — its
// HTTPClient no-ops gracefully (see internal/sink) when no project is
// configured, so there's nothing here to branch on.
func startProxy(port int) (*proxy.Server, *http.Server, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	store := logstore.New()

	// reg and sinkWorker are mutually referential (the queue-depth gauge
	// reads the worker, the worker counts drops into the registry), so the
	// worker variable is declared ahead of its own construction and the
	// gauge's closure captures it by reference.
	var sinkWorker *sink.Worker
	reg := metrics.New(func() float64 {
		if sinkWorker == nil {
			return 0
		}
		return float64(sinkWorker.Depth())
	})
	sinkWorker = sink.NewWorker(sink.NewHTTPClient(os.Getenv("WEAVE_SINK_URL"), &http.Client{Timeout: 10 * time.Second}), reg)

	srv := proxy.New(cfg, proxy.NewUpstreamClient(), store, sinkWorker, reg)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: srv,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			statusf("proxy error: %v", err)
		}
	}()

	return srv, httpServer, nil
}

// runChild spawns childArgs with a rewritten environment and blocks until it
// exits or the process receives SIGINT, mirroring its exit code per §6.
func runChild(port int, childArgs []string) int {
	statusf("Running: %s", strings.Join(childArgs, " "))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)

	c := exec.Command(childArgs[0], childArgs[1:]...)
	c.Env = buildChildEnv(port, childArgs[0])
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	if err := c.Start(); err != nil {
		statusf("Error: %v", err)
		return 1
	}

	done := make(chan error, 1)
	go func() { done <- c.Wait() }()

	select {
	case <-sigCh:
		return 130
	case err := <-done:
		if err == nil {
			return 0
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		statusf("Error: %v", err)
		return 1
	}
}

// buildChildEnv implements the env rewriting from §6: the original
// OPENAI_BASE_URL (if any) is preserved for the Upstream Resolver, the
// child's own OPENAI_BASE_URL is pointed at the proxy, and a fresh run
// identity is stamped for the sink to forward as attributes.
func buildChildEnv(port int, appName string) []string {
	env := os.Environ()
	proxyURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	if original := os.Getenv("OPENAI_BASE_URL"); original != "" {
		env = setEnv(env, "WEAVE_ORIGINAL_OPENAI_BASE_URL", original)
	}
	env = setEnv(env, "OPENAI_BASE_URL", proxyURL)
	env = setEnv(env, "WEAVE_RUN_ID", uuid.NewString())
	env = setEnv(env, "WEAVE_APP_NAME", appName)

	if proxyAll {
		statusf("Proxy mode: ALL HTTP traffic (--proxy-all)")
		env = setEnv(env, "HTTP_PROXY", proxyURL)
		env = setEnv(env, "HTTPS_PROXY", proxyURL)
		env = setEnv(env, "NO_PROXY", fmt.Sprintf("127.0.0.1:%d", port))
	}

	return env
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

func findFreePort(start, attempts int) (int, error) {
	for i := 0; i < attempts; i++ {
		port := start + i
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port found (tried %d-%d)", start, start+attempts-1)
}

func waitForPort(port int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

func statusf(format string, args ...any) {
	fmt.Printf("\033[36mweaverun:\033[0m %s\n", fmt.Sprintf(format, args...))
}
