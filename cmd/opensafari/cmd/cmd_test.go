package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codypharm/Opensafari/internal/rpc"
)

type testConsoleWriter struct {
	mu    sync.Mutex
	lines []string
}

func (w *testConsoleWriter) Println(a ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := fmt.Sprintln(a...)
	w.lines = append(w.lines, s[:len(s)-1]) // remove newline
}

func (w *testConsoleWriter) Print(a ...any) {
	w.Println(a...)
}

func (w *testConsoleWriter) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

func setupTestConsoleWriter(t *testing.T) *testConsoleWriter {
	w := &testConsoleWriter{}
	prev := consoleWriter
	consoleWriter = w
	t.Cleanup(func() { consoleWriter = prev })
	return w
}

func execCmd(ctx context.Context, homeDir, args string) error {
	app := New()
	app.baseCmd.SetArgs(append(strings.Split(args, " "), "--home", homeDir))
	return app.Execute(ctx)
}

func verifyStdout(t *testing.T, w *testConsoleWriter, expected ...string) {
	lines := w.Lines()
	for _, exp := range expected {
		found := false
		for _, line := range lines {
			if strings.Contains(line, exp) {
				found = true
				break
			}
		}
		require.True(t, found, "line %q not found in output:\n%s", exp, strings.Join(lines, "\n"))
	}
}

func TestAccountsCmd(t *testing.T) {
	w := setupTestConsoleWriter(t)
	require.NoError(t, execCmd(context.Background(), t.TempDir(), "accounts --count 3"))
	require.Len(t, w.Lines(), 3)
	verifyStdout(t, w,
		"Account #0: 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 (m/44'/60'/0'/0/0)",
		"Account #1: 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 (m/44'/60'/0'/0/1)",
		"Account #2: 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC (m/44'/60'/0'/0/2)",
	)
}

func TestAccountsCmd_InvalidMnemonic(t *testing.T) {
	setupTestConsoleWriter(t)
	err := execCmd(context.Background(), t.TempDir(), "accounts --mnemonic not-a-mnemonic")
	require.Error(t, err)
}

func TestAccountsCmd_Generate(t *testing.T) {
	w := setupTestConsoleWriter(t)
	require.NoError(t, execCmd(context.Background(), t.TempDir(), "accounts --generate --count 2"))
	lines := w.Lines()
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "Mnemonic: "))
	mnemonic := strings.TrimPrefix(lines[0], "Mnemonic: ")
	require.Len(t, strings.Fields(mnemonic), 12)
	require.NotContains(t, lines[1], "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	// printed mnemonic derives the same accounts
	w2 := setupTestConsoleWriter(t)
	app := New()
	app.baseCmd.SetArgs([]string{"accounts", "--count", "2", "--mnemonic", mnemonic, "--home", t.TempDir()})
	require.NoError(t, app.Execute(context.Background()))
	require.Equal(t, lines[1:], w2.Lines())

	err := execCmd(context.Background(), t.TempDir(), "accounts --generate --mnemonic x")
	require.ErrorContains(t, err, "mutually exclusive")
}

func TestAccountsCmd_CountFromEnv(t *testing.T) {
	w := setupTestConsoleWriter(t)
	t.Setenv("OPENSAFARI_COUNT", "2")
	require.NoError(t, execCmd(context.Background(), t.TempDir(), "accounts"))
	require.Len(t, w.Lines(), 2)
}

func TestAccountsCmd_CountFromConfigFile(t *testing.T) {
	w := setupTestConsoleWriter(t)
	homeDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(homeDir, defaultConfigFile), []byte("count=4\n"), 0600))
	require.NoError(t, execCmd(context.Background(), homeDir, "accounts"))
	require.Len(t, w.Lines(), 4)

	// flag has precedence over the config file
	w.lines = nil
	require.NoError(t, execCmd(context.Background(), homeDir, "accounts --count 1"))
	require.Len(t, w.Lines(), 1)
}

func TestLoggerConfigFile_NotFound(t *testing.T) {
	setupTestConsoleWriter(t)
	err := execCmd(context.Background(), t.TempDir(), "accounts --logger-config missing.yaml")
	require.ErrorContains(t, err, "opening logger configuration file")
}

func TestScenarioCmd_InMemory(t *testing.T) {
	w := setupTestConsoleWriter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, execCmd(ctx, t.TempDir(), "scenario"))
	verifyStdout(t, w,
		"OpenSafariToken deployed at 0x",
		"by 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		"Balance after deploy: 1000000 OST",
		"Balance after mint: 2000000 OST",
		"Scenario passed",
	)
}

func TestScenarioCmd_CustomAmounts(t *testing.T) {
	w := setupTestConsoleWriter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, execCmd(ctx, t.TempDir(), "scenario --initial-supply 10.5 --mint-amount 0.25"))
	verifyStdout(t, w, "Balance after deploy: 10.5 OST", "Balance after mint: 10.75 OST")
}

func TestScenarioCmd_InvalidAmount(t *testing.T) {
	setupTestConsoleWriter(t)
	err := execCmd(context.Background(), t.TempDir(), "scenario --mint-amount -1")
	require.ErrorContains(t, err, "invalid mint-amount")
}

func TestScenarioCmd_NodeNotReachable(t *testing.T) {
	setupTestConsoleWriter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := execCmd(ctx, t.TempDir(), "scenario --url http://"+freeAddress(t))
	require.ErrorContains(t, err, "is not reachable")
}

func TestNodeCmd_ScenarioOverREST(t *testing.T) {
	w := setupTestConsoleWriter(t)
	addr := freeAddress(t)
	homeDir := t.TempDir()
	dbFile := filepath.Join(homeDir, "chain", "blocks.db")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nodeDone := make(chan error, 1)
	go func() {
		nodeDone <- execCmd(ctx, homeDir, fmt.Sprintf("node --address %s --accounts 2 --db %s", addr, dbFile))
	}()

	c, err := rpc.NewClient(addr)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		accounts, err := c.Accounts(ctx)
		return err == nil && len(accounts) == 2
	}, 5*time.Second, 50*time.Millisecond)

	scenarioCtx, scenarioCancel := context.WithTimeout(ctx, 10*time.Second)
	defer scenarioCancel()
	require.NoError(t, execCmd(scenarioCtx, t.TempDir(), "scenario --url http://"+addr))
	verifyStdout(t, w,
		"Account #1: 0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		"REST API listening on http://"+addr+"/api/v1",
		"Balance after mint: 2000000 OST",
	)

	n, err := c.BlockNumber(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	cancel()
	select {
	case err := <-nodeDone:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("node did not stop")
	}
	require.FileExists(t, dbFile)
}

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}
