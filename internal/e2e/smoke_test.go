package e2e

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/bnema/oabot/internal/adapters/fifo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeVocabularyFixture(home))

	stdout, stderr, err := runOABot(t, binaryPath, home, "config", "vocabulary")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "lobby\tmove to \"Team Lobby\"")
	assert.Contains(t, stdout, "hush\tmute \"Core\"")

	path := filepath.Join(t.TempDir(), "oabot")
	_, stderr, err = runOABot(t, binaryPath, home, "send", "lobby", "--path", path)
	require.Error(t, err)
	assert.Contains(t, stderr, "control channel i/o")

	channel := fifo.NewChannel(path)
	require.NoError(t, channel.Ensure())
	reader, err := channel.Open(context.Background())
	require.NoError(t, err)
	defer reader.Close()

	_, stderr, err = runOABot(t, binaryPath, home, "send", "hush", "--path", path)
	require.NoError(t, err, "stderr: %s", stderr)

	scanner := bufio.NewScanner(reader)
	require.True(t, scanner.Scan())
	assert.Equal(t, "hush", scanner.Text())
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "oabot-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/oabot")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build oabot binary: %s", string(output))
	return binaryPath
}

func runOABot(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home, "OABOT_CONFIG=", "DISCORD_TOKEN=")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeVocabularyFixture(home string) error {
	configDir := filepath.Join(home, ".config", "oabot")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	vocabulary := `version = 1

[[commands]]
word = "afk"
room = "AFK"

[[commands]]
word = "lobby"
action = "move"
room = "Team Lobby"

[[commands]]
word = "hush"
action = "mute"
room = "Core"
`

	return os.WriteFile(filepath.Join(configDir, "vocabulary.toml"), []byte(vocabulary), 0o644)
}
