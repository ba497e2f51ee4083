package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"tradenotify/internal/security"
)

// tokenByteLength gives the API token 256 bits of entropy (64 hex chars).
const tokenByteLength = 32

// Secret is one inventory entry: the env var the relay reads and the SSM
// key it is stored under.
type Secret struct {
	EnvVar   string
	SSMKey   string
	Generate bool // created locally instead of asked for
}

// Inventory lists every secret the relay resolves through *_SSM_PARAM.
var Inventory = []Secret{
	{EnvVar: "API_SECRET_TOKEN", SSMKey: "auth/api_secret_token", Generate: true},
	{EnvVar: "DISCORD_WEBHOOK_URL", SSMKey: "discord/webhook_url"},
}

// GenerateSecureToken returns 32 random bytes, hex-encoded.
func GenerateSecureToken() (string, error) {
	buf := make([]byte, tokenByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating secure token: crypto/rand failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Runner walks the inventory and writes missing parameters.
type Runner struct {
	SSM *SSMManager

	// Rotate overwrites parameters that already exist.
	Rotate bool

	// WebhookURL is used for DISCORD_WEBHOOK_URL when set; otherwise the
	// operator is prompted on In.
	WebhookURL string

	In  io.Reader
	Out io.Writer
}

// Run writes each inventory entry that is missing (or all of them with
// Rotate) and prints the *_SSM_PARAM lines for the deployment.
func (r *Runner) Run(ctx context.Context) error {
	reader := bufio.NewReader(r.In)

	for _, s := range Inventory {
		path := r.SSM.SSMPath(s.SSMKey)

		exists, err := r.SSM.ParameterExists(ctx, path)
		if err != nil {
			return err
		}
		if exists && !r.Rotate {
			fmt.Fprintf(r.Out, "  %-22s already set, skipping\n", s.EnvVar)
			continue
		}

		value, err := r.valueFor(s, reader)
		if err != nil {
			return err
		}
		if err := r.SSM.PutSecret(ctx, path, value, exists); err != nil {
			return err
		}
		fmt.Fprintf(r.Out, "  %-22s written\n", s.EnvVar)
	}

	fmt.Fprintln(r.Out)
	fmt.Fprintln(r.Out, "Set these on the API and SQS relay functions:")
	for _, s := range Inventory {
		fmt.Fprintf(r.Out, "  %s_SSM_PARAM=%s\n", s.EnvVar, r.SSM.SSMPath(s.SSMKey))
	}
	return nil
}

func (r *Runner) valueFor(s Secret, reader *bufio.Reader) (string, error) {
	if s.Generate {
		return GenerateSecureToken()
	}

	value := r.WebhookURL
	if value == "" {
		fmt.Fprintf(r.Out, "Enter %s: ", s.EnvVar)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading %s: %w", s.EnvVar, err)
		}
		value = strings.TrimSpace(line)
	}
	if err := security.CheckWebhookURL(value); err != nil {
		return "", fmt.Errorf("%s: %w", s.EnvVar, err)
	}
	return value, nil
}

// ExportEnvFile reads every inventory parameter back and writes them to
// path as a .env file for local development.
func ExportEnvFile(ctx context.Context, m *SSMManager, path string) error {
	env := map[string]string{
		"APP_ENV":                        "local",
		"WEBHOOK_BLOCK_PRIVATE_NETWORKS": "true",
	}
	for _, s := range Inventory {
		v, err := m.GetParameterValue(ctx, m.SSMPath(s.SSMKey))
		if err != nil {
			return err
		}
		env[s.EnvVar] = v
	}

	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// inventoryEnvVars is used in the banner.
func inventoryEnvVars() []string {
	set := make(map[string]struct{}, len(Inventory))
	for _, s := range Inventory {
		set[s.EnvVar] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}
