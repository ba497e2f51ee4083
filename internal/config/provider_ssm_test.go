package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type fakeSSMClient struct {
	params  map[string]string
	err     error
	batches [][]string
}

func (f *fakeSSMClient) GetParameters(_ context.Context, in *ssm.GetParametersInput, _ ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	f.batches = append(f.batches, append([]string(nil), in.Names...))
	if f.err != nil {
		return nil, f.err
	}
	if in.WithDecryption == nil || !*in.WithDecryption {
		return nil, errors.New("decryption not requested")
	}

	out := &ssm.GetParametersOutput{}
	for _, name := range in.Names {
		if v, ok := f.params[name]; ok {
			out.Parameters = append(out.Parameters, ssmtypes.Parameter{Name: aws.String(name), Value: aws.String(v)})
		} else {
			out.InvalidParameters = append(out.InvalidParameters, name)
		}
	}
	return out, nil
}

func TestSSMProviderSatisfiesSecretProvider(t *testing.T) {
	var _ SecretProvider = NewSSMProvider("us-east-1", "")
}

func TestSSMProviderResolvesParameters(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{
		"/prod/tradenotify/discord_webhook_url": "https://discord.com/api/webhooks/1/abc",
		"/prod/tradenotify/api_secret_token":    "token-123",
	}}
	p := newSSMProviderWithClient("us-east-1", client)

	got, err := p.GetParametersBatch(context.Background(), []string{
		"/prod/tradenotify/discord_webhook_url",
		"/prod/tradenotify/api_secret_token",
	})
	if err != nil {
		t.Fatalf("GetParametersBatch returned error: %v", err)
	}
	if got["/prod/tradenotify/api_secret_token"] != "token-123" {
		t.Errorf("unexpected result: %v", got)
	}
	if len(client.batches) != 1 {
		t.Errorf("expected a single batch, got %d", len(client.batches))
	}
}

func TestSSMProviderBatchesByTen(t *testing.T) {
	params := make(map[string]string)
	keys := make([]string, 0, 23)
	for i := range 23 {
		k := fmt.Sprintf("/dev/param/%d", i)
		params[k] = "v"
		keys = append(keys, k)
	}
	client := &fakeSSMClient{params: params}

	got, err := newSSMProviderWithClient("us-east-1", client).GetParametersBatch(context.Background(), keys)
	if err != nil {
		t.Fatalf("GetParametersBatch returned error: %v", err)
	}
	if len(got) != 23 {
		t.Errorf("expected 23 values, got %d", len(got))
	}
	if len(client.batches) != 3 || len(client.batches[2]) != 3 {
		t.Errorf("expected batches of 10/10/3, got %v", client.batches)
	}
}

func TestSSMProviderInvalidParameter(t *testing.T) {
	client := &fakeSSMClient{params: map[string]string{}}
	_, err := newSSMProviderWithClient("us-east-1", client).GetParametersBatch(context.Background(), []string{"/missing"})
	if err == nil || !strings.Contains(err.Error(), "/missing") {
		t.Fatalf("expected not-found error naming the path, got %v", err)
	}
}

func TestSSMProviderClientError(t *testing.T) {
	client := &fakeSSMClient{err: errors.New("throttled")}
	_, err := newSSMProviderWithClient("us-east-1", client).GetParametersBatch(context.Background(), []string{"/a"})
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
}

func TestSSMProviderEmptyKeys(t *testing.T) {
	// No client is injected: an empty request must not touch AWS.
	got, err := NewSSMProvider("us-east-1", "").GetParametersBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil map, got %v", got)
	}
}

func TestSSMProviderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeSSMClient{params: map[string]string{"/a": "1"}}
	_, err := newSSMProviderWithClient("us-east-1", client).GetParametersBatch(ctx, []string{"/a"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(client.batches) != 0 {
		t.Error("no batch should be sent after cancellation")
	}
}
