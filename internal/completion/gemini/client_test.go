package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MarkoPoloResearchLab/smartpay/pkg/chat"
)

func TestNewClientRequiresAPIKey(test *testing.T) {
	test.Parallel()
	if _, err := NewClient(Config{}); err == nil {
		test.Fatalf("expected missing api key to fail")
	}
}

func TestCompleteSendsTranscriptAndReturnsReply(test *testing.T) {
	test.Parallel()
	var captured generateRequest
	var capturedPath, capturedKey string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		capturedPath = request.URL.Path
		capturedKey = request.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(request.Body).Decode(&captured); err != nil {
			test.Errorf("request decode failed: %v", err)
		}
		_, _ = writer.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"The answer "},{"text":"is 42."}]}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		test.Fatalf("client init failed: %v", err)
	}

	history := []chat.Turn{
		{Role: chat.RoleModel, Text: "Hello!"},
		{Role: chat.RoleUser, Text: "Hi."},
		{Role: chat.RoleModel, Text: "How can I help?"},
	}
	reply, err := client.Complete(context.Background(), "You are Oracle.", history, "What is the answer?")
	if err != nil {
		test.Fatalf("complete: %v", err)
	}
	if reply != "The answer is 42." {
		test.Fatalf("unexpected reply: %q", reply)
	}

	if capturedPath != "/v1beta/models/gemini-2.5-flash:generateContent" {
		test.Fatalf("unexpected path: %s", capturedPath)
	}
	if capturedKey != "test-key" {
		test.Fatalf("api key header not forwarded")
	}
	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "You are Oracle." {
		test.Fatalf("system instruction not forwarded: %+v", captured.SystemInstruction)
	}
	if len(captured.Contents) != 4 {
		test.Fatalf("expected history plus current turn, got %d contents", len(captured.Contents))
	}
	last := captured.Contents[len(captured.Contents)-1]
	if last.Role != string(chat.RoleUser) || last.Parts[0].Text != "What is the answer?" {
		test.Fatalf("unexpected final turn: %+v", last)
	}
	if captured.GenerationConfig.Temperature != defaultTemperature {
		test.Fatalf("unexpected temperature: %v", captured.GenerationConfig.Temperature)
	}
}

func TestCompleteReturnsErrorOnUpstreamFailure(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusTooManyRequests)
		_, _ = writer.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		test.Fatalf("client init failed: %v", err)
	}
	_, err = client.Complete(context.Background(), "", nil, "hello")
	if err == nil {
		test.Fatalf("expected upstream failure to surface")
	}
	if !strings.Contains(err.Error(), "429") {
		test.Fatalf("expected status in error, got %v", err)
	}
}

func TestCompleteFallsBackOnEmptyCandidates(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		test.Fatalf("client init failed: %v", err)
	}
	reply, err := client.Complete(context.Background(), "", nil, "hello")
	if err != nil {
		test.Fatalf("complete: %v", err)
	}
	if reply != emptyReplyFallback {
		test.Fatalf("expected fallback reply, got %q", reply)
	}
}

func TestCompleteFallsBackOnWhitespaceReply(test *testing.T) {
	test.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		_, _ = writer.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		test.Fatalf("client init failed: %v", err)
	}
	reply, err := client.Complete(context.Background(), "", nil, "hello")
	if err != nil {
		test.Fatalf("complete: %v", err)
	}
	if reply != emptyReplyFallback {
		test.Fatalf("expected fallback reply, got %q", reply)
	}
}
