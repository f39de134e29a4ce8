package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func sseChunk(content, finishReason string) string {
	reason := "null"
	if finishReason != "" {
		reason = fmt.Sprintf("%q", finishReason)
	}
	return fmt.Sprintf(`data: {"id":"1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q},"finish_reason":%s}]}`+"\n\n", content, reason)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = srv.URL + "/v1"
	client, err := NewOpenAIClientWithConfig(config, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	return client
}

func TestOpenAIClientStreamsDeltasUntilDone(t *testing.T) {
	var gotRequest openai.ChatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("Sure • ", ""))
		io.WriteString(w, sseChunk("with that.", "stop"))
		io.WriteString(w, "data: [DONE]\n\n")
	})

	history := NewHistory(Message{Role: RoleSystem, Content: "be brief"})
	history.Append(RoleUser, "hi")

	stream, err := client.Stream(context.Background(), history.Snapshot())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	first, err := stream.Recv()
	if err != nil || first.TextDelta != "Sure • " || first.Done {
		t.Fatalf("unexpected first chunk %+v (err=%v)", first, err)
	}
	last, err := stream.Recv()
	if err != nil || last.TextDelta != "with that." || !last.Done {
		t.Fatalf("unexpected last chunk %+v (err=%v)", last, err)
	}
	if _, err := stream.Recv(); err != io.EOF {
		t.Fatalf("expected io.EOF after done, got %v", err)
	}

	if !gotRequest.Stream {
		t.Fatalf("expected streaming request")
	}
	if len(gotRequest.Messages) != 2 || gotRequest.Messages[1].Role != "user" || gotRequest.Messages[1].Content != "hi" {
		t.Fatalf("unexpected request messages %+v", gotRequest.Messages)
	}
}

func TestOpenAIClientEOFWithoutFinishReasonIsDone(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("Hello", ""))
		io.WriteString(w, "data: [DONE]\n\n")
	})

	stream, err := client.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if chunk, err := stream.Recv(); err != nil || chunk.TextDelta != "Hello" {
		t.Fatalf("unexpected chunk %+v (err=%v)", chunk, err)
	}
	chunk, err := stream.Recv()
	if err != nil || !chunk.Done || chunk.TextDelta != "" {
		t.Fatalf("expected empty done chunk, got %+v (err=%v)", chunk, err)
	}
}

func TestNewOpenAIClientValidation(t *testing.T) {
	if _, err := NewOpenAIClient("", "gpt-4o-mini"); err == nil {
		t.Fatalf("expected error for missing API key")
	}
	if _, err := NewOpenAIClient("key", ""); err == nil {
		t.Fatalf("expected error for missing model")
	}
}

func TestHistorySnapshotIsIndependent(t *testing.T) {
	history := NewHistory(Message{Role: RoleSystem, Content: "sys"})
	snapshot := history.Snapshot()

	history.Append(RoleUser, "later")
	snapshot[0].Content = "changed"

	if len(snapshot) != 1 {
		t.Fatalf("expected snapshot length 1, got %d", len(snapshot))
	}
	if first := history.Snapshot()[0]; first.Content != "sys" {
		t.Fatalf("expected history unaffected by snapshot edits, got %q", first.Content)
	}
	if last, _ := history.Last(); last.Content != "later" {
		t.Fatalf("expected last message %q, got %q", "later", last.Content)
	}
}
