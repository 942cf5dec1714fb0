package ollama

import (
	"context"
	"errors"
	"testing"

	"github.com/ollama/ollama/api"
)

type fakeChatter struct {
	req     *api.ChatRequest
	replies []string
	err     error
}

func (f *fakeChatter) Chat(ctx context.Context, req *api.ChatRequest, fn api.ChatResponseFunc) error {
	f.req = req
	if f.err != nil {
		return f.err
	}
	for _, r := range f.replies {
		if err := fn(api.ChatResponse{Message: api.Message{Content: r}}); err != nil {
			return err
		}
	}
	return nil
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient("http://localhost:11434/api/chat"); err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if _, err := NewClient("127.0.0.1:11434"); err != nil {
		t.Errorf("Expected bare host:port to be accepted, got %v", err)
	}
	if _, err := NewClient("http://"); err == nil {
		t.Error("Expected error for URL without host")
	}
}

func TestQuery(t *testing.T) {
	fake := &fakeChatter{replies: []string{`{"labels":`, `[]}`}}
	c := &Client{client: fake}

	img := []byte{0xff, 0xd8, 0xff}
	got, err := c.Query(context.Background(), "llava", "label it", img)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if got != `{"labels":[]}` {
		t.Errorf("Expected concatenated reply, got %q", got)
	}

	if fake.req.Model != "llava" {
		t.Errorf("Expected model llava, got %s", fake.req.Model)
	}
	if len(fake.req.Messages) != 1 || len(fake.req.Messages[0].Images) != 1 {
		t.Fatalf("Expected one message with one image, got %+v", fake.req.Messages)
	}
	if string(fake.req.Messages[0].Images[0]) != string(img) {
		t.Error("Image bytes were not passed through")
	}
	if fake.req.Stream == nil || *fake.req.Stream {
		t.Error("Expected streaming to be disabled")
	}
}

func TestQueryErrors(t *testing.T) {
	c := &Client{client: &fakeChatter{err: errors.New("connection refused")}}
	if _, err := c.Query(context.Background(), "llava", "p", nil); err == nil {
		t.Error("Expected chat error to be returned")
	}

	c = &Client{client: &fakeChatter{}}
	if _, err := c.Query(context.Background(), "llava", "p", nil); err == nil {
		t.Error("Expected error for empty response")
	}
}

func TestModelOptions(t *testing.T) {
	if opts := modelOptions("openbmb/minicpm-v4.5"); opts["num_ctx"] != 4096 {
		t.Errorf("Expected tuned options for minicpm, got %v", opts)
	}
	if opts := modelOptions("llava"); len(opts) != 0 {
		t.Errorf("Expected no options for llava, got %v", opts)
	}
}
