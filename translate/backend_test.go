package translate

import (
	"context"
	"errors"
	"testing"

	"github.com/Arean82/jsontrans/credentials"
)

func TestNewRequiresCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("openai missing key", func(t *testing.T) {
		_, err := New(ctx, EngineOpenAI, &credentials.File{}, Options{})
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("err = %v, want *AuthError", err)
		}
	})

	t.Run("amazon missing keys", func(t *testing.T) {
		creds := &credentials.File{Amazon: &credentials.Amazon{AccessKey: "AKIA"}}
		_, err := New(ctx, EngineAmazon, creds, Options{})
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("err = %v, want *AuthError", err)
		}
	})

	t.Run("unknown engine", func(t *testing.T) {
		_, err := New(ctx, "deepl", &credentials.File{}, Options{})
		if err == nil {
			t.Fatal("unknown engine accepted")
		}
		var authErr *AuthError
		if errors.As(err, &authErr) {
			t.Fatalf("unknown engine classified as auth error: %v", err)
		}
	})
}

func TestNewOpenAI(t *testing.T) {
	creds := &credentials.File{OpenAI: &credentials.OpenAI{Key: "sk-test"}}
	b, err := New(context.Background(), EngineOpenAI, creds, Options{Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.Name() != EngineOpenAI {
		t.Errorf("Name() = %q", b.Name())
	}
	if ob := b.(*openAIBackend); ob.model != "gpt-4o" {
		t.Errorf("model = %q", ob.model)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	if o.effectiveTimeout() <= 0 {
		t.Error("effectiveTimeout not positive")
	}
	if o.logger() == nil {
		t.Error("logger() returned nil")
	}
}
