package trace

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Errorf("GenerateID returned the same id twice: %q", a)
	}
	if !strings.HasPrefix(a, "t_") || len(a) != 34 {
		t.Errorf("GenerateID: got %q, want t_ + 32 hex chars", a)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if got := FromContext(context.Background()); got != "" {
		t.Errorf("FromContext(empty): got %q", got)
	}
	ctx := WithTraceID(context.Background(), "t_abc")
	if got := FromContext(ctx); got != "t_abc" {
		t.Errorf("FromContext: got %q, want t_abc", got)
	}
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set(Header, " t_given ")
	if got := FromRequest(req); got != "t_given" {
		t.Errorf("FromRequest: got %q, want t_given", got)
	}

	req.Header.Set(Header, strings.Repeat("x", 129))
	if got := FromRequest(req); !strings.HasPrefix(got, "t_") || len(got) != 34 {
		t.Errorf("FromRequest(oversized): got %q, want a generated id", got)
	}

	req.Header.Del(Header)
	if got := FromRequest(req); got == "" {
		t.Error("FromRequest(no header): got empty id")
	}
}
