package choices

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formcatalog/pkg/schema"
)

func lookupServer(t *testing.T, items int, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/api/getValues" {
			http.NotFound(w, r)
			return
		}
		code := r.URL.Query().Get("code")
		entries := make([]string, 0, items)
		for i := 1; i <= items; i++ {
			entries = append(entries, fmt.Sprintf(`{"code": %d, "title": "%s %d"}`, i, code, i))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"content": [%s]}`, strings.Join(entries, ","))
	}))
}

func TestSession_ResolveInlineAndBoolean(t *testing.T) {
	session := NewResolver().Session()

	got, err := session.Resolve(context.Background(), schema.ChoiceSource{Items: []schema.ChoiceItem{
		{Value: " 1 "},
		{Value: "2", Text: schema.PlainText("Two")},
	}})
	if err != nil {
		t.Fatalf("resolve inline: %v", err)
	}
	want := []Choice{{Value: "1", Text: "1"}, {Value: "2", Text: "Two"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("inline mismatch (-want +got):\n%s", diff)
	}

	got, err = session.Resolve(context.Background(), schema.ChoiceSource{Boolean: &schema.BooleanLabels{
		True: schema.PlainText("Smoker"),
	}})
	if err != nil {
		t.Fatalf("resolve boolean: %v", err)
	}
	want = []Choice{{Value: "true", Text: "Smoker"}, {Value: "false", Text: "No"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("boolean mismatch (-want +got):\n%s", diff)
	}

	got, err = session.Resolve(context.Background(), schema.ChoiceSource{})
	if err != nil || got != nil {
		t.Fatalf("expected no choices for empty source, got %v %v", got, err)
	}
}

func TestSession_ResolveRemoteCachesByCode(t *testing.T) {
	var hits int32
	server := lookupServer(t, 3, &hits)
	defer server.Close()

	var outcomes []Outcome
	resolver := NewResolver(
		WithBaseURL(server.URL),
		WithObserver(func(_ string, outcome Outcome) { outcomes = append(outcomes, outcome) }),
	)
	session := resolver.Session()
	src := schema.ChoiceSource{Remote: &schema.RemoteChoices{URL: "/api/getValuesDynamic?code=city", Dynamic: true}}

	for i := 0; i < 2; i++ {
		got, err := session.Resolve(context.Background(), src)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		want := []Choice{{Value: "1", Text: "city 1"}, {Value: "2", Text: "city 2"}, {Value: "3", Text: "city 3"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("choices mismatch (-want +got):\n%s", diff)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected one request, got %d", atomic.LoadInt32(&hits))
	}
	if diff := cmp.Diff([]Outcome{OutcomeFetched, OutcomeCached}, outcomes); diff != "" {
		t.Fatalf("outcomes mismatch:\n%s", diff)
	}

	// A new session starts with an empty cache.
	if _, err := resolver.Session().Resolve(context.Background(), src); err != nil {
		t.Fatalf("resolve fresh session: %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("expected a second request for a fresh session, got %d", atomic.LoadInt32(&hits))
	}
}

func TestSession_ResolveRemoteLimit(t *testing.T) {
	var hits int32
	server := lookupServer(t, 25, &hits)
	defer server.Close()
	src := schema.ChoiceSource{Remote: &schema.RemoteChoices{URL: "/api/getValues?code=drug"}}

	got, err := NewResolver(WithBaseURL(server.URL)).Session().Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != DefaultLimit {
		t.Fatalf("expected %d choices, got %d", DefaultLimit, len(got))
	}

	got, err = NewResolver(WithBaseURL(server.URL), WithLimit(0)).Session().Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("resolve unlimited: %v", err)
	}
	if len(got) != 25 {
		t.Fatalf("expected 25 choices, got %d", len(got))
	}
}

func TestSession_ResolveRemoteFallsBackToBaseHost(t *testing.T) {
	var hits int32
	server := lookupServer(t, 1, &hits)
	defer server.Close()

	src := schema.ChoiceSource{Remote: &schema.RemoteChoices{URL: "http://127.0.0.1:1/api/getValues?code=x"}}
	got, err := NewResolver(WithBaseURL(server.URL)).Session().Resolve(context.Background(), src)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || got[0].Value != "1" {
		t.Fatalf("unexpected choices: %+v", got)
	}
}

func TestSession_ResolveRemoteUnavailable(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	session := NewResolver(WithBaseURL(server.URL)).Session()
	src := schema.ChoiceSource{Remote: &schema.RemoteChoices{URL: "/api/getValues?code=gone"}}

	for i := 0; i < 2; i++ {
		got, err := session.Resolve(context.Background(), src)
		var unavailable *RemoteChoiceUnavailable
		if !errors.As(err, &unavailable) {
			t.Fatalf("expected RemoteChoiceUnavailable, got %v", err)
		}
		if unavailable.Code != "gone" {
			t.Fatalf("unexpected code %q", unavailable.Code)
		}
		if len(got) != 0 {
			t.Fatalf("expected empty choices, got %+v", got)
		}
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected the failure to be cached, got %d requests", atomic.LoadInt32(&hits))
	}
}

func TestSession_ResolveRemoteMissingCode(t *testing.T) {
	_, err := NewResolver().Session().Resolve(context.Background(), schema.ChoiceSource{
		Remote: &schema.RemoteChoices{URL: "/api/getValues"},
	})
	if !errors.Is(err, ErrMissingCode) {
		t.Fatalf("expected ErrMissingCode, got %v", err)
	}
}

func TestResolver_Candidates(t *testing.T) {
	cases := []struct {
		name     string
		base     string
		declared string
		want     []string
	}{
		{
			name:     "declared host and scheme then base host",
			base:     "http://base.example",
			declared: "https://lookup.example/api/getValuesDynamic?code=c",
			want: []string{
				"https://lookup.example/api/getValues?code=c",
				"http://base.example/api/getValues?code=c",
			},
		},
		{
			name:     "relative url uses base host",
			base:     "base.example:8080",
			declared: "/api/getValues?code=c&other=1",
			want: []string{
				"https://base.example:8080/api/getValues?code=c",
				"http://base.example:8080/api/getValues?code=c",
			},
		},
		{
			name:     "no host at all",
			declared: "/api/getValues?code=c",
			want:     []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResolver(WithBaseURL(tc.base))
			declared, err := parseDeclared(tc.declared)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			got := r.candidates(declared, "c")
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
