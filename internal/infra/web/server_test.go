//go:build !integration

package web_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/infra/web"
)

const linkSecret = "s3cret"

// fakeSubUC serves a single subscription by its compact token.
type fakeSubUC struct {
	sub   *model.Subscription
	links []string
}

func (f *fakeSubUC) Purchase(context.Context, int64, string, string, float64, time.Duration) (*model.Subscription, error) {
	return nil, domain.ErrOperationFailed
}
func (f *fakeSubUC) IssueTest(context.Context, int64) (*model.Subscription, error) {
	return nil, domain.ErrOperationFailed
}
func (f *fakeSubUC) Renew(context.Context, uuid.UUID, float64, time.Duration) error {
	return domain.ErrOperationFailed
}
func (f *fakeSubUC) ListByUser(context.Context, int64) ([]*model.Subscription, error) {
	return nil, nil
}
func (f *fakeSubUC) FindByToken(_ context.Context, token string) (*model.Subscription, error) {
	if f.sub != nil && f.sub.Token() == token {
		return f.sub, nil
	}
	return nil, domain.ErrNotFound
}
func (f *fakeSubUC) Links(_ context.Context, subID uuid.UUID) ([]string, error) {
	if f.sub == nil || f.sub.ID != subID {
		return nil, domain.ErrNotFound
	}
	return f.links, nil
}

func newTestServer(t *testing.T) (*fakeSubUC, http.Handler) {
	t.Helper()
	sub, err := model.NewSubscription(42, "p1", "mine", 10, time.Hour)
	if err != nil {
		t.Fatalf("NewSubscription: %v", err)
	}
	uc := &fakeSubUC{
		sub:   sub,
		links: []string{"vless://a@h1:443?type=ws#mine", "vless://a@h2:443?type=ws#mine"},
	}
	l := zerolog.Nop()
	srv := web.NewServer(0, uc, linkSecret, &l)
	return uc, srv.Handler()
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, _ := io.ReadAll(rec.Result().Body)
	return rec.Code, string(body)
}

func TestServer_Health(t *testing.T) {
	_, h := newTestServer(t)
	code, body := get(t, h, "/health")
	if code != http.StatusOK || body != "ok" {
		t.Fatalf("health = %d %q", code, body)
	}
}

func TestServer_SubLinks(t *testing.T) {
	uc, h := newTestServer(t)
	signed, err := web.SignLinkToken(linkSecret, uc.sub.Token())
	if err != nil {
		t.Fatalf("SignLinkToken: %v", err)
	}

	code, body := get(t, h, "/sub/"+signed)
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	want := base64.StdEncoding.EncodeToString([]byte(uc.links[0] + "\n" + uc.links[1]))
	if body != want {
		t.Fatalf("body = %q, want base64 link list", body)
	}

	code, body = get(t, h, "/sub/"+signed+"?plain=1")
	if code != http.StatusOK || body != uc.links[0]+"\n"+uc.links[1] {
		t.Fatalf("plain body = %d %q", code, body)
	}
}

func TestServer_SubRejectsBadToken(t *testing.T) {
	uc, h := newTestServer(t)

	// raw compact token without the signature wrapper
	if code, _ := get(t, h, "/sub/"+uc.sub.Token()); code != http.StatusNotFound {
		t.Fatalf("unsigned token status = %d, want 404", code)
	}
	// token signed with a different secret
	forged, _ := web.SignLinkToken("other", uc.sub.Token())
	if code, _ := get(t, h, "/sub/"+forged); code != http.StatusNotFound {
		t.Fatalf("forged token status = %d, want 404", code)
	}
}

func TestServer_SubInactive(t *testing.T) {
	uc, h := newTestServer(t)
	uc.sub.Active = false
	signed, _ := web.SignLinkToken(linkSecret, uc.sub.Token())

	if code, _ := get(t, h, "/sub/"+signed); code != http.StatusNotFound {
		t.Fatalf("inactive subscription status = %d, want 404", code)
	}
}

func TestLinkTokenRoundTrip(t *testing.T) {
	signed, err := web.SignLinkToken(linkSecret, "compact-token")
	if err != nil {
		t.Fatalf("SignLinkToken: %v", err)
	}
	got, err := web.ParseLinkToken(linkSecret, signed)
	if err != nil || got != "compact-token" {
		t.Fatalf("ParseLinkToken = %q, %v", got, err)
	}
	if _, err := web.ParseLinkToken(linkSecret, "junk"); err == nil {
		t.Fatalf("junk token must not parse")
	}

	url, err := web.ConfigURL("sub.example.com", linkSecret, "compact-token")
	if err != nil {
		t.Fatalf("ConfigURL: %v", err)
	}
	if url != "https://sub.example.com/sub/"+signed {
		t.Fatalf("url = %q", url)
	}
}
