// File: internal/infra/adapters/panel/xui_client.go
package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
)

var _ adapter.PanelClient = (*XUIClient)(nil)

// XUIClient talks to an x-ui panel. Every operation opens a fresh cookie
// session (the panel authenticates via a session cookie set by /login), so a
// stale session on the panel side can never wedge a worker.
type XUIClient struct {
	timeout time.Duration
	log     *zerolog.Logger
}

func NewXUIClient(timeout time.Duration, logger *zerolog.Logger) *XUIClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	l := logger.With().Str("component", "XUIClient").Logger()
	return &XUIClient{timeout: timeout, log: &l}
}

// apiResponse is the envelope every panel endpoint replies with.
type apiResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}

// Inbound is the subset of the listener document the core needs: protocol
// and transport details for config links, settings for client enumeration.
type Inbound struct {
	Protocol       string `json:"protocol"`
	Port           int    `json:"port"`
	Settings       string `json:"settings"`       // JSON string holding clients
	StreamSettings string `json:"streamSettings"` // JSON string
}

type inboundSettings struct {
	Clients []struct {
		Email string `json:"email"`
	} `json:"clients"`
}

type clientTraffic struct {
	Email string `json:"email"`
	Up    int64  `json:"up"`
	Down  int64  `json:"down"`
}

// session logs in and returns an http client carrying the session cookie.
func (c *XUIClient) session(ctx context.Context, server *model.Server) (*http.Client, error) {
	jar, _ := cookiejar.New(nil)
	client := &http.Client{Timeout: c.timeout, Jar: jar}

	form := url.Values{
		"username": {server.PanelUsername},
		"password": {server.PanelPassword},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.PanelURL()+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPanelUnreachable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPanelUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: login status %d", domain.ErrPanelAuth, resp.StatusCode)
	}
	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: login body: %v", domain.ErrPanelBadPayload, err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: %s", domain.ErrPanelAuth, out.Msg)
	}
	return client, nil
}

func (c *XUIClient) call(ctx context.Context, client *http.Client, method, fullURL string, form url.Values) (*apiResponse, error) {
	var req *http.Request
	var err error
	if form != nil {
		req, err = http.NewRequestWithContext(ctx, method, fullURL, strings.NewReader(form.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, fullURL, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPanelUnreachable, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPanelUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", domain.ErrPanelAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrPanelUnreachable, resp.StatusCode)
	}
	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPanelBadPayload, err)
	}
	return &out, nil
}

// GetInbound fetches the listener document client accounts live under.
func (c *XUIClient) GetInbound(ctx context.Context, server *model.Server) (*Inbound, error) {
	client, err := c.session(ctx, server)
	if err != nil {
		return nil, err
	}
	return c.getInbound(ctx, client, server)
}

func (c *XUIClient) getInbound(ctx context.Context, client *http.Client, server *model.Server) (*Inbound, error) {
	out, err := c.call(ctx, client, http.MethodGet, fmt.Sprintf("%s/xui/API/inbounds/get/%d", server.PanelURL(), server.InboundID), nil)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: %s", domain.ErrPanelBadPayload, out.Msg)
	}
	var ib Inbound
	if err := json.Unmarshal(out.Obj, &ib); err != nil {
		return nil, fmt.Errorf("%w: inbound: %v", domain.ErrPanelBadPayload, err)
	}
	return &ib, nil
}

func (c *XUIClient) ListClients(ctx context.Context, server *model.Server) ([]adapter.ClientCounter, error) {
	client, err := c.session(ctx, server)
	if err != nil {
		return nil, err
	}
	ib, err := c.getInbound(ctx, client, server)
	if err != nil {
		return nil, err
	}
	var settings inboundSettings
	if err := json.Unmarshal([]byte(ib.Settings), &settings); err != nil {
		return nil, fmt.Errorf("%w: inbound settings: %v", domain.ErrPanelBadPayload, err)
	}

	counters := make([]adapter.ClientCounter, 0, len(settings.Clients))
	for _, cl := range settings.Clients {
		if cl.Email == "" {
			continue
		}
		out, err := c.call(ctx, client, http.MethodGet,
			fmt.Sprintf("%s/xui/API/inbounds/getClientTraffics/%s", server.PanelURL(), url.PathEscape(cl.Email)), nil)
		if err != nil {
			return nil, err
		}
		if !out.Success || len(out.Obj) == 0 || string(out.Obj) == "null" {
			// account known in settings but without a traffic record yet
			c.log.Debug().Str("email", cl.Email).Msg("no traffic record for client")
			continue
		}
		var tr clientTraffic
		if err := json.Unmarshal(out.Obj, &tr); err != nil {
			return nil, fmt.Errorf("%w: client traffic: %v", domain.ErrPanelBadPayload, err)
		}
		counters = append(counters, adapter.ClientCounter{Email: tr.Email, Up: tr.Up, Down: tr.Down})
	}
	return counters, nil
}

func (c *XUIClient) AddClients(ctx context.Context, server *model.Server, accounts []model.ClientAccount) error {
	if len(accounts) == 0 {
		return nil
	}
	client, err := c.session(ctx, server)
	if err != nil {
		return err
	}
	settings, err := json.Marshal(map[string]interface{}{"clients": accounts})
	if err != nil {
		return domain.ErrInvalidArgument
	}
	form := url.Values{
		"id":       {fmt.Sprint(server.InboundID)},
		"settings": {string(settings)},
	}
	out, err := c.call(ctx, client, http.MethodPost, server.PanelURL()+"/xui/API/inbounds/addClient", form)
	if err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("%w: addClient: %s", domain.ErrPanelBadPayload, out.Msg)
	}
	return nil
}

func (c *XUIClient) RemoveClient(ctx context.Context, server *model.Server, accountID string) error {
	client, err := c.session(ctx, server)
	if err != nil {
		return err
	}
	out, err := c.call(ctx, client, http.MethodPost,
		fmt.Sprintf("%s/xui/API/inbounds/%d/delClient/%s", server.PanelURL(), server.InboundID, url.PathEscape(accountID)), url.Values{})
	if err != nil {
		return err
	}
	if !out.Success {
		if strings.Contains(strings.ToLower(out.Msg), "not found") || strings.Contains(strings.ToLower(out.Msg), "no client") {
			return domain.ErrClientNotFound
		}
		return fmt.Errorf("%w: delClient: %s", domain.ErrPanelBadPayload, out.Msg)
	}
	return nil
}

func (c *XUIClient) ResetCounters(ctx context.Context, server *model.Server) error {
	client, err := c.session(ctx, server)
	if err != nil {
		return err
	}
	out, err := c.call(ctx, client, http.MethodPost,
		fmt.Sprintf("%s/xui/API/inbounds/resetAllClientTraffics/%d", server.PanelURL(), server.InboundID), url.Values{})
	if err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("%w: resetAllClientTraffics: %s", domain.ErrPanelBadPayload, out.Msg)
	}
	return nil
}
