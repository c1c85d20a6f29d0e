// File: internal/infra/adapters/panel/links.go
package panel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/adapter"
)

var _ adapter.LinkSource = (*XUIClient)(nil)

// streamSettings is the transport subset needed for link generation.
type streamSettings struct {
	Network    string `json:"network"`
	Security   string `json:"security"`
	WSSettings struct {
		Path    string `json:"path"`
		Headers struct {
			Host string `json:"Host"`
		} `json:"headers"`
	} `json:"wsSettings"`
}

// vmessPayload is the base64-encoded JSON body of a vmess:// URI.
type vmessPayload struct {
	V    string `json:"v"`
	PS   string `json:"ps"`
	Add  string `json:"add"`
	Port int    `json:"port"`
	ID   string `json:"id"`
	Aid  int    `json:"aid"`
	Net  string `json:"net"`
	Type string `json:"type"`
	Host string `json:"host"`
	Path string `json:"path"`
	TLS  string `json:"tls"`
	Scy  string `json:"scy"`
}

// ClientLink builds the connection URI for clientID on server by reading the
// listener's protocol and transport settings from the panel.
func (c *XUIClient) ClientLink(ctx context.Context, server *model.Server, clientID, remark string) (string, error) {
	ib, err := c.GetInbound(ctx, server)
	if err != nil {
		return "", err
	}
	var stream streamSettings
	if err := json.Unmarshal([]byte(ib.StreamSettings), &stream); err != nil {
		return "", fmt.Errorf("%w: stream settings: %v", domain.ErrPanelBadPayload, err)
	}

	host := server.ConnectDomain
	if host == "" {
		host = server.Address
	}

	switch ib.Protocol {
	case "vless":
		q := url.Values{}
		q.Set("type", stream.Network)
		if stream.Security != "" {
			q.Set("security", stream.Security)
		}
		if stream.Network == "ws" && stream.WSSettings.Path != "" {
			q.Set("path", stream.WSSettings.Path)
		}
		return fmt.Sprintf("vless://%s@%s:%d?%s#%s",
			clientID, host, ib.Port, q.Encode(), url.PathEscape(remark)), nil

	case "vmess":
		tls := ""
		if stream.Security == "tls" {
			tls = "tls"
		}
		payload := vmessPayload{
			V:    "2",
			PS:   remark,
			Add:  host,
			Port: ib.Port,
			ID:   clientID,
			Net:  stream.Network,
			Type: "none",
			Host: stream.WSSettings.Headers.Host,
			Path: stream.WSSettings.Path,
			TLS:  tls,
			Scy:  "auto",
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return "", domain.ErrOperationFailed
		}
		return "vmess://" + base64.StdEncoding.EncodeToString(b), nil

	default:
		return "", fmt.Errorf("%w: protocol %q", domain.ErrPanelBadPayload, ib.Protocol)
	}
}
