package model

import (
	"fmt"

	"telegram-proxy-subscription/internal/domain"
)

// Server is one remote proxy server managed through its panel API.
// Immutable after creation except administrative edits; read by all workers.
type Server struct {
	ID            string // UUID
	Name          string
	Scheme        string // http | https
	Address       string // panel host or IP
	PanelPort     int
	PanelUsername string
	PanelPassword string
	InboundID     int    // listener the client accounts live under
	ConnectDomain string // public domain clients connect through
}

func NewServer(id, name, scheme, address string, panelPort int, username, password string, inboundID int, connectDomain string) (*Server, error) {
	if id == "" || name == "" || address == "" || username == "" || password == "" {
		return nil, domain.ErrInvalidArgument
	}
	if panelPort <= 0 || panelPort > 65535 {
		return nil, domain.ErrInvalidArgument
	}
	if scheme == "" {
		scheme = "http"
	}
	return &Server{
		ID:            id,
		Name:          name,
		Scheme:        scheme,
		Address:       address,
		PanelPort:     panelPort,
		PanelUsername: username,
		PanelPassword: password,
		InboundID:     inboundID,
		ConnectDomain: connectDomain,
	}, nil
}

// PanelURL is the base URL of the management panel.
func (s *Server) PanelURL() string {
	return fmt.Sprintf("%s://%s:%d", s.Scheme, s.Address, s.PanelPort)
}
