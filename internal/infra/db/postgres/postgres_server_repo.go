package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-proxy-subscription/internal/domain"
	"telegram-proxy-subscription/internal/domain/model"
	"telegram-proxy-subscription/internal/domain/ports/repository"
)

var _ repository.ServerRepository = (*serverRepo)(nil)

type serverRepo struct{ pool *pgxpool.Pool }

func NewServerRepo(pool *pgxpool.Pool) *serverRepo {
	return &serverRepo{pool: pool}
}

const serverColumns = `id, name, scheme, address, panel_port, panel_username, panel_password, inbound_id, connect_domain`

func (r *serverRepo) Save(ctx context.Context, tx repository.Tx, s *model.Server) error {
	const q = `
INSERT INTO servers (` + serverColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  name=$2, scheme=$3, address=$4, panel_port=$5, panel_username=$6, panel_password=$7, inbound_id=$8, connect_domain=$9;`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.Name, s.Scheme, s.Address, s.PanelPort, s.PanelUsername, s.PanelPassword, s.InboundID, s.ConnectDomain)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *serverRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Server, error) {
	const q = `SELECT ` + serverColumns + ` FROM servers WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanServer(row)
}

func (r *serverRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Server, error) {
	const q = `SELECT ` + serverColumns + ` FROM servers WHERE id = ANY($1);`
	return r.queryMany(ctx, tx, q, ids)
}

func (r *serverRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Server, error) {
	const q = `SELECT ` + serverColumns + ` FROM servers ORDER BY name;`
	return r.queryMany(ctx, tx, q)
}

func (r *serverRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Server, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	var out []*model.Server
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanServer(row pgx.Row) (*model.Server, error) {
	s := &model.Server{}
	if err := row.Scan(&s.ID, &s.Name, &s.Scheme, &s.Address, &s.PanelPort, &s.PanelUsername, &s.PanelPassword, &s.InboundID, &s.ConnectDomain); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}
