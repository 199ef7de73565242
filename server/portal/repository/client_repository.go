package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techfranca/francaverso/server/portal/domain"
)

type ClientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

const clientColumns = `id, nome_empresa, nome_cliente, email, numero, genero, aniversario, cnpj_cpf, tag,
	segmento, nicho, canal_venda, servicos_contratados, valor_servico, faturamento_medio,
	modelo_pagamento, dia_pagamento, endereco, numero_endereco, cidade, estado, cep, status,
	data_inicio, data_encerramento, drive_folder_id, drive_folder_link, created_at, updated_at`

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	err := row.Scan(
		&c.ID, &c.NomeEmpresa, &c.NomeCliente, &c.Email, &c.Numero, &c.Genero, &c.Aniversario,
		&c.CnpjCpf, &c.Tag, &c.Segmento, &c.Nicho, &c.CanalVenda, &c.ServicosContratados,
		&c.ValorServico, &c.FaturamentoMedio, &c.ModeloPagamento, &c.DiaPagamento,
		&c.Endereco, &c.NumeroEndereco, &c.Cidade, &c.Estado, &c.Cep, &c.Status,
		&c.DataInicio, &c.DataEncerramento, &c.DriveFolderID, &c.DriveFolderLink,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, domain.ErrNotFound
	}
	return c, err
}

type ClientFilter struct {
	Status   string
	Segmento string
	Search   string
}

func (r *ClientRepository) List(ctx context.Context, filter ClientFilter) ([]domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE 1=1`
	args := []any{}
	idx := 1

	if filter.Status != "" && filter.Status != "todos" {
		query += fmt.Sprintf(` AND status=$%d`, idx)
		args = append(args, filter.Status)
		idx++
	}
	if filter.Segmento != "" && filter.Segmento != "todos" {
		query += fmt.Sprintf(` AND segmento=$%d`, idx)
		args = append(args, filter.Segmento)
		idx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(` AND (nome_empresa ILIKE $%d OR nome_cliente ILIKE $%d OR tag ILIKE $%d)`, idx, idx, idx)
		args = append(args, "%"+filter.Search+"%")
		idx++
	}
	query += ` ORDER BY nome_empresa ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *ClientRepository) Create(ctx context.Context, c domain.Client) (domain.Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `
		INSERT INTO clients (
			nome_empresa, nome_cliente, email, numero, genero, aniversario, cnpj_cpf, tag,
			segmento, nicho, canal_venda, servicos_contratados, valor_servico, faturamento_medio,
			modelo_pagamento, dia_pagamento, endereco, numero_endereco, cidade, estado, cep, status,
			data_inicio, data_encerramento, drive_folder_id, drive_folder_link
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22,
			$23, $24, $25, $26
		)
		RETURNING `+clientColumns,
		c.NomeEmpresa, c.NomeCliente, c.Email, c.Numero, c.Genero, c.Aniversario, c.CnpjCpf, c.Tag,
		c.Segmento, c.Nicho, c.CanalVenda, c.ServicosContratados, c.ValorServico, c.FaturamentoMedio,
		c.ModeloPagamento, c.DiaPagamento, c.Endereco, c.NumeroEndereco, c.Cidade, c.Estado, c.Cep, c.Status,
		c.DataInicio, c.DataEncerramento, c.DriveFolderID, c.DriveFolderLink,
	))
}

func (r *ClientRepository) Update(ctx context.Context, c domain.Client) (domain.Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `
		UPDATE clients SET
			nome_empresa=$2, nome_cliente=$3, email=$4, numero=$5, genero=$6, aniversario=$7,
			cnpj_cpf=$8, tag=$9, segmento=$10, nicho=$11, canal_venda=$12, servicos_contratados=$13,
			valor_servico=$14, faturamento_medio=$15, modelo_pagamento=$16, dia_pagamento=$17,
			endereco=$18, numero_endereco=$19, cidade=$20, estado=$21, cep=$22, status=$23,
			data_inicio=$24, data_encerramento=$25, drive_folder_id=$26, drive_folder_link=$27,
			updated_at=NOW()
		WHERE id=$1
		RETURNING `+clientColumns,
		c.ID,
		c.NomeEmpresa, c.NomeCliente, c.Email, c.Numero, c.Genero, c.Aniversario,
		c.CnpjCpf, c.Tag, c.Segmento, c.Nicho, c.CanalVenda, c.ServicosContratados,
		c.ValorServico, c.FaturamentoMedio, c.ModeloPagamento, c.DiaPagamento,
		c.Endereco, c.NumeroEndereco, c.Cidade, c.Estado, c.Cep, c.Status,
		c.DataInicio, c.DataEncerramento, c.DriveFolderID, c.DriveFolderLink,
	))
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ClientRepository) ListCredentials(ctx context.Context, clientID string) ([]domain.ClientCredential, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, client_id, credential_type, platform_name, login, password, notes, created_at
		FROM client_credentials
		WHERE client_id=$1
		ORDER BY credential_type ASC, platform_name ASC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ClientCredential, 0)
	for rows.Next() {
		var cr domain.ClientCredential
		if err := rows.Scan(&cr.ID, &cr.ClientID, &cr.CredentialType, &cr.PlatformName, &cr.Login, &cr.Password, &cr.Notes, &cr.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, cr)
	}
	return items, rows.Err()
}

// ReplaceCredentials swaps a client's full credential set in one transaction.
// Saving is always a full replace; there is no per-credential versioning.
func (r *ClientRepository) ReplaceCredentials(ctx context.Context, clientID string, creds []domain.ClientCredential) ([]domain.ClientCredential, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM client_credentials WHERE client_id=$1`, clientID); err != nil {
		return nil, err
	}

	inserted := make([]domain.ClientCredential, 0, len(creds))
	for _, cr := range creds {
		var out domain.ClientCredential
		err := tx.QueryRow(ctx, `
			INSERT INTO client_credentials (client_id, credential_type, platform_name, login, password, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, client_id, credential_type, platform_name, login, password, notes, created_at
		`, clientID, cr.CredentialType, cr.PlatformName, cr.Login, cr.Password, cr.Notes).Scan(
			&out.ID, &out.ClientID, &out.CredentialType, &out.PlatformName, &out.Login, &out.Password, &out.Notes, &out.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		inserted = append(inserted, out)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *ClientRepository) DeleteCredential(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM client_credentials WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ClientRepository) SetDriveFolder(ctx context.Context, id, folderID, folderLink string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE clients SET drive_folder_id=$2, drive_folder_link=$3, updated_at=NOW() WHERE id=$1
	`, id, folderID, folderLink)
	return err
}
