// internal/infra/database/postgres_credential_repository.go
package database

import (
	"context"
	"database/sql"

	"counter_harvester/internal/domain/credential"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
)

const credentialColumns = `s.id, s.consortium_id, s.inst_id, s.prov_id, s.status, s.customer_id, s.requestor_id,
       s.api_key, s.extra_args, s.platform, s.last_harvest, i.is_active, p.is_active, s.updated_at`

const credentialJoins = `FROM sushisettings s
               JOIN institutions i ON i.id = s.inst_id
               JOIN providers p ON p.id = s.prov_id`

type PostgresCredentialRepository struct {
	db *sql.DB
}

func NewPostgresCredentialRepository(db *sql.DB) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{db: db}
}

func scanCredential(row rowScanner) (*credential.Credential, error) {
	c := &credential.Credential{}
	err := row.Scan(&c.ID, &c.ConsortiumID, &c.InstID, &c.ProvID, &c.Status, &c.CustomerID, &c.RequestorID,
		&c.APIKey, &c.ExtraArgs, &c.Platform, &c.LastHarvest, &c.InstitutionActive, &c.ProviderActive, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresCredentialRepository) ListHarvestable(ctx context.Context, consortiumID int64, f credential.Filter) ([]*credential.Credential, error) {
	query := `SELECT ` + credentialColumns + `
               ` + credentialJoins + `
               WHERE s.consortium_id = $1
                 AND s.status = $2
                 AND i.is_active
                 AND (COALESCE(cardinality($3::bigint[]), 0) = 0 OR s.prov_id = ANY($3::bigint[]))
                 AND (COALESCE(cardinality($4::bigint[]), 0) = 0 OR s.inst_id = ANY($4::bigint[]))
               ORDER BY s.inst_id, s.prov_id`
	rows, err := r.db.QueryContext(ctx, query, consortiumID, credential.StatusEnabled, pq.Array(f.ProviderIDs), pq.Array(f.InstIDs))
	if err != nil {
		return nil, errors.Wrap(err, "error querying harvestable credentials")
	}
	defer rows.Close()

	creds := make([]*credential.Credential, 0)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, errors.Wrap(err, "error scanning credential row")
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating credential rows")
	}
	return creds, nil
}

func (r *PostgresCredentialRepository) GetByID(ctx context.Context, id int64) (*credential.Credential, error) {
	query := `SELECT ` + credentialColumns + ` ` + credentialJoins + ` WHERE s.id = $1`
	c, err := scanCredential(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credential.ErrNotFound
		}
		return nil, errors.Wrap(err, "error getting credential by ID")
	}
	return c, nil
}

func (r *PostgresCredentialRepository) GetProvider(ctx context.Context, id int64) (*credential.Provider, error) {
	query := `SELECT id, name, is_active, service_url, releases, connectors, day_of_month, release_override
               FROM providers WHERE id = $1`
	p := &credential.Provider{}
	var connectors []string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.IsActive, &p.ServiceURL,
		pq.Array(&p.Releases), pq.Array(&connectors), &p.DayOfMonth, &p.ReleaseOverride)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credential.ErrNotFound
		}
		return nil, errors.Wrap(err, "error getting provider by ID")
	}
	for _, c := range connectors {
		p.Connectors = append(p.Connectors, credential.Connector(c))
	}
	return p, nil
}

func (r *PostgresCredentialRepository) ListConnections(ctx context.Context, consortiumID, provID int64) ([]*credential.Connection, error) {
	query := `SELECT id, prov_id, inst_id, is_active, report_ids
               FROM connections
               WHERE consortium_id = $1 AND prov_id = $2 AND is_active
               ORDER BY inst_id, id`
	rows, err := r.db.QueryContext(ctx, query, consortiumID, provID)
	if err != nil {
		return nil, errors.Wrap(err, "error querying connections")
	}
	defer rows.Close()

	conns := make([]*credential.Connection, 0)
	for rows.Next() {
		c := &credential.Connection{}
		if err := rows.Scan(&c.ID, &c.ProvID, &c.InstID, &c.IsActive, pq.Array(&c.ReportIDs)); err != nil {
			return nil, errors.Wrap(err, "error scanning connection row")
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating connection rows")
	}
	return conns, nil
}

func (r *PostgresCredentialRepository) GetInstitution(ctx context.Context, id int64) (*credential.Institution, error) {
	inst := &credential.Institution{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name, is_active FROM institutions WHERE id = $1`, id).
		Scan(&inst.ID, &inst.Name, &inst.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credential.ErrNotFound
		}
		return nil, errors.Wrap(err, "error getting institution by ID")
	}
	return inst, nil
}

func (r *PostgresCredentialRepository) GetReport(ctx context.Context, id int64) (*credential.Report, error) {
	rep := &credential.Report{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name, parent_id FROM reports WHERE id = $1`, id).
		Scan(&rep.ID, &rep.Name, &rep.ParentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credential.ErrNotFound
		}
		return nil, errors.Wrap(err, "error getting report by ID")
	}
	return rep, nil
}

func (r *PostgresCredentialRepository) ListReports(ctx context.Context) ([]*credential.Report, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, parent_id FROM reports ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "error querying reports")
	}
	defer rows.Close()

	reports := make([]*credential.Report, 0)
	for rows.Next() {
		rep := &credential.Report{}
		if err := rows.Scan(&rep.ID, &rep.Name, &rep.ParentID); err != nil {
			return nil, errors.Wrap(err, "error scanning report row")
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating report rows")
	}
	return reports, nil
}

func (r *PostgresCredentialRepository) MarkHarvested(ctx context.Context, id int64, yearMon string) error {
	query := `UPDATE sushisettings
               SET last_harvest = $1, updated_at = NOW()
               WHERE id = $2 AND (last_harvest IS NULL OR last_harvest < $1)`
	if _, err := r.db.ExecContext(ctx, query, yearMon, id); err != nil {
		return errors.Wrap(err, "error marking credential harvested")
	}
	return nil
}
