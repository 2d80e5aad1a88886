package crm

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian-crm/internal/platform/db"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("crm: record not found")
	// ErrCascadeTargetMissing indicates a workflow derivation could not find
	// its related record; the triggering transaction is aborted.
	ErrCascadeTargetMissing = errors.New("crm: cascade target missing")
)

// Repository provides PostgreSQL backed persistence for the CRM entities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the mutations available inside one unit of work. Row
// fetches take a write lock so the pre-image used by the update gate stays
// consistent until commit.
type TxRepository interface {
	InsertLead(ctx context.Context, lead Lead) (int64, error)
	GetLeadForUpdate(ctx context.Context, id int64) (*Lead, error)
	UpdateLead(ctx context.Context, lead Lead) error
	DeleteLead(ctx context.Context, id int64) error

	InsertDeal(ctx context.Context, deal Deal) (int64, error)
	GetDealForUpdate(ctx context.Context, id int64) (*Deal, error)
	UpdateDeal(ctx context.Context, deal Deal) error
	DeleteDeal(ctx context.Context, id int64) error

	InsertProposal(ctx context.Context, proposal Proposal) (int64, error)
	GetProposalForUpdate(ctx context.Context, id int64) (*Proposal, error)
	UpdateProposal(ctx context.Context, proposal Proposal) error
	DeleteProposal(ctx context.Context, id int64) error

	InsertCloserReport(ctx context.Context, report CloserReport) (int64, error)
	GetCloserReportForUpdate(ctx context.Context, id int64) (*CloserReport, error)
	UpdateCloserReport(ctx context.Context, report CloserReport) error
	DeleteCloserReport(ctx context.Context, id int64) error

	InsertSetterReport(ctx context.Context, report SetterReport) (int64, error)
	GetSetterReportForUpdate(ctx context.Context, id int64) (*SetterReport, error)
	UpdateSetterReport(ctx context.Context, report SetterReport) error
	DeleteSetterReport(ctx context.Context, id int64) error

	InsertOffer(ctx context.Context, offer Offer) (int64, error)
	GetOfferForUpdate(ctx context.Context, id int64) (*Offer, error)
	UpdateOffer(ctx context.Context, offer Offer) error
	DeleteOffer(ctx context.Context, id int64) error

	InsertCashEntry(ctx context.Context, entry CashEntry) (int64, error)
	GetCashEntryForUpdate(ctx context.Context, id int64) (*CashEntry, error)
	UpdateCashEntry(ctx context.Context, entry CashEntry) error
	DeleteCashEntry(ctx context.Context, id int64) error

	InsertExpense(ctx context.Context, expense Expense) (int64, error)
	GetExpenseForUpdate(ctx context.Context, id int64) (*Expense, error)
	UpdateExpense(ctx context.Context, expense Expense) error
	DeleteExpense(ctx context.Context, id int64) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps fn in a repeatable-read transaction. The authorization gate,
// the mutation and any workflow cascade share this transaction; any error
// rolls everything back.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListParams bounds list queries.
type ListParams struct {
	Limit  int
	Offset int
}

func (p ListParams) normalize() ListParams {
	if p.Limit <= 0 || p.Limit > 200 {
		p.Limit = 50
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ============================================================================
// LEADS
// ============================================================================

const leadColumns = `id, name, email, phone, source, status, created_by, assigned_to, created_at, updated_at`

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Source, &l.Status, &l.CreatedBy, &l.AssignedTo, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repository) GetLead(ctx context.Context, id int64) (*Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

func (r *Repository) ListLeads(ctx context.Context, params ListParams) ([]Lead, error) {
	params = params.normalize()
	rows, err := r.pool.Query(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY id DESC LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var leads []Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

func (t *txRepo) InsertLead(ctx context.Context, lead Lead) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO leads (name, email, phone, source, status, created_by, assigned_to, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`,
		lead.Name, lead.Email, lead.Phone, lead.Source, lead.Status, lead.CreatedBy, lead.AssignedTo,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetLeadForUpdate(ctx context.Context, id int64) (*Lead, error) {
	return scanLead(t.tx.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateLead(ctx context.Context, lead Lead) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE leads SET name=$2, email=$3, phone=$4, source=$5, status=$6, assigned_to=$7, updated_at=NOW() WHERE id=$1`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Source, lead.Status, lead.AssignedTo,
	)
	return affected(tag, err)
}

func (t *txRepo) DeleteLead(ctx context.Context, id int64) error {
	return affected(t.tx.Exec(ctx, `DELETE FROM leads WHERE id=$1`, id))
}

// ============================================================================
// DEALS
// ============================================================================

const dealColumns = `id, name, value, stage, lead_id, created_by, owner_id, actual_close_date, created_at, updated_at`

func scanDeal(row pgx.Row) (*Deal, error) {
	var d Deal
	err := row.Scan(&d.ID, &d.Name, &d.Value, &d.Stage, &d.LeadID, &d.CreatedBy, &d.OwnerID, &d.ActualCloseDate, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *Repository) GetDeal(ctx context.Context, id int64) (*Deal, error) {
	return scanDeal(r.pool.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1`, id))
}

func (r *Repository) ListDeals(ctx context.Context, params ListParams) ([]Deal, error) {
	params = params.normalize()
	rows, err := r.pool.Query(ctx, `SELECT `+dealColumns+` FROM deals ORDER BY id DESC LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var deals []Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, rows.Err()
}

func (t *txRepo) InsertDeal(ctx context.Context, deal Deal) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO deals (name, value, stage, lead_id, created_by, owner_id, actual_close_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`,
		deal.Name, deal.Value, deal.Stage, deal.LeadID, deal.CreatedBy, deal.OwnerID, deal.ActualCloseDate,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetDealForUpdate(ctx context.Context, id int64) (*Deal, error) {
	return scanDeal(t.tx.QueryRow(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateDeal(ctx context.Context, deal Deal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE deals SET name=$2, value=$3, stage=$4, owner_id=$5, actual_close_date=$6, updated_at=NOW() WHERE id=$1`,
		deal.ID, deal.Name, deal.Value, deal.Stage, deal.OwnerID, deal.ActualCloseDate,
	)
	return affected(tag, err)
}

func (t *txRepo) DeleteDeal(ctx context.Context, id int64) error {
	return affected(t.tx.Exec(ctx, `DELETE FROM deals WHERE id=$1`, id))
}

// ============================================================================
// PROPOSALS
// ============================================================================

const proposalColumns = `id, deal_id, title, status, value, created_by, assigned_to, created_at, updated_at`

func scanProposal(row pgx.Row) (*Proposal, error) {
	var p Proposal
	err := row.Scan(&p.ID, &p.DealID, &p.Title, &p.Status, &p.Value, &p.CreatedBy, &p.AssignedTo, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetProposal(ctx context.Context, id int64) (*Proposal, error) {
	return scanProposal(r.pool.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id))
}

func (r *Repository) ListProposals(ctx context.Context, params ListParams) ([]Proposal, error) {
	params = params.normalize()
	rows, err := r.pool.Query(ctx, `SELECT `+proposalColumns+` FROM proposals ORDER BY id DESC LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var proposals []Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
	}
	return proposals, rows.Err()
}

func (t *txRepo) InsertProposal(ctx context.Context, proposal Proposal) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO proposals (deal_id, title, status, value, created_by, assigned_to, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING id`,
		proposal.DealID, proposal.Title, proposal.Status, proposal.Value, proposal.CreatedBy, proposal.AssignedTo,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetProposalForUpdate(ctx context.Context, id int64) (*Proposal, error) {
	return scanProposal(t.tx.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateProposal(ctx context.Context, proposal Proposal) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE proposals SET title=$2, status=$3, value=$4, assigned_to=$5, updated_at=NOW() WHERE id=$1`,
		proposal.ID, proposal.Title, proposal.Status, proposal.Value, proposal.AssignedTo,
	)
	return affected(tag, err)
}

func (t *txRepo) DeleteProposal(ctx context.Context, id int64) error {
	return affected(t.tx.Exec(ctx, `DELETE FROM proposals WHERE id=$1`, id))
}

// ============================================================================
// CALL REPORTS
// ============================================================================

const closerReportColumns = `id, deal_id, outcome, notes, submitted_by, created_at, updated_at`

func scanCloserReport(row pgx.Row) (*CloserReport, error) {
	var cr CloserReport
	err := row.Scan(&cr.ID, &cr.DealID, &cr.Outcome, &cr.Notes, &cr.SubmittedBy, &cr.CreatedAt, &cr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cr, nil
}

func (r *Repository) GetCloserReport(ctx context.Context, id int64) (*CloserReport, error) {
	return scanCloserReport(r.pool.QueryRow(ctx, `SELECT `+closerReportColumns+` FROM closer_reports WHERE id = $1`, id))
}

func (r *Repository) ListCloserReports(ctx context.Context, params ListParams) ([]CloserReport, error) {
	params = params.normalize()
	rows, err := r.pool.Query(ctx, `SELECT `+closerReportColumns+` FROM closer_reports ORDER BY id DESC LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reports []CloserReport
	for rows.Next() {
		cr, err := scanCloserReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *cr)
	}
	return reports, rows.Err()
}

func (t *txRepo) InsertCloserReport(ctx context.Context, report CloserReport) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO closer_reports (deal_id, outcome, notes, submitted_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`,
		report.DealID, report.Outcome, report.Notes, report.SubmittedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetCloserReportForUpdate(ctx context.Context, id int64) (*CloserReport, error) {
	return scanCloserReport(t.tx.QueryRow(ctx, `SELECT `+closerReportColumns+` FROM closer_reports WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateCloserReport(ctx context.Context, report CloserReport) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE closer_reports SET outcome=$2, notes=$3, updated_at=NOW() WHERE id=$1`,
		report.ID, report.Outcome, report.Notes,
	)
	return affected(tag, err)
}

func (t *txRepo) DeleteCloserReport(ctx context.Context, id int64) error {
	return affected(t.tx.Exec(ctx, `DELETE FROM closer_reports WHERE id=$1`, id))
}

const setterReportColumns = `id, lead_id, outcome, notes, submitted_by, created_at, updated_at`

func scanSetterReport(row pgx.Row) (*SetterReport, error) {
	var sr SetterReport
	err := row.Scan(&sr.ID, &sr.LeadID, &sr.Outcome, &sr.Notes, &sr.SubmittedBy, &sr.CreatedAt, &sr.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sr, nil
}

func (r *Repository) GetSetterReport(ctx context.Context, id int64) (*SetterReport, error) {
	return scanSetterReport(r.pool.QueryRow(ctx, `SELECT `+setterReportColumns+` FROM setter_reports WHERE id = $1`, id))
}

func (r *Repository) ListSetterReports(ctx context.Context, params ListParams) ([]SetterReport, error) {
	params = params.normalize()
	rows, err := r.pool.Query(ctx, `SELECT `+setterReportColumns+` FROM setter_reports ORDER BY id DESC LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reports []SetterReport
	for rows.Next() {
		sr, err := scanSetterReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *sr)
	}
	return reports, rows.Err()
}

func (t *txRepo) InsertSetterReport(ctx context.Context, report SetterReport) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO setter_reports (lead_id, outcome, notes, submitted_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`,
		report.LeadID, report.Outcome, report.Notes, report.SubmittedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetSetterReportForUpdate(ctx context.Context, id int64) (*SetterReport, error) {
	return scanSetterReport(t.tx.QueryRow(ctx, `SELECT `+setterReportColumns+` FROM setter_reports WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateSetterReport(ctx context.Context, report SetterReport) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE setter_reports SET outcome=$2, notes=$3, updated_at=NOW() WHERE id=$1`,
		report.ID, report.Outcome, report.Notes,
	)
	return affected(tag, err)
}

func (t *txRepo) DeleteSetterReport(ctx context.Context, id int64) error {
	return affected(t.tx.Exec(ctx, `DELETE FROM setter_reports WHERE id=$1`, id))
}

// ============================================================================
// FINANCIAL RECORDS
// ============================================================================

const offerColumns = `id, deal_id, amount, terms, created_by, created_at, updated_at`

func scanOffer(row pgx.Row) (*Offer, error) {
	var o Offer
	err := row.Scan(&o.ID, &o.DealID, &o.Amount, &o.Terms, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetOffer(ctx context.Context, id int64) (*Offer, error) {
	return scanOffer(r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
}

func (r *Repository) ListOffers(ctx context.Context, params ListParams) ([]Offer, error) {
	params = params.normalize()
	rows, err := r.pool.Query(ctx, `SELECT `+offerColumns+` FROM offers ORDER BY id DESC LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var offers []Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *o)
	}
	return offers, rows.Err()
}

func (t *txRepo) InsertOffer(ctx context.Context, offer Offer) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO offers (deal_id, amount, terms, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`,
		offer.DealID, offer.Amount, offer.Terms, offer.CreatedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetOfferForUpdate(ctx context.Context, id int64) (*Offer, error) {
	return scanOffer(t.tx.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateOffer(ctx context.Context, offer Offer) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE offers SET amount=$2, terms=$3, updated_at=NOW() WHERE id=$1`,
		offer.ID, offer.Amount, offer.Terms,
	)
	return affected(tag, err)
}

func (t *txRepo) DeleteOffer(ctx context.Context, id int64) error {
	return affected(t.tx.Exec(ctx, `DELETE FROM offers WHERE id=$1`, id))
}

const cashEntryColumns = `id, amount, entry_date, description, created_by, created_at, updated_at`

func scanCashEntry(row pgx.Row) (*CashEntry, error) {
	var c CashEntry
	err := row.Scan(&c.ID, &c.Amount, &c.EntryDate, &c.Description, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetCashEntry(ctx context.Context, id int64) (*CashEntry, error) {
	return scanCashEntry(r.pool.QueryRow(ctx, `SELECT `+cashEntryColumns+` FROM cash_entries WHERE id = $1`, id))
}

func (r *Repository) ListCashEntries(ctx context.Context, params ListParams) ([]CashEntry, error) {
	params = params.normalize()
	rows, err := r.pool.Query(ctx, `SELECT `+cashEntryColumns+` FROM cash_entries ORDER BY id DESC LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []CashEntry
	for rows.Next() {
		c, err := scanCashEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *c)
	}
	return entries, rows.Err()
}

func (t *txRepo) InsertCashEntry(ctx context.Context, entry CashEntry) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO cash_entries (amount, entry_date, description, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`,
		entry.Amount, entry.EntryDate, entry.Description, entry.CreatedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetCashEntryForUpdate(ctx context.Context, id int64) (*CashEntry, error) {
	return scanCashEntry(t.tx.QueryRow(ctx, `SELECT `+cashEntryColumns+` FROM cash_entries WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateCashEntry(ctx context.Context, entry CashEntry) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE cash_entries SET amount=$2, entry_date=$3, description=$4, updated_at=NOW() WHERE id=$1`,
		entry.ID, entry.Amount, entry.EntryDate, entry.Description,
	)
	return affected(tag, err)
}

func (t *txRepo) DeleteCashEntry(ctx context.Context, id int64) error {
	return affected(t.tx.Exec(ctx, `DELETE FROM cash_entries WHERE id=$1`, id))
}

const expenseColumns = `id, amount, category, description, created_by, created_at, updated_at`

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.Amount, &e.Category, &e.Description, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (*Expense, error) {
	return scanExpense(r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
}

func (r *Repository) ListExpenses(ctx context.Context, params ListParams) ([]Expense, error) {
	params = params.normalize()
	rows, err := r.pool.Query(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY id DESC LIMIT $1 OFFSET $2`, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expenses []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (t *txRepo) InsertExpense(ctx context.Context, expense Expense) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx,
		`INSERT INTO expenses (amount, category, description, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW()) RETURNING id`,
		expense.Amount, expense.Category, expense.Description, expense.CreatedBy,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetExpenseForUpdate(ctx context.Context, id int64) (*Expense, error) {
	return scanExpense(t.tx.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1 FOR UPDATE`, id))
}

func (t *txRepo) UpdateExpense(ctx context.Context, expense Expense) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE expenses SET amount=$2, category=$3, description=$4, updated_at=NOW() WHERE id=$1`,
		expense.ID, expense.Amount, expense.Category, expense.Description,
	)
	return affected(tag, err)
}

func (t *txRepo) DeleteExpense(ctx context.Context, id int64) error {
	return affected(t.tx.Exec(ctx, `DELETE FROM expenses WHERE id=$1`, id))
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
