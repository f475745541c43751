package postgresrepo

import "context"

type TicketRepo struct {
	db DB
}

// NextTicketSeq draws the next value of ticket_number_seq. Sequence values are
// never handed out twice, even when the surrounding transaction rolls back.
func (r *TicketRepo) NextTicketSeq(ctx context.Context) (int64, error) {
	const op = "postgresrepo.TicketRepo.NextTicketSeq"

	var n int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&n); err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}
