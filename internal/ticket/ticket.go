// Package ticket allocates ticket numbers.
//
// Uniqueness comes from a store-backed monotonic sequence. The printed form is
// a display derivative of the sequence value and must be treated as opaque.
package ticket

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirinyoku/flightbook/internal/repository"
)

const (
	DefaultPrefix = "LJ"
	digits        = 8
)

type Generator struct {
	prefix string
}

func NewGenerator(prefix string) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: prefix}
}

// Next draws one ticket number from seq.
func (g *Generator) Next(ctx context.Context, seq repository.TicketSequence) (string, error) {
	const op = "ticket.Generator.Next"

	n, err := seq.NextTicketSeq(ctx)
	if err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if n <= 0 {
		return "", fmt.Errorf("%s: sequence returned %d", op, n)
	}

	return g.Format(n), nil
}

// Format renders a sequence value. Distinct values give distinct strings.
func (g *Generator) Format(n int64) string {
	s := strings.ToUpper(strconv.FormatInt(n, 36))
	if len(s) < digits {
		s = strings.Repeat("0", digits-len(s)) + s
	}
	return g.prefix + s
}
