package psql

import (
	"fmt"
	"strings"

	"github.com/duynhne/user-service/internal/core/domain"
)

const userColumns = `id::text, firstname, lastname, username, password, phone_number, address, role, wishlist, created_at, updated_at`

// columns maps public field names to SQL expressions.
var columns = map[string]string{
	"id":          "id::text",
	"firstname":   "firstname",
	"lastname":    "lastname",
	"username":    "username",
	"phoneNumber": "phone_number",
	"address":     "address",
	"role":        "role",
	"wishlist":    "wishlist",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
}

var operators = map[domain.FilterOp]string{
	domain.OpEq:  "=",
	domain.OpNe:  "<>",
	domain.OpGt:  ">",
	domain.OpGte: ">=",
	domain.OpLt:  "<",
	domain.OpLte: "<=",
}

// buildWhere renders filters as a WHERE clause with positional args starting at $1.
func buildWhere(filters []domain.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	conds := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		col, ok := columns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidQuery, f.Field)
		}
		op, ok := operators[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("%w: unsupported operator %q", domain.ErrInvalidQuery, f.Op)
		}

		args = append(args, f.Value)
		n := len(args)
		if kind, _ := domain.FieldKindOf(f.Field); kind == domain.KindArray {
			conds = append(conds, fmt.Sprintf("$%d::text = ANY(%s)", n, col))
			continue
		}
		conds = append(conds, fmt.Sprintf("%s %s $%d", col, op, n))
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func buildOrderBy(sort []domain.SortField) (string, error) {
	parts := make([]string, 0, len(sort)+1)
	for _, s := range sort {
		col, ok := columns[s.Field]
		if !ok {
			return "", fmt.Errorf("%w: cannot sort by %q", domain.ErrInvalidQuery, s.Field)
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

func buildListQuery(q domain.ListQuery) (string, []any, error) {
	where, args, err := buildWhere(q.Filters)
	if err != nil {
		return "", nil, err
	}
	orderBy, err := buildOrderBy(q.Sort)
	if err != nil {
		return "", nil, err
	}

	args = append(args, q.Limit, q.Offset())
	query := fmt.Sprintf("SELECT %s FROM users%s%s LIMIT $%d OFFSET $%d",
		userColumns, where, orderBy, len(args)-1, len(args))
	return query, args, nil
}

func buildCountQuery(filters []domain.Filter) (string, []any, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM users" + where, args, nil
}
