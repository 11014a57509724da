package mongodb

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/duynhne/user-service/internal/core/domain"
)

var operators = map[domain.FilterOp]string{
	domain.OpEq:  "$eq",
	domain.OpNe:  "$ne",
	domain.OpGt:  "$gt",
	domain.OpGte: "$gte",
	domain.OpLt:  "$lt",
	domain.OpLte: "$lte",
}

// documentKey maps a public field name to its BSON key.
func documentKey(field string) string {
	if field == "id" {
		return "_id"
	}
	return field
}

// buildFilter renders filters as a single $and document. Filters on the same key do not
// overwrite each other.
func buildFilter(filters []domain.Filter) (bson.M, error) {
	if len(filters) == 0 {
		return bson.M{}, nil
	}

	conds := make(bson.A, 0, len(filters))
	for _, f := range filters {
		kind, ok := domain.FieldKindOf(f.Field)
		if !ok {
			return nil, fmt.Errorf("%w: unknown field %q", domain.ErrInvalidQuery, f.Field)
		}
		op, ok := operators[f.Op]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported operator %q", domain.ErrInvalidQuery, f.Op)
		}

		value := f.Value
		if f.Field == "id" {
			value = objectIDOrNil(fmt.Sprint(f.Value))
		}
		if kind == domain.KindArray {
			// equality against an array field matches any element
			conds = append(conds, bson.M{documentKey(f.Field): value})
			continue
		}
		conds = append(conds, bson.M{documentKey(f.Field): bson.M{op: value}})
	}
	return bson.M{"$and": conds}, nil
}

func buildSort(sort []domain.SortField) (bson.D, error) {
	out := make(bson.D, 0, len(sort)+1)
	byID := false
	for _, s := range sort {
		if _, ok := domain.FieldKindOf(s.Field); !ok {
			return nil, fmt.Errorf("%w: cannot sort by %q", domain.ErrInvalidQuery, s.Field)
		}
		dir := 1
		if s.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: documentKey(s.Field), Value: dir})
		byID = byID || s.Field == "id"
	}
	if !byID {
		out = append(out, bson.E{Key: "_id", Value: 1})
	}
	return out, nil
}

// objectIDOrNil parses hex ids; malformed ids become NilObjectID, which matches nothing.
func objectIDOrNil(hex string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}
