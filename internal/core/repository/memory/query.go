package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/duynhne/user-service/internal/core/domain"
)

func fieldValue(u *domain.User, field string) any {
	switch field {
	case "id":
		return u.ID
	case "firstname":
		return u.Firstname
	case "lastname":
		return u.Lastname
	case "username":
		return u.Username
	case "phoneNumber":
		return u.PhoneNumber
	case "address":
		return u.Address
	case "role":
		return string(u.Role)
	case "wishlist":
		return u.Wishlist
	case "createdAt":
		return u.CreatedAt
	case "updatedAt":
		return u.UpdatedAt
	}
	return nil
}

// compare returns -1, 0 or 1; strings and times are supported.
func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	}
	return 0
}

func matches(u *domain.User, filters []domain.Filter) bool {
	for _, f := range filters {
		v := fieldValue(u, f.Field)
		if list, ok := v.([]string); ok {
			want, _ := f.Value.(string)
			if !contains(list, want) {
				return false
			}
			continue
		}

		c := compare(v, f.Value)
		var ok bool
		switch f.Op {
		case domain.OpEq:
			ok = c == 0
		case domain.OpNe:
			ok = c != 0
		case domain.OpGt:
			ok = c > 0
		case domain.OpGte:
			ok = c >= 0
		case domain.OpLt:
			ok = c < 0
		case domain.OpLte:
			ok = c <= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

func sortUsers(users []domain.User, fields []domain.SortField) {
	sort.SliceStable(users, func(i, j int) bool {
		for _, f := range fields {
			c := compare(fieldValue(&users[i], f.Field), fieldValue(&users[j], f.Field))
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return users[i].ID < users[j].ID
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
