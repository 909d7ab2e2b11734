package cache

import (
	"net/url"
	"strconv"

	"github.com/avrebrov/store-api/internal/domain"
)

// List scopes group every list key of an entity under one prefix, so a
// mutation can drop all of them with a single DeletePrefix call.
const (
	UserListScope    = "users:list:"
	ProductListScope = "products:list:"
	OrderListScope   = "orders:list:"
)

func UserKey(id string) string    { return "user:" + id }
func ProductKey(id string) string { return "product:" + id }
func OrderKey(id string) string   { return "order:" + id }

// UserListKey canonicalizes the filter: url.Values encodes keys sorted, so
// equal filters always map to the same key.
func UserListKey(filter domain.UserFilter) string {
	v := pageValues(filter.Page)
	if filter.Username != "" {
		v.Set("username", filter.Username)
	}
	if filter.Email != "" {
		v.Set("email", filter.Email)
	}
	if filter.Description != "" {
		v.Set("description", filter.Description)
	}
	return UserListScope + v.Encode()
}

func ProductListKey(page domain.Page) string {
	return ProductListScope + pageValues(page).Encode()
}

func OrderListKey(page domain.Page) string {
	return OrderListScope + pageValues(page).Encode()
}

func pageValues(page domain.Page) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(page.Page))
	v.Set("count", strconv.Itoa(page.Count))
	return v
}
