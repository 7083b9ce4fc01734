// Package service contains the domain logic of the forum: authorization,
// validation and the transactional write paths over the repositories.
package service

import (
	"fmt"

	"tribune/internal/models"
)

// ensureAdmin guards admin-only operations.
func ensureAdmin(actor *models.Actor) error {
	if !actor.IsAdmin() {
		return models.NewForbiddenError("Administrator access required")
	}
	return nil
}

// ensureOwnerOrAdmin guards mutations that the author or an administrator may
// perform.
func ensureOwnerOrAdmin(actor *models.Actor, ownerID uint, resource string) error {
	if actor.IsAdmin() || actor.Owns(ownerID) {
		return nil
	}
	return models.NewForbiddenError(fmt.Sprintf("You can only modify your own %s", resource))
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// clampPagination normalizes limit and offset to the supported window.
func clampPagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
