package invoices

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestPqUserFriendlyMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unique violation", &pq.Error{Code: "23505"}, "An invoice with the same numero already exists for this entite."},
		{"fk violation", &pq.Error{Code: "23503"}, "Some referenced data was not found (please refresh and try again)."},
		{"check violation", &pq.Error{Code: "23514"}, "Some fields have invalid values. Please check and try again."},
		{"other pq code", &pq.Error{Code: "42P01"}, "Database error while processing the request. Please try again."},
		{"plain error", errors.New("dial tcp: timeout"), "dial tcp: timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pqUserFriendlyMessage(tt.err))
		})
	}
}
