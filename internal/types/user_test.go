package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsAdult(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		dob  time.Time
		want bool
	}{
		{"well over eighteen", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"eighteenth birthday today", time.Date(2007, 6, 1, 12, 0, 0, 0, time.UTC), true},
		{"one second short", time.Date(2007, 6, 1, 12, 0, 1, 0, time.UTC), false},
		{"seventeen", time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := UserProfile{DateOfBirth: tc.dob}
			assert.Equal(t, tc.want, u.IsAdult(now))
		})
	}
}
