package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerified(t *testing.T) {
	now := time.Now()
	assert.True(t, User{EmailVerifiedAt: &now}.Verified())
	assert.False(t, User{}.Verified())

	var zero time.Time
	assert.False(t, User{EmailVerifiedAt: &zero}.Verified())
}
