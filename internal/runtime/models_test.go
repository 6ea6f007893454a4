package runtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnprocessableMessageError(t *testing.T) {
	cause := errors.New("bad json")
	err := &UnprocessableMessageError{MessageID: "5-1000", Err: cause}

	assert.Equal(t, "unprocessable message 5-1000: bad json", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsUnprocessable(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsUnprocessable(cause))
	assert.False(t, IsUnprocessable(nil))
}
