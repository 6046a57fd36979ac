package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "NoFileUploaded", ErrorCode(ErrNoFileUploaded))
	assert.Equal(t, "MissingField", ErrorCode(fmt.Errorf("%w: userId", ErrMissingField)))
	assert.Equal(t, "IncompatibleImageFormat", ErrorCode(fmt.Errorf("%w: %w", ErrIncompatibleImageFormat, errors.New("x"))))
	assert.Equal(t, "Unknown", ErrorCode(errors.New("boom")))
}
