package errors_test

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/dargueta/fatcat/errors"
	"github.com/stretchr/testify/assert"
)

func TestDriverError__WithMessage(t *testing.T) {
	newErr := errors.ErrCorruptChain.WithMessage("cluster 5 points at 0xFF7")
	assert.Equal(
		t,
		"Corrupted cluster chain: cluster 5 points at 0xFF7",
		newErr.Error(),
		"error message is wrong")
	assert.ErrorIs(t, newErr, errors.ErrCorruptChain)
	assert.NotErrorIs(t, newErr, errors.ErrRead)
	assert.Equal(t, errors.KindCorruptChain, newErr.Kind())
}

func TestDriverError__Wrap(t *testing.T) {
	originalErr := io.ErrUnexpectedEOF
	newErr := errors.ErrRead.Wrap(originalErr)

	assert.Equal(t, "Input/output error: unexpected EOF", newErr.Error())
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, errors.ErrRead, "driver error not set as parent")
	assert.NotErrorIs(t, newErr, errors.ErrTruncatedImage)
}

func TestDriverError__WrapThenMessage(t *testing.T) {
	newErr := errors.ErrRead.Wrap(io.EOF).WithMessage("reading FAT")

	assert.ErrorIs(t, newErr, io.EOF)
	assert.ErrorIs(t, newErr, errors.ErrRead)
	assert.Equal(t, "Input/output error: EOF: reading FAT", newErr.Error())
}

func TestDriverError__DerivedErrorIsNotATarget(t *testing.T) {
	first := errors.ErrNotFound.WithMessage("A")
	second := errors.ErrNotFound.WithMessage("B")
	assert.NotErrorIs(t, first, second)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Kind
	}{
		{"nil", nil, errors.KindOK},
		{"sentinel", errors.ErrTruncatedImage, errors.KindTruncatedImage},
		{"derived", errors.ErrRead.Wrap(io.EOF), errors.KindRead},
		{"wrapped by fmt", fmt.Errorf("extracting: %w", errors.ErrNotFound), errors.KindNotFound},
		{"foreign", stderrors.New("something else"), errors.KindUnknown},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, errors.KindOf(test.err))
		})
	}
}

func TestKind__String(t *testing.T) {
	assert.Equal(t, "No such file or directory", errors.KindNotFound.String())
	assert.Equal(t, "error kind 999 not recognized", errors.Kind(999).String())
}
