package gattc

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil))

	err := errors.Wrap(ErrBusy, "connection 0x0001")
	assert.Equal(t, err, MapError(err))

	err = MapError(io.ErrClosedPipe)
	assert.Equal(t, ErrUnspecified, errors.Cause(err))
	assert.Contains(t, err.Error(), io.ErrClosedPipe.Error())
}

func TestAttError(t *testing.T) {
	assert.Equal(t, "attribute not found", ErrAttrNotFound.Error())
	assert.Equal(t, "reserved error code", AttError(0x20).Error())
	assert.Equal(t, "profile or service error", AttError(0xE1).Error())
}
