package sntp

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert := assert.New(t)

	err := newError(KindTimeout, errors.New("no response"))
	assert.Equal(KindTimeout, KindOf(err))
	assert.Equal("sntp: Timeout: no response", err.Error())

	wrapped := errors.Wrap(err, "poll error")
	assert.Equal(KindTimeout, KindOf(wrapped))

	assert.Equal(KindUnknown, KindOf(errors.New("other")))
	assert.Equal(KindUnknown, KindOf(nil))

	err = newError(KindTransportError, context.Canceled)
	assert.True(errors.Is(err, context.Canceled))
	assert.Equal(context.Canceled, errors.Cause(err))
}
