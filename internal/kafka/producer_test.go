package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProducer_PublishAfterCloseIsDropped(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:1"}, "shop.order.status", 1, nil)
	p.Close()
	p.Close()

	assert.NotPanics(t, func() {
		p.Publish([]byte("o1"), []byte(`{}`))
	})
	assert.Empty(t, p.inbox)
}
