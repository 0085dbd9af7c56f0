package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndSkipsNil(t *testing.T) {
	expiry := &stubJob{name: "unpaid_order_expiry"}
	digest := &stubJob{name: "approval_digest"}
	registry := NewRegistry(expiry, nil)
	assert.Error(t, registry.Register(nil))
	require.NoError(t, registry.Register(digest))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, expiry, jobs[0])
	assert.Same(t, digest, jobs[1])
	assert.Equal(t, []string{"unpaid_order_expiry", "approval_digest"}, registry.Names())

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "callers get a copy")
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	first := &stubJob{name: "unpaid_order_expiry"}
	registry := NewRegistry(first, &stubJob{name: "unpaid_order_expiry"})

	assert.Error(t, registry.Register(&stubJob{name: "unpaid_order_expiry"}))
	require.Len(t, registry.Jobs(), 1)
	assert.Same(t, first, registry.Jobs()[0])
}
