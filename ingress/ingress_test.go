package ingress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/vpnwatch/addrclass"
	"github.com/safing/vpnwatch/ingress"
)

func TestClassifyOrientationAndSkip(t *testing.T) {
	t.Parallel()
	cfg := ingress.DefaultConfig()

	v := ingress.Classify(0x08080808, 0x0A000001, cfg)
	require.Equal(t, ingress.Analyze, v.Decision)
	assert.Equal(t, addrclass.Address(0x0A000001), v.Internal)
	assert.Equal(t, addrclass.Address(0x08080808), v.External)

	v = ingress.Classify(0x0A000001, 0x0A000002, cfg)
	assert.Equal(t, ingress.Skip, v.Decision)

	v = ingress.Classify(0x08080808, 0x08080404, cfg)
	assert.Equal(t, ingress.Skip, v.Decision)
}

func TestClassifyBothPublicFilterOff(t *testing.T) {
	t.Parallel()
	cfg := ingress.Config{FilterInternalOnly: false, OrientInternalAsSource: true}

	v := ingress.Classify(0x08080808, 0x08080404, cfg)
	require.Equal(t, ingress.Analyze, v.Decision)
	assert.Equal(t, addrclass.Address(0x08080808), v.Internal)
	assert.Equal(t, addrclass.Address(0x08080404), v.External)
}

// TestClassifyCommutativeUnderFlip checks that when exactly one of
// src/dst is private, classifying (a,b) and (b,a) produce the same
// oriented pair.
func TestClassifyCommutativeUnderFlip(t *testing.T) {
	t.Parallel()
	cfg := ingress.DefaultConfig()

	a := addrclass.Address(0x0A000001) // private
	b := addrclass.Address(0x08080808) // public

	v1 := ingress.Classify(a, b, cfg)
	v2 := ingress.Classify(b, a, cfg)

	require.Equal(t, ingress.Analyze, v1.Decision)
	require.Equal(t, ingress.Analyze, v2.Decision)
	assert.Equal(t, v1, v2)
}

func TestClassifyIdempotent(t *testing.T) {
	t.Parallel()
	cfg := ingress.DefaultConfig()

	v := ingress.Classify(0x08080808, 0x0A000001, cfg)
	require.Equal(t, ingress.Analyze, v.Decision)

	v2 := ingress.Classify(v.Internal, v.External, cfg)
	assert.Equal(t, v, v2)
}
