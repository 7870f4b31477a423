package resolver_test

import (
	"context"
	"testing"

	"github.com/agentmesh/uagents-go/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	result resolver.Result
	err    error
}

func (s stubResolver) Resolve(ctx context.Context, identifier string) (resolver.Result, error) {
	return s.result, s.err
}

type stubNameResolver struct{ address string }

func (s stubNameResolver) ResolveName(ctx context.Context, name string) (string, error) {
	return s.address, nil
}

// TestChainFallsBackFromRESTToContract reproduces scenario 3's fallback
// path: the REST resolver has nothing, the contract resolver has the
// weighted endpoints.
func TestChainFallsBackFromRESTToContract(t *testing.T) {
	rest := stubResolver{}
	contract := stubResolver{result: resolver.Result{
		Address: "agent1q2kxet3",
		Endpoints: []resolver.Endpoint{
			{URL: "http://h1/submit", Weight: 1},
			{URL: "http://h2/submit", Weight: 3},
		},
	}}

	chain := resolver.NewChain(rest, contract, nil, 10)
	res, err := chain.Resolve(context.Background(), "agent1q2kxet3")
	require.NoError(t, err)
	assert.Equal(t, "agent1q2kxet3", res.Address)
	assert.Len(t, res.Endpoints, 2)
}

func TestChainReturnsEmptyWhenAllSourcesFail(t *testing.T) {
	chain := resolver.NewChain(stubResolver{}, stubResolver{}, nil, 10)
	res, err := chain.Resolve(context.Background(), "agent1qnobody")
	require.NoError(t, err)
	assert.Equal(t, "", res.Address)
	assert.Empty(t, res.Endpoints)
}

func TestChainResolvesNamesViaNameServiceFirst(t *testing.T) {
	contract := stubResolver{result: resolver.Result{
		Address:   "agent1qresolved",
		Endpoints: []resolver.Endpoint{{URL: "http://h/submit", Weight: 1}},
	}}
	chain := resolver.NewChain(stubResolver{}, contract, stubNameResolver{address: "agent1qresolved"}, 10)

	res, err := chain.Resolve(context.Background(), "alice.agent")
	require.NoError(t, err)
	assert.Equal(t, "agent1qresolved", res.Address)
}

func TestChainBoundsEndpointsToMax(t *testing.T) {
	endpoints := make([]resolver.Endpoint, 20)
	for i := range endpoints {
		endpoints[i] = resolver.Endpoint{URL: "http://h/submit", Weight: 1}
	}
	chain := resolver.NewChain(stubResolver{result: resolver.Result{Address: "a", Endpoints: endpoints}}, nil, nil, 5)

	res, err := chain.Resolve(context.Background(), "agent1qa")
	require.NoError(t, err)
	assert.Len(t, res.Endpoints, 5)
}

func TestIsAddress(t *testing.T) {
	assert.True(t, resolver.IsAddress("agent1qv73me5"))
	assert.True(t, resolver.IsAddress("test-agent1qv73me5"))
	assert.False(t, resolver.IsAddress("alice.agent"))
}
