// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

package resolver

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// almanacABI is the minimal subset of the Almanac contract's ABI this
// resolver needs: query_record(address) -> (endpointURLs[],
// endpointWeights[], expiry). The rest of the contract surface (register, get_sequence,
// get_registration_fee, get_contract_version) is consumed by the
// registration package, not by resolution.
const almanacABI = `[
  {"name":"query_record","type":"function","stateMutability":"view",
   "inputs":[{"name":"agentAddress","type":"string"}],
   "outputs":[
     {"name":"endpointURLs","type":"string[]"},
     {"name":"endpointWeights","type":"uint256[]"},
     {"name":"expiry","type":"uint256"}
   ]}
]`

// ContractResolver queries the on-chain Almanac contract directly, the way
// did/ethereum.EthereumClient binds a contract via go-ethereum (§4.5,
// §6.3).
type ContractResolver struct {
	client          *ethclient.Client
	contract        *bind.BoundContract
	contractAddress common.Address
}

// NewContractResolver dials rpcEndpoint and binds the Almanac contract at
// contractAddress for read-only queries.
func NewContractResolver(rpcEndpoint, contractAddress string) (*ContractResolver, error) {
	client, err := ethclient.Dial(rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("resolver: connect to chain: %w", err)
	}
	parsedABI, err := abi.JSON(strings.NewReader(almanacABI))
	if err != nil {
		return nil, fmt.Errorf("resolver: parse almanac abi: %w", err)
	}
	addr := common.HexToAddress(contractAddress)
	contract := bind.NewBoundContract(addr, parsedABI, client, client, client)
	return &ContractResolver{client: client, contract: contract, contractAddress: addr}, nil
}

// Resolve calls query_record(address) on the bound contract. Per §4.5, any
// failure (including "no such record") is swallowed into a zero Result so
// the chain falls through to the next resolver.
func (c *ContractResolver) Resolve(ctx context.Context, address string) (Result, error) {
	var out []interface{}
	callOpts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(callOpts, &out, "query_record", address); err != nil {
		return Result{}, nil
	}
	endpoints := decodeEndpoints(out)
	if len(endpoints) == 0 {
		return Result{}, nil
	}
	return Result{Address: address, Endpoints: endpoints}, nil
}

// decodeEndpoints pairs the parallel endpointURLs/endpointWeights arrays
// returned by query_record into Endpoint values.
func decodeEndpoints(out []interface{}) []Endpoint {
	if len(out) < 2 {
		return nil
	}
	urls, ok := out[0].([]string)
	if !ok {
		return nil
	}
	weights, ok := out[1].([]*big.Int)
	if !ok || len(weights) != len(urls) {
		return nil
	}
	endpoints := make([]Endpoint, len(urls))
	for i, u := range urls {
		w := new(big.Float).SetInt(weights[i])
		weight, _ := w.Float64()
		if weight <= 0 {
			weight = 1
		}
		endpoints[i] = Endpoint{URL: u, Weight: weight}
	}
	return endpoints
}
