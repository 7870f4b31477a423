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
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const nameServiceABI = `[
  {"name":"resolve","type":"function","stateMutability":"view",
   "inputs":[{"name":"name","type":"string"}],
   "outputs":[{"name":"agentAddress","type":"string"}]}
]`

// ContractNameResolver implements NameResolver against the on-chain name
// service contract (§6.4): "resolve(name) -> address|null". Registration
// of names is explicitly out of scope.
type ContractNameResolver struct {
	contract *bind.BoundContract
}

// NewContractNameResolver dials rpcEndpoint and binds the name-service
// contract at contractAddress.
func NewContractNameResolver(rpcEndpoint, contractAddress string) (*ContractNameResolver, error) {
	client, err := ethclient.Dial(rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("resolver: connect to chain: %w", err)
	}
	parsedABI, err := abi.JSON(strings.NewReader(nameServiceABI))
	if err != nil {
		return nil, fmt.Errorf("resolver: parse name service abi: %w", err)
	}
	addr := common.HexToAddress(contractAddress)
	contract := bind.NewBoundContract(addr, parsedABI, client, client, client)
	return &ContractNameResolver{contract: contract}, nil
}

// ResolveName calls resolve(name) on the bound contract. An empty result
// or call error both mean "unresolved", matching §4.5's null-on-failure
// contract for the whole chain.
func (c *ContractNameResolver) ResolveName(ctx context.Context, name string) (string, error) {
	var out []interface{}
	callOpts := &bind.CallOpts{Context: ctx}
	if err := c.contract.Call(callOpts, &out, "resolve", name); err != nil {
		return "", nil
	}
	if len(out) == 0 {
		return "", nil
	}
	address, _ := out[0].(string)
	return address, nil
}
