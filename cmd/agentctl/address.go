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

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/agentmesh/uagents-go/crypto"
	"github.com/spf13/cobra"
)

func newAddressCmd() *cobra.Command {
	var pubKeyHex string
	var network string

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Derive an AgentAddress from a raw public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := hex.DecodeString(pubKeyHex)
			if err != nil {
				return fmt.Errorf("address: decode --pubkey: %w", err)
			}
			net, err := parseNetwork(network)
			if err != nil {
				return err
			}
			addr, err := crypto.DeriveAddress(pub, net)
			if err != nil {
				return fmt.Errorf("address: derive: %w", err)
			}
			fmt.Println(addr)
			return nil
		},
	}

	cmd.Flags().StringVar(&pubKeyHex, "pubkey", "", "hex-encoded public key bytes (required)")
	cmd.Flags().StringVar(&network, "network", "mainnet", "address network: mainnet or testnet")
	cmd.MarkFlagRequired("pubkey")
	return cmd
}
