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

func newKeygenCmd() *cobra.Command {
	var keyType string
	var seed string
	var index uint32
	var network string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate or deterministically derive an agent identity key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			kt := crypto.KeyType(keyType)
			mgr := crypto.NewManager()

			var (
				kp  crypto.KeyPair
				err error
			)
			if seed != "" {
				kp, err = mgr.DeriveKeyPair(kt, seed, index)
			} else {
				kp, err = mgr.GenerateKeyPair(kt)
			}
			if err != nil {
				return fmt.Errorf("keygen: %w", err)
			}

			net, err := parseNetwork(network)
			if err != nil {
				return err
			}
			address, err := crypto.AddressOf(kp, net)
			if err != nil {
				return fmt.Errorf("keygen: derive address: %w", err)
			}

			fmt.Printf("type:    %s\n", kp.Type())
			fmt.Printf("address: %s\n", address)
			if seeder, ok := kp.(interface{ PrivateKeySeed() []byte }); ok {
				fmt.Printf("seed:    %s\n", hex.EncodeToString(seeder.PrivateKeySeed()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&keyType, "type", string(crypto.KeyTypeEd25519), "key type: Ed25519 or Secp256k1")
	cmd.Flags().StringVar(&seed, "seed", "", "deterministically derive from this seed phrase instead of generating randomly")
	cmd.Flags().Uint32Var(&index, "index", 0, "derivation index, used only with --seed")
	cmd.Flags().StringVar(&network, "network", "mainnet", "address network: mainnet or testnet")
	return cmd
}

func parseNetwork(name string) (crypto.Network, error) {
	switch name {
	case "mainnet":
		return crypto.NetworkMainnet, nil
	case "testnet":
		return crypto.NetworkTestnet, nil
	default:
		return 0, fmt.Errorf("unknown network %q (want mainnet or testnet)", name)
	}
}
