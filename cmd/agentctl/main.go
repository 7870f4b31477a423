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

// Command agentctl is an operator tool for agent identities and the wire
// protocol: key generation, address derivation, manifest digesting, and a
// local dry-run envelope submit, mirroring the teacher's cmd/sage-did and
// cmd/sage-crypto CLI shape.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "agentctl",
		Short: "Operator CLI for agent identities and the uAgents wire protocol",
	}

	root.AddCommand(newKeygenCmd())
	root.AddCommand(newAddressCmd())
	root.AddCommand(newDigestManifestCmd())
	root.AddCommand(newSubmitCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
