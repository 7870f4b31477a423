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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentmesh/uagents-go/protocol"
	"github.com/spf13/cobra"
)

func newDigestManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "digest-manifest <manifest.json>",
		Short: "Recompute a protocol manifest's digest independently of the running agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("digest-manifest: read %s: %w", args[0], err)
			}

			var manifest protocol.Manifest
			if err := json.Unmarshal(data, &manifest); err != nil {
				return fmt.Errorf("digest-manifest: parse manifest: %w", err)
			}

			declared := manifest.Metadata.Digest
			manifest.Metadata.Digest = ""

			canonical, err := json.Marshal(manifest)
			if err != nil {
				return fmt.Errorf("digest-manifest: marshal canonical form: %w", err)
			}
			sum := sha256.Sum256(canonical)
			computed := "proto:" + hex.EncodeToString(sum[:])

			fmt.Printf("computed: %s\n", computed)
			if declared != "" {
				fmt.Printf("declared: %s\n", declared)
				if declared != computed {
					return fmt.Errorf("digest-manifest: declared digest does not match computed digest")
				}
				fmt.Println("match: ok")
			}
			return nil
		},
	}
	return cmd
}
