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
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentmesh/uagents-go/crypto"
	"github.com/agentmesh/uagents-go/envelope"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	var (
		url          string
		sender       string
		target       string
		session      string
		schemaDigest string
		payload      string
		seed         string
		keyType      string
		index        uint32
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Build and POST an envelope to a /submit endpoint, for local dry-run testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				session = uuid.NewString()
			}

			env := envelope.New(sender, target, session, schemaDigest)
			if payload != "" {
				env.EncodePayload(payload)
			}

			if seed != "" {
				kp, err := crypto.NewManager().DeriveKeyPair(crypto.KeyType(keyType), seed, index)
				if err != nil {
					return fmt.Errorf("submit: derive signing key: %w", err)
				}
				if err := env.Sign(kp.Sign); err != nil {
					return fmt.Errorf("submit: sign envelope: %w", err)
				}
			}

			data, err := env.MarshalCanonicalJSON()
			if err != nil {
				return fmt.Errorf("submit: encode envelope: %w", err)
			}

			req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("submit: build request: %w", err)
			}
			req.Header.Set("content-type", "application/json")

			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("submit: request failed: %w", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			fmt.Printf("status: %s\n", resp.Status)
			if len(body) > 0 {
				fmt.Printf("body:   %s\n", body)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "target /submit URL (required)")
	cmd.Flags().StringVar(&sender, "sender", "", "sender AgentAddress (required)")
	cmd.Flags().StringVar(&target, "target", "", "target AgentAddress (required)")
	cmd.Flags().StringVar(&session, "session", "", "session id (defaults to a fresh UUID)")
	cmd.Flags().StringVar(&schemaDigest, "schema", "", "schema digest of the payload model (required)")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON payload body")
	cmd.Flags().StringVar(&seed, "seed", "", "sign the envelope, deriving the key from this seed phrase")
	cmd.Flags().StringVar(&keyType, "type", string(crypto.KeyTypeEd25519), "signing key type, used only with --seed")
	cmd.Flags().Uint32Var(&index, "index", 0, "derivation index, used only with --seed")
	cmd.MarkFlagRequired("url")
	cmd.MarkFlagRequired("sender")
	cmd.MarkFlagRequired("target")
	cmd.MarkFlagRequired("schema")
	return cmd
}
