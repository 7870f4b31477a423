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

package protocol

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/agentmesh/uagents-go/schema"
)

// Manifest is the canonical JSON structure hashed to produce the on-chain
// protocol_digest (§4.7).
type Manifest struct {
	Version      string             `json:"version"`
	Metadata     ManifestMetadata   `json:"metadata"`
	Models       []ManifestModel    `json:"models"`
	Interactions []ManifestInteract `json:"interactions"`
}

type ManifestMetadata struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Digest  string `json:"digest"`
}

type ManifestModel struct {
	Digest string      `json:"digest"`
	Schema interface{} `json:"schema"`
}

type ManifestInteract struct {
	Type      string   `json:"type"`
	Request   string   `json:"request"`
	Responses []string `json:"responses"`
}

// BuildManifest assembles the canonical manifest for p, with Metadata.Digest
// left blank: Digest() hashes over this zero value and returns the result
// without writing it back into a manifest.
func (p *Protocol) BuildManifest() (Manifest, error) {
	digests := make([]string, 0, len(p.models))
	for d := range p.models {
		digests = append(digests, d)
	}
	sort.Strings(digests)

	models := make([]ManifestModel, 0, len(digests))
	for _, d := range digests {
		sc, err := schema.Canonical(p.models[d])
		if err != nil {
			return Manifest{}, err
		}
		models = append(models, ManifestModel{Digest: d, Schema: sc})
	}

	incomingDigests := make([]string, 0, len(p.replies))
	for d := range p.replies {
		incomingDigests = append(incomingDigests, d)
	}
	sort.Strings(incomingDigests)

	interactions := make([]ManifestInteract, 0, len(incomingDigests))
	for _, in := range incomingDigests {
		replySet := p.replies[in]
		responses := make([]string, 0, len(replySet))
		for r := range replySet {
			responses = append(responses, r)
		}
		sort.Strings(responses)
		interactions = append(interactions, ManifestInteract{
			Type: "normal", Request: in, Responses: responses,
		})
	}

	return Manifest{
		Version: "1.0",
		Metadata: ManifestMetadata{
			Name:    p.Name,
			Version: p.Version,
			Digest:  "",
		},
		Models:       models,
		Interactions: interactions,
	}, nil
}

// Digest computes sha256 over the canonical manifest JSON with
// metadata.digest held at "" (§4.7: "digest in metadata is computed over
// the manifest with digest field set to empty string").
func (p *Protocol) Digest() (string, error) {
	manifest, err := p.BuildManifest()
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "proto:" + hex.EncodeToString(sum[:]), nil
}
