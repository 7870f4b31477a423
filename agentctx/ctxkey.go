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

package agentctx

import "context"

// protocol.Handler takes a plain context.Context (so protocol/dialogue
// never import agentctx, avoiding an import cycle with agent runtime
// code that imports both). The runtime stashes the concrete Context
// here before invoking a handler; handlers recover it with FromContext.
type ctxKey struct{}

// NewContext returns a copy of parent carrying c, retrievable with
// FromContext.
func NewContext(parent context.Context, c Context) context.Context {
	return context.WithValue(parent, ctxKey{}, c)
}

// FromContext recovers the Context stashed by NewContext, if any.
func FromContext(ctx context.Context) (Context, bool) {
	c, ok := ctx.Value(ctxKey{}).(Context)
	return c, ok
}
