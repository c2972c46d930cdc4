// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge connects caller-supplied byte producers and consumers
// to the compression engine.
//
// A [Source] is pulled by the engine; it can be built from an
// [io.Reader] or from a pair of callbacks that follow a small integer
// protocol (a byte value, -1 for end of data, [CallbackError] for
// failure). A [Sink] is pushed to by the engine; it buffers
// [DefaultBufferSize] bytes and delivers them to an [io.Writer] or to a
// callback pair. Callback failures surface as fault.ErrCallback errors
// and are never confused with end of data.
//
// Neither type is safe for concurrent use. Each engine instance owns
// its source and sink for its lifetime.
package bridge
