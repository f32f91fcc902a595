// Copyright (c) 2025 Deeting Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent resolves agent identity for the Deeting client.
//
// Resolution has three observable states: Loading while the answer is not
// yet known, Resolved once a definition is in hand, and NotFound once the
// backing source has definitively reported absence. The distinction between
// "not yet known" and "known absent" drives the redirect policy: the client
// may bounce the user off a missing agent, but never off one that is merely
// still loading.
//
// Two sources exist. LocalSource serves desktop builds from the registry,
// which loads agent definitions once from the local bridge store and is
// idempotent after the first successful load. RemoteSource serves web-style
// builds from the backend API, mapping the service's definitive absence
// error to NotFound and every other failure to Loading so transient
// outages never look like deletion.
package agent
