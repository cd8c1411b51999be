// Package undo keeps the durable record of executed batches and replays
// their inverse operations on request, most recent batch first.
package undo
